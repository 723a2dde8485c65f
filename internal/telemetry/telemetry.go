package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const ServiceName = "internhub-engine"

func String(key string, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func Int(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}

// GetTracer returns an OpenTelemetry tracer for the named component. Spans
// are dropped unless the process installs a tracer provider.
func GetTracer(component string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(ServiceName + "/" + component)
}
