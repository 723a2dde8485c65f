package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	ierrors "internhub-engine/internal/errors"
	"internhub-engine/internal/telemetry"
)

var tracer = telemetry.GetTracer("events")

const DefaultSubject = "internships.scrape"

// NATSPublisher sends every event as JSON to <subject>.<type>.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATSPublisher(url, subject string, timeout time.Duration, logger *zap.Logger) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := []nats.Option{
		nats.Name("internhub-engine"),
		nats.Timeout(timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, ierrors.Internal("connecting to NATS", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger.Named("events.nats")}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, typ string, data any) error {
	_, span := tracer.Start(ctx, "events.Publish")
	defer span.End()

	raw, err := json.Marshal(data)
	if err != nil {
		span.RecordError(err)
		return ierrors.Internal("marshaling event", err)
	}
	payload, err := json.Marshal(Event{
		Type:      typ,
		Version:   Version,
		At:        time.Now().UTC(),
		RequestID: RequestIDFrom(ctx),
		Data:      raw,
	})
	if err != nil {
		span.RecordError(err)
		return ierrors.Internal("marshaling event", err)
	}

	subject := p.subject + "." + typ
	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(payload)),
	)

	if err := p.conn.Publish(subject, payload); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish event", zap.String("subject", subject), zap.Error(err))
		return ierrors.Internal("publishing to NATS", err)
	}

	p.logger.Debug("published event", zap.String("subject", subject))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
