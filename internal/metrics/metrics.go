// Package metrics holds the Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "internhub"

var (
	// RunsTotal counts finished pipeline runs.
	// Labels: status (success, error)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by final status",
		},
		[]string{"status"},
	)

	// RunDuration tracks wall time of whole runs.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// RunsRejected counts triggers refused because a run was already going.
	RunsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_rejected_total",
			Help:      "Total number of run triggers rejected while another run was in progress",
		},
	)

	// SourceFetches counts fetch attempts per source.
	// Labels: source, result (success, error)
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Total number of source document fetches",
		},
		[]string{"source", "result"},
	)

	// PostingsParsed counts postings parsed out of each source.
	PostingsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "postings_parsed_total",
			Help:      "Total number of postings parsed per source",
		},
		[]string{"source"},
	)

	// ProbeVerdicts counts liveness probe outcomes.
	// Labels: verdict (open, closed, unknown), cached (true, false)
	ProbeVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "verdicts_total",
			Help:      "Total number of application link probe verdicts",
		},
		[]string{"verdict", "cached"},
	)

	// DuplicatesDropped counts postings removed by deduplication.
	DuplicatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedupe",
			Name:      "dropped_total",
			Help:      "Total number of postings dropped as duplicates",
		},
	)

	// ActivePostings is the size of the last persisted snapshot.
	ActivePostings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "active_postings",
			Help:      "Number of postings in the current snapshot",
		},
	)

	// HTTPRequests counts API requests.
	// Labels: route, code
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP API requests",
		},
		[]string{"route", "code"},
	)
)
