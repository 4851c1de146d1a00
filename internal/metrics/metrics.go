package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for botsight. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	eventsTracked     *prometheus.CounterVec
	destinationWrites *prometheus.CounterVec
	sentimentRequests *prometheus.CounterVec
	sentimentDuration prometheus.Histogram
	httpRequestsTotal *prometheus.CounterVec
	stepsDispatched   *prometheus.CounterVec

	registry *prometheus.Registry
}

// Sentiment outcomes.
const (
	SentimentScored  = "scored"
	SentimentSkipped = "skipped"
	SentimentFailed  = "failed"
)

// New creates a metrics instance on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		eventsTracked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsight_events_tracked_total",
				Help: "Total number of telemetry events submitted, by event kind",
			},
			[]string{"kind"},
		),

		destinationWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsight_destination_writes_total",
				Help: "Total number of destination deliveries by scheme and status",
			},
			[]string{"scheme", "status"},
		),

		sentimentRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsight_sentiment_requests_total",
				Help: "Sentiment enrichment attempts by outcome",
			},
			[]string{"outcome"},
		),

		sentimentDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "botsight_sentiment_duration_seconds",
				Help:    "Sentiment backend round-trip latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsight_http_requests_total",
				Help: "Total number of activity ingestion HTTP requests",
			},
			[]string{"endpoint", "status_code"},
		),

		stepsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsight_steps_dispatched_total",
				Help: "Activity source steps dispatched by kind and status",
			},
			[]string{"kind", "status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.eventsTracked,
		m.destinationWrites,
		m.sentimentRequests,
		m.sentimentDuration,
		m.httpRequestsTotal,
		m.stepsDispatched,
	)

	return m
}

// RecordEvent counts one submitted event. kind must come from a closed set
// since caller-chosen event names would grow the series without bound.
func (m *Metrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.eventsTracked.WithLabelValues(kind).Inc()
}

// RecordDelivery counts one destination write.
func (m *Metrics) RecordDelivery(scheme string, err error) {
	if m == nil {
		return
	}
	m.destinationWrites.WithLabelValues(scheme, status(err)).Inc()
}

// RecordSentiment counts an enrichment attempt. Duration is observed only
// when the backend was called.
func (m *Metrics) RecordSentiment(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.sentimentRequests.WithLabelValues(outcome).Inc()
	if outcome != SentimentSkipped {
		m.sentimentDuration.Observe(d.Seconds())
	}
}

// RecordHTTPRequest records an ingestion request
func (m *Metrics) RecordHTTPRequest(endpoint, statusCode string) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(endpoint, statusCode).Inc()
}

// RecordStep records one dispatched activity step
func (m *Metrics) RecordStep(kind string, err error) {
	if m == nil {
		return
	}
	m.stepsDispatched.WithLabelValues(kind, status(err)).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
