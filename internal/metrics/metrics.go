package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Session outcomes used as the "outcome" label
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Metrics holds Prometheus counters for the export pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	framesComposed  prometheus.Counter
	compositeErrors prometheus.Counter
	encodedBytes    prometheus.Counter
	sessions        *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	activeSessions  prometheus.Gauge
}

// New creates and registers Prometheus metrics for the exporter.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	framesComposed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mockup_frames_composed_total",
		Help: "Total number of composition frames drawn",
	})
	compositeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mockup_composite_errors_total",
		Help: "Total number of ticks whose media overlay could not be drawn",
	})
	encodedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mockup_encoded_bytes_total",
		Help: "Total number of encoded bytes emitted by encoder sinks",
	})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mockup_export_sessions_total",
		Help: "Export sessions by outcome",
	}, []string{"outcome"})
	sessionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mockup_export_session_seconds",
		Help:    "Wall time from start request to idle or failed",
		Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 60},
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mockup_export_sessions_active",
		Help: "Export sessions currently holding the session lock",
	})

	registry.MustRegister(
		framesComposed,
		compositeErrors,
		encodedBytes,
		sessions,
		sessionDuration,
		activeSessions,
	)

	return &Metrics{
		registry:        registry,
		framesComposed:  framesComposed,
		compositeErrors: compositeErrors,
		encodedBytes:    encodedBytes,
		sessions:        sessions,
		sessionDuration: sessionDuration,
		activeSessions:  activeSessions,
	}
}

// IncFramesComposed increments the composed frame counter.
func (m *Metrics) IncFramesComposed() {
	if m == nil {
		return
	}
	m.framesComposed.Inc()
}

// IncCompositeErrors increments the compositing error counter.
func (m *Metrics) IncCompositeErrors() {
	if m == nil {
		return
	}
	m.compositeErrors.Inc()
}

// AddEncodedBytes adds n to the encoded byte counter.
func (m *Metrics) AddEncodedBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.encodedBytes.Add(float64(n))
}

// SessionStarted marks a session as holding the lock.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionEnded records the outcome and duration of a session.
func (m *Metrics) SessionEnded(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.sessions.WithLabelValues(outcome).Inc()
	m.sessionDuration.Observe(seconds)
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
