// Package metrics provides Prometheus metrics collection for the sales
// forecast API. Metrics cover HTTP traffic, model scoring, and the audit
// log write path, and are exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the forecast service.
type Metrics struct {
	RequestsTotal      prometheus.Counter   // Total HTTP requests served
	PredictionsTotal   prometheus.Counter   // Total predictions returned (one per request row)
	PredictionFailures prometheus.Counter   // Total failed scoring calls
	NotReadyTotal      prometheus.Counter   // Requests rejected because the model was not loaded
	ScoringLatency     prometheus.Histogram // Model scoring latency in seconds
	BatchSize          prometheus.Histogram // Distribution of scoring batch sizes
	PredictionValues   prometheus.Histogram // Distribution of predicted sales values
	AuditWriteFailures prometheus.Counter   // Audit log writes that failed and were discarded
	ModelReady         prometheus.Gauge     // 1 once the model artifact finished loading
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for
// testing, where the global registry would reject duplicate registration).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		}),
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions returned",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed scoring calls",
		}),
		NotReadyTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_not_ready_total",
			Help: "Requests rejected because the model was not loaded yet",
		}),
		ScoringLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoring_latency_seconds",
			Help:    "Model scoring latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoring_batch_size",
			Help:    "Distribution of scoring batch sizes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		PredictionValues: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_sales_values",
			Help:    "Distribution of predicted sales values",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit log writes that failed and were discarded",
		}),
		ModelReady: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_ready",
			Help: "1 once the model artifact finished loading",
		}),
	}
}

// ScoringObserver is the subset of metrics the scorer needs. Keeping it
// as an interface lets the scorer run without metrics in tests.
type ScoringObserver interface {
	PredictionsInc(n int)
	FailuresInc()
	LatencyObserve(seconds float64)
	BatchObserve(size int)
	ValueObserve(v float64)
	ReadySet(ready bool)
}

// PredictionsInc implements ScoringObserver.
func (m *Metrics) PredictionsInc(n int) { m.PredictionsTotal.Add(float64(n)) }

// FailuresInc implements ScoringObserver.
func (m *Metrics) FailuresInc() { m.PredictionFailures.Inc() }

// LatencyObserve implements ScoringObserver.
func (m *Metrics) LatencyObserve(seconds float64) { m.ScoringLatency.Observe(seconds) }

// BatchObserve implements ScoringObserver.
func (m *Metrics) BatchObserve(size int) { m.BatchSize.Observe(float64(size)) }

// ValueObserve implements ScoringObserver.
func (m *Metrics) ValueObserve(v float64) { m.PredictionValues.Observe(v) }

// AuditFailureInc records a discarded audit write.
func (m *Metrics) AuditFailureInc() { m.AuditWriteFailures.Inc() }

// ReadySet implements ScoringObserver.
func (m *Metrics) ReadySet(ready bool) {
	if ready {
		m.ModelReady.Set(1)
	} else {
		m.ModelReady.Set(0)
	}
}
