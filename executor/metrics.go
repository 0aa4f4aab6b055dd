package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics publishes Prometheus counters and histograms for node
// execution. A nil *Metrics is a valid receiver for every method here,
// so Config.Metrics can be left unset without guarding every call site.
type Metrics struct {
	inflightRuns prometheus.Gauge
	stepLatency  *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	nodeResults  *prometheus.CounterVec
}

// NewMetrics registers the "agentgraph" namespaced node-execution
// metrics with registry. A nil registry uses prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		inflightRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentgraph",
			Name:      "inflight_runs",
			Help:      "Number of Run calls currently executing",
		}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentgraph",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"run_id", "node_id", "status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "retries_total",
			Help:      "Cumulative node retry attempts",
		}, []string{"run_id", "node_id", "reason"}),
		nodeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "node_results_total",
			Help:      "Terminal per-attempt node outcomes",
		}, []string{"run_id", "node_id", "status"}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.inflightRuns.Inc()
}

func (m *Metrics) runEnded() {
	if m == nil {
		return
	}
	m.inflightRuns.Dec()
}

func (m *Metrics) recordStep(runID, nodeID string, latency time.Duration, success bool) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(runID, nodeID, statusLabel(success)).Observe(float64(latency.Milliseconds()))
	m.nodeResults.WithLabelValues(runID, nodeID, statusLabel(success)).Inc()
}

func (m *Metrics) recordRetry(runID, nodeID, reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(runID, nodeID, reason).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
