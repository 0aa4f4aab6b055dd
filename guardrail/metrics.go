package guardrail

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics publishes Prometheus counters for pipeline decisions. A nil
// *Metrics is a valid receiver for every method here, so Engine works
// unmodified when no metrics are configured.
type Metrics struct {
	decisions *prometheus.CounterVec
	riskLevel *prometheus.CounterVec
	approvals *prometheus.CounterVec
}

// NewMetrics registers the "agentgraph_guardrail" namespaced pipeline
// metrics with registry. A nil registry uses prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Subsystem: "guardrail",
			Name:      "decisions_total",
			Help:      "Tool-call pipeline decisions by tool and outcome",
		}, []string{"tool_name", "decision"}),
		riskLevel: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Subsystem: "guardrail",
			Name:      "risk_level_total",
			Help:      "Assessed risk level per tool call",
		}, []string{"tool_name", "risk_level"}),
		approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Subsystem: "guardrail",
			Name:      "approvals_total",
			Help:      "Approval gate outcomes by tool and result",
		}, []string{"tool_name", "outcome"}),
	}
}

func (m *Metrics) recordDecision(toolName, decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(toolName, decision).Inc()
}

func (m *Metrics) recordRisk(toolName string, level RiskLevel) {
	if m == nil {
		return
	}
	m.riskLevel.WithLabelValues(toolName, string(level)).Inc()
}

func (m *Metrics) recordApproval(toolName, outcome string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(toolName, outcome).Inc()
}
