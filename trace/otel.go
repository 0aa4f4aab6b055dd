package trace

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OtelEmitter mirrors Recorder's node_enter/node_exit boundaries as
// OpenTelemetry spans, so a run shows up in whatever backend the
// caller's TracerProvider exports to. It tracks open spans itself since
// StartNode/CompleteNode are the only boundary Recorder exposes.
type OtelEmitter struct {
	tracer oteltrace.Tracer
	runID  string

	mu    sync.Mutex
	spans map[string]oteltrace.Span
}

// NewOtelEmitter wraps tracer (typically otel.Tracer("agentgraph")) for
// runID.
func NewOtelEmitter(tracer oteltrace.Tracer, runID string) *OtelEmitter {
	return &OtelEmitter{tracer: tracer, runID: runID, spans: make(map[string]oteltrace.Span)}
}

func otelSpanKey(nodeID string, attempt int) string {
	return fmt.Sprintf("%s/%d", nodeID, attempt)
}

func (o *OtelEmitter) startNode(nodeID string, attempt int) {
	if o == nil {
		return
	}
	_, span := o.tracer.Start(context.Background(), nodeID)
	span.SetAttributes(
		attribute.String("agentgraph.run_id", o.runID),
		attribute.String("agentgraph.node_id", nodeID),
		attribute.Int("agentgraph.attempt", attempt),
	)
	o.mu.Lock()
	o.spans[otelSpanKey(nodeID, attempt)] = span
	o.mu.Unlock()
}

func (o *OtelEmitter) completeNode(nodeID string, attempt int, success bool, errMsg string, latencyMS int64, tokens int) {
	if o == nil {
		return
	}
	key := otelSpanKey(nodeID, attempt)
	o.mu.Lock()
	span, ok := o.spans[key]
	delete(o.spans, key)
	o.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.Int64("agentgraph.latency_ms", latencyMS),
		attribute.Int("agentgraph.tokens_used", tokens),
	)
	if !success {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
