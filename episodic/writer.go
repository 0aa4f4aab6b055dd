package episodic

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Embedder produces a vector representation of text. Errors are expected
// in normal operation (provider outage, rate limit) and must degrade
// gracefully: a Writer that cannot embed a context still writes the
// episode, just without ContextEmbedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// NodeOutcome is the input a node exit reports to Writer, ahead of
// classification into an Outcome.
type NodeOutcome struct {
	Success         bool
	JudgeVerdict    string
	JudgeConfidence float64
	JudgeFeedback   string
	Attempt         int
	Escalated       bool
	Description     string
	Details         map[string]interface{}
	ToolCalls       []map[string]interface{}
	ResultSummary   string
	ResultData      map[string]interface{}
	TokensUsed      int
	LatencyMS       int64
}

// NodeContext identifies where in a run an episode is being written, and
// supplies the raw material Writer uses to build ContextText.
type NodeContext struct {
	TraceID        string
	RunID          string
	AgentID        string
	GoalID         string
	NodeID         string
	NodeName       string
	Inputs         map[string]interface{}
	SystemPrompt   string
}

// Writer builds and persists one Episode per node exit.
type Writer struct {
	store    *Store
	embedder Embedder
}

// NewWriter returns a Writer that persists through store, optionally
// embedding context text via embedder (nil disables embedding, episodes
// are still written, just not retrievable by similarity).
func NewWriter(store *Store, embedder Embedder) *Writer {
	return &Writer{store: store, embedder: embedder}
}

// Write classifies outcome, builds the episode's context text, requests
// an embedding (best-effort, never blocking a failure), and enqueues the
// result on the underlying Store.
func (w *Writer) Write(ctx context.Context, nc NodeContext, outcome NodeOutcome, at time.Time) {
	ep := Episode{
		EpisodeID:          NewID(),
		TraceID:            nc.TraceID,
		RunID:              nc.RunID,
		AgentID:            nc.AgentID,
		GoalID:             nc.GoalID,
		NodeID:             nc.NodeID,
		NodeName:           nc.NodeName,
		ContextText:        buildContextText(nc),
		ContextSummary:     summarize(outcome.ResultSummary, 200),
		ActionDescription:  outcome.Description,
		ActionDetails:      outcome.Details,
		ToolCalls:          outcome.ToolCalls,
		Outcome:            classify(outcome),
		OutcomeDescription: outcomeDescription(outcome),
		ResultSummary:      outcome.ResultSummary,
		ResultData:         outcome.ResultData,
		JudgeVerdict:       outcome.JudgeVerdict,
		JudgeConfidence:    outcome.JudgeConfidence,
		JudgeFeedback:      outcome.JudgeFeedback,
		TokensUsed:         outcome.TokensUsed,
		LatencyMS:          outcome.LatencyMS,
		Attempt:            outcome.Attempt,
		Timestamp:          at,
	}

	if w.embedder != nil {
		if emb, err := w.embedder.Embed(ctx, ep.ContextText); err == nil {
			ep.ContextEmbedding = emb
		}
		// A failed embed degrades to a context-less episode; it is still
		// written so the outcome history is never lost over an
		// embedding-provider hiccup.
	}

	w.store.Append(ep)
}

// classify derives an Outcome from the raw signals a node reports. Judge
// verdicts take precedence over the bare success flag when present,
// since a node can "succeed" mechanically yet be judged a partial match.
func classify(o NodeOutcome) Outcome {
	if o.Escalated {
		return OutcomeEscalated
	}
	if o.Attempt > 1 && o.Success {
		return OutcomeRetried
	}
	switch strings.ToLower(o.JudgeVerdict) {
	case "pass", "success":
		return OutcomeSuccess
	case "partial":
		return OutcomePartial
	case "fail", "failure":
		return OutcomeFailure
	}
	if o.Success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

func outcomeDescription(o NodeOutcome) string {
	if o.JudgeFeedback != "" {
		return o.JudgeFeedback
	}
	if o.Success {
		return "completed"
	}
	return "did not complete successfully"
}

// buildContextText assembles the text an embedder turns into
// ContextEmbedding: agent/goal identity, the shape of the node's inputs,
// and a prefix of the last system prompt the node's LLM call used.
func buildContextText(nc NodeContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "agent=%s goal=%s node=%s", nc.AgentID, nc.GoalID, nc.NodeName)
	if len(nc.Inputs) > 0 {
		b.WriteString(" inputs=")
		first := true
		for k, v := range nc.Inputs {
			if !first {
				b.WriteString(",")
			}
			first = false
			fmt.Fprintf(&b, "%s:%T", k, v)
		}
	}
	if nc.SystemPrompt != "" {
		b.WriteString(" prompt=")
		b.WriteString(summarize(nc.SystemPrompt, 160))
	}
	return b.String()
}

func summarize(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
