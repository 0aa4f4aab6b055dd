// Package episodic captures per-node execution outcomes as Episodes and
// makes them retrievable by similarity for downstream consumers: context
// injection, judge precedents, evolution-pipeline fitness evidence.
package episodic

import "time"

// Outcome classifies how a node exit resolved.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomePartial   Outcome = "partial"
	OutcomeFailure   Outcome = "failure"
	OutcomeRetried   Outcome = "retried"
	OutcomeEscalated Outcome = "escalated"
)

// Episode is the full record captured per node exit.
type Episode struct {
	EpisodeID string `json:"episode_id"`
	TraceID   string `json:"trace_id"`
	RunID     string `json:"run_id"`
	AgentID   string `json:"agent_id"`
	GoalID    string `json:"goal_id"`
	NodeID    string `json:"node_id"`
	NodeName  string `json:"node_name"`

	ContextText       string    `json:"context_text"`
	ContextEmbedding  []float64 `json:"context_embedding,omitempty"`
	ContextSummary    string    `json:"context_summary"`

	ActionDescription string                   `json:"action_description"`
	ActionDetails     map[string]interface{}   `json:"action_details,omitempty"`
	ToolCalls         []map[string]interface{} `json:"tool_calls,omitempty"`

	Outcome            Outcome                `json:"outcome"`
	OutcomeDescription string                 `json:"outcome_description"`
	ResultSummary      string                 `json:"result_summary"`
	ResultData         map[string]interface{} `json:"result_data,omitempty"`

	JudgeVerdict    string  `json:"judge_verdict,omitempty"`
	JudgeConfidence float64 `json:"judge_confidence,omitempty"`
	JudgeFeedback   string  `json:"judge_feedback,omitempty"`

	TokensUsed int       `json:"tokens_used"`
	LatencyMS  int64     `json:"latency_ms"`
	Attempt    int       `json:"attempt"`
	Timestamp  time.Time `json:"timestamp"`
}
