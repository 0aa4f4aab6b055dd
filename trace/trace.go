// Package trace implements the execution trace recorder: a thread-safe
// aggregate of everything that happened during a single run, suitable for
// replay debugging and for feeding the episodic-memory writer.
package trace

import (
	"encoding/json"
	"time"
)

// Config toggles what the recorder captures. DefaultConfig sets every
// boolean field to true, IncludeValues included (it is commonly turned
// off for privacy-sensitive deployments), and MaxInputOutputSize to 4096.
type Config struct {
	CaptureInputs       bool
	CaptureOutputs      bool
	CaptureErrors       bool
	CaptureStacktraces  bool
	CaptureEdges        bool
	CaptureMutations    bool
	IncludeValues       bool
	MaxInputOutputSize  int
}

// DefaultConfig returns the all-on configuration.
func DefaultConfig() Config {
	return Config{
		CaptureInputs:      true,
		CaptureOutputs:     true,
		CaptureErrors:      true,
		CaptureStacktraces: true,
		CaptureEdges:       true,
		CaptureMutations:   true,
		IncludeValues:      true,
		MaxInputOutputSize: 4096,
	}
}

// NodeExecutionRecord captures one node_enter/node_exit pair.
type NodeExecutionRecord struct {
	NodeID      string                 `json:"node_id"`
	Attempt     int                    `json:"attempt"`
	VisitNumber int                    `json:"visit_number"`
	EnteredAt   time.Time              `json:"entered_at"`
	ExitedAt    time.Time              `json:"exited_at,omitempty"`
	Inputs      map[string]interface{} `json:"inputs,omitempty"`
	InputsTruncated bool               `json:"inputs_truncated,omitempty"`
	Outputs     map[string]interface{} `json:"outputs,omitempty"`
	OutputsTruncated bool              `json:"outputs_truncated,omitempty"`
	Success     bool                   `json:"success"`
	Error       string                 `json:"error,omitempty"`
	Stacktrace  string                 `json:"stacktrace,omitempty"`
	TokensUsed  int                    `json:"tokens_used,omitempty"`
	LatencyMS   int64                  `json:"latency_ms,omitempty"`
	Verdict     string                 `json:"verdict,omitempty"`
}

// RetryRecord captures a single retry decision.
type RetryRecord struct {
	NodeID    string    `json:"node_id"`
	Attempt   int       `json:"attempt"`
	Reason    string    `json:"reason"`
	BackoffMS int64     `json:"backoff_ms"`
	At        time.Time `json:"at"`
}

// EdgeTraversalRecord captures one edge evaluation that was taken.
type EdgeTraversalRecord struct {
	Order            int       `json:"order"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	Condition        string    `json:"condition"`
	ConditionValue   bool      `json:"condition_value"`
	IsParallelBranch bool      `json:"is_parallel_branch"`
	BranchID         string    `json:"branch_id,omitempty"`
	At               time.Time `json:"at"`
}

// GraphMutationRecord captures a structural change to the graph mid-run.
type GraphMutationRecord struct {
	Kind   string    `json:"kind"` // add_node, remove_node, add_edge, remove_edge, change_entry_point
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// Summary is the final aggregate recorded at end_run.
type Summary struct {
	RunID             string   `json:"run_id"`
	GraphID           string   `json:"graph_id"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at"`
	DurationMS        int64    `json:"duration_ms"`
	TotalTokens       int      `json:"total_tokens"`
	NodePath          []string `json:"node_path"`
	FailedNodes       []string `json:"failed_nodes"`
	RetriedNodes      []string `json:"retried_nodes"`
	Outcome           string   `json:"outcome"`
}

// ExecutionTrace is the full per-run record produced by a Recorder.
type ExecutionTrace struct {
	RunID     string                `json:"run_id"`
	Summary   Summary               `json:"summary"`
	Nodes     []NodeExecutionRecord `json:"nodes"`
	Retries   []RetryRecord         `json:"retries"`
	Edges     []EdgeTraversalRecord `json:"edges"`
	Mutations []GraphMutationRecord `json:"mutations"`
}

// clone deep-copies t via a JSON round trip, which is sufficient here since
// every field is already JSON-serializable and the recorder itself is the
// only writer of these structures.
func (t ExecutionTrace) clone() ExecutionTrace {
	raw, err := json.Marshal(t)
	if err != nil {
		return t
	}
	var out ExecutionTrace
	if err := json.Unmarshal(raw, &out); err != nil {
		return t
	}
	return out
}

func truncate(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	return s[:max], true
}
