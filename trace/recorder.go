package trace

import (
	"sync"
	"time"
)

// Recorder owns an ExecutionTrace for a single run and is safe for
// concurrent use: every mutator acquires the same internal lock, matching
// a single internal lock design, so the recorder can be invoked from
// parallel branch goroutines without each caller coordinating locking
// itself.
type Recorder struct {
	mu    sync.Mutex
	cfg   Config
	trace ExecutionTrace
	visits map[string]int
	otel   *OtelEmitter
}

// WithOtel attaches an OpenTelemetry span emitter and returns r, so it
// chains onto New. A nil emitter disables span emission.
func (r *Recorder) WithOtel(o *OtelEmitter) *Recorder {
	r.otel = o
	return r
}

// New creates a Recorder for runID/graphID using cfg.
func New(runID, graphID string, cfg Config) *Recorder {
	return &Recorder{
		cfg: cfg,
		trace: ExecutionTrace{
			RunID: runID,
			Summary: Summary{
				RunID:   runID,
				GraphID: graphID,
			},
		},
		visits: make(map[string]int),
	}
}

// StartRun stamps the run's start time.
func (r *Recorder) StartRun(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Summary.StartedAt = now
}

// EndRun stamps the run's end time and outcome, and aggregates totals from
// the recorded node executions.
func (r *Recorder) EndRun(now time.Time, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Summary.EndedAt = now
	r.trace.Summary.Outcome = outcome
	if !r.trace.Summary.StartedAt.IsZero() {
		r.trace.Summary.DurationMS = now.Sub(r.trace.Summary.StartedAt).Milliseconds()
	}

	var total int
	var path, failed []string
	for _, n := range r.trace.Nodes {
		total += n.TokensUsed
		path = append(path, n.NodeID)
		if !n.Success {
			failed = append(failed, n.NodeID)
		}
	}
	var retried []string
	seen := make(map[string]bool)
	for _, rr := range r.trace.Retries {
		if !seen[rr.NodeID] {
			seen[rr.NodeID] = true
			retried = append(retried, rr.NodeID)
		}
	}
	r.trace.Summary.TotalTokens = total
	r.trace.Summary.NodePath = path
	r.trace.Summary.FailedNodes = failed
	r.trace.Summary.RetriedNodes = retried
}

// StartNode records a node_enter boundary and returns the 1-based visit
// number for this node within the run, so callers can distinguish a fresh
// entry from a revisit.
func (r *Recorder) StartNode(nodeID string, attempt int, inputs map[string]interface{}, now time.Time) int {
	r.otel.startNode(nodeID, attempt)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.visits[nodeID]++
	visit := r.visits[nodeID]

	rec := NodeExecutionRecord{
		NodeID:      nodeID,
		Attempt:     attempt,
		VisitNumber: visit,
		EnteredAt:   now,
	}
	if r.cfg.CaptureInputs && r.cfg.IncludeValues {
		rec.Inputs, rec.InputsTruncated = truncateMap(inputs, r.cfg.MaxInputOutputSize)
	}
	r.trace.Nodes = append(r.trace.Nodes, rec)
	return visit
}

// CompleteNode records a node_exit boundary against the most recent
// StartNode call for nodeID (matched by attempt number).
func (r *Recorder) CompleteNode(nodeID string, attempt int, outputs map[string]interface{}, success bool, errMsg, stacktrace string, tokens int, latencyMS int64, verdict string, now time.Time) {
	r.otel.completeNode(nodeID, attempt, success, errMsg, latencyMS, tokens)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.trace.Nodes) - 1; i >= 0; i-- {
		n := &r.trace.Nodes[i]
		if n.NodeID != nodeID || n.Attempt != attempt {
			continue
		}
		n.ExitedAt = now
		n.Success = success
		n.TokensUsed = tokens
		n.LatencyMS = latencyMS
		n.Verdict = verdict
		if r.cfg.CaptureOutputs && r.cfg.IncludeValues {
			n.Outputs, n.OutputsTruncated = truncateMap(outputs, r.cfg.MaxInputOutputSize)
		}
		if r.cfg.CaptureErrors {
			n.Error = errMsg
			if r.cfg.CaptureStacktraces {
				n.Stacktrace = stacktrace
			}
		}
		return
	}
}

// RecordRetry appends a retry decision to the trace.
func (r *Recorder) RecordRetry(nodeID string, attempt int, reason string, backoff time.Duration, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Retries = append(r.trace.Retries, RetryRecord{
		NodeID:    nodeID,
		Attempt:   attempt,
		Reason:    reason,
		BackoffMS: backoff.Milliseconds(),
		At:        now,
	})
}

// RecordEdgeTraversal appends an edge that was actually taken.
func (r *Recorder) RecordEdgeTraversal(from, to, condition string, conditionValue, isParallelBranch bool, branchID string, now time.Time) {
	if !r.cfg.CaptureEdges {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Edges = append(r.trace.Edges, EdgeTraversalRecord{
		Order:            len(r.trace.Edges),
		From:             from,
		To:               to,
		Condition:        condition,
		ConditionValue:   conditionValue,
		IsParallelBranch: isParallelBranch,
		BranchID:         branchID,
		At:               now,
	})
}

// RecordGraphMutation appends a dynamic graph modification.
func (r *Recorder) RecordGraphMutation(kind, detail string, now time.Time) {
	if !r.cfg.CaptureMutations {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Mutations = append(r.trace.Mutations, GraphMutationRecord{
		Kind:   kind,
		Detail: detail,
		At:     now,
	})
}

// VisitCount returns how many times nodeID has been entered so far.
func (r *Recorder) VisitCount(nodeID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visits[nodeID]
}

// GetTrace returns a deep copy of the accumulated trace, safe for a caller
// to retain or mutate without affecting the recorder's internal state.
func (r *Recorder) GetTrace() ExecutionTrace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trace.clone()
}

func truncateMap(m map[string]interface{}, max int) (map[string]interface{}, bool) {
	if m == nil {
		return nil, false
	}
	out := make(map[string]interface{}, len(m))
	truncated := false
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		t, wasTruncated := truncate(s, max)
		out[k] = t
		truncated = truncated || wasTruncated
	}
	return out, truncated
}
