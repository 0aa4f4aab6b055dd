package executor

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/agentgraph/agentgraph/agerrors"
	"github.com/agentgraph/agentgraph/episodic"
	"github.com/agentgraph/agentgraph/eventbus"
	"github.com/agentgraph/agentgraph/executor/expr"
	"github.com/agentgraph/agentgraph/graphspec"
	"github.com/agentgraph/agentgraph/guardrail"
	"github.com/agentgraph/agentgraph/health"
	"github.com/agentgraph/agentgraph/llm"
	"github.com/agentgraph/agentgraph/memory"
	"github.com/agentgraph/agentgraph/session"
	"github.com/agentgraph/agentgraph/tool"
	"github.com/agentgraph/agentgraph/trace"
)

// Config bundles every collaborator Executor needs. Fields beyond Graph
// and Memory may be nil, in which case the corresponding feature is a
// no-op: a nil Provider means llm_* nodes fail with LLMError, a nil
// Bus means no events are published, and so on.
type Config struct {
	Graph     *graphspec.GraphSpec
	Handlers  *Registry
	Memory    *memory.SharedMemory
	Trace     *trace.Recorder
	Guardrail *guardrail.Engine
	Tools     *tool.Registry
	Provider  llm.Provider
	Episodes  *episodic.Writer
	Bus       *eventbus.Bus
	Sessions  session.Store

	RunID   string
	AgentID string
	GoalID  string

	// Health receives a RecordStep call after every node attempt, whether
	// it succeeds or fails. Nil disables liveness tracking.
	Health *health.Reporter

	// TraceArchive, if set, receives the run's finished ExecutionTrace
	// once Run returns, so it survives the process. Nil disables
	// archiving; Trace itself still records in-memory either way.
	TraceArchive *trace.SQLiteArchive

	// Metrics, if set, receives Prometheus observations for every step
	// and for run concurrency. Nil disables metrics collection.
	Metrics *Metrics

	// Cost, if set, accumulates USD spend for every llm_* node's
	// completions. Nil disables cost tracking.
	Cost *llm.CostTracker

	Now func() time.Time
	RNG *rand.Rand
}

// Executor drives Config.Graph to completion per its node-by-node step
// loop.
type Executor struct {
	cfg    Config
	now    func() time.Time
	rng    *rand.Rand
	visits map[string]int
}

// New constructs an Executor. Now defaults to time.Now; RNG defaults to
// a non-deterministic source (pass one seeded from RunID for replayable
// backoff jitter).
func New(cfg Config) *Executor {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}
	return &Executor{cfg: cfg, now: now, rng: rng, visits: make(map[string]int)}
}

// Outcome is the terminal result of a Run call.
type Outcome struct {
	Success bool
	Output  map[string]interface{}
	Error   string
	Paused  bool
	PausedAt string
}

// Run drives the graph to completion (or pause) starting at startNode,
// publishing trace events, episodes, and session state along the way.
func (e *Executor) Run(ctx context.Context, startNode string, st *session.State) (Outcome, error) {
	e.cfg.Metrics.runStarted()
	defer e.cfg.Metrics.runEnded()

	currentNode := startNode
	if currentNode == "" {
		currentNode = e.cfg.Graph.EntryNode
	}

	steps := 0
	for {
		if max := e.cfg.Graph.LoopConfig.MaxIterations; max > 0 && steps >= max {
			return e.fail(st, agerrors.New(agerrors.LoopBoundExceeded, "max_iterations exceeded")), nil
		}
		steps++

		spec, ok := e.cfg.Graph.Node(currentNode)
		if !ok {
			return e.fail(st, agerrors.New(agerrors.InvalidSpec, fmt.Sprintf("unknown node %q", currentNode))), nil
		}

		outcome, nextErr := e.step(ctx, spec, st)
		if nextErr != nil {
			var aerr *agerrors.Error
			if !asAgError(nextErr, &aerr) {
				aerr = agerrors.Wrap(agerrors.LLMError, nextErr.Error(), nextErr)
			}
			return e.fail(st, aerr), nil
		}

		next, done, runOutcome, edgeErr := e.selectNext(spec, outcome)
		if edgeErr != nil {
			return e.fail(st, edgeErr), nil
		}
		if runOutcome.Paused {
			return e.pause(st, runOutcome.PausedAt), nil
		}
		if done {
			return e.finish(st, runOutcome), nil
		}
		currentNode = next
	}
}

// pause transitions the session to paused at nodeID and persists it so
// a later process can resume from here.
func (e *Executor) pause(st *session.State, nodeID string) Outcome {
	if st != nil {
		st.CurrentNodeID = nodeID
		st.Touch(session.StatusPaused, e.now())
		e.persistSession(st)
	}
	return Outcome{Paused: true, PausedAt: nodeID}
}

func asAgError(err error, out **agerrors.Error) bool {
	if e, ok := err.(*agerrors.Error); ok {
		*out = e
		return true
	}
	return false
}

// nodeOutcome is the internal success/failure signal one step produced,
// feeding both edge selection (on_success/on_failure) and the episode
// writer's outcome classification.
type nodeOutcome struct {
	success   bool
	attempt   int
	verdict   string
	tokens    int
	latencyMS int64
	toolCalls []map[string]interface{}
}

func (e *Executor) fail(st *session.State, err *agerrors.Error) Outcome {
	if st != nil {
		st.Result = session.Result{Success: false, Error: err.Error()}
		st.Touch(session.StatusFailed, e.now())
		e.persistSession(st)
	}
	if e.cfg.Trace != nil {
		e.cfg.Trace.EndRun(e.now(), "failed")
		e.archiveTrace()
	}
	return Outcome{Success: false, Error: err.Error()}
}

func (e *Executor) finish(st *session.State, out Outcome) Outcome {
	if st != nil {
		st.Result = session.Result{Success: out.Success, Output: out.Output, Error: out.Error}
		status := session.StatusCompleted
		if !out.Success {
			status = session.StatusFailed
		}
		st.Touch(status, e.now())
		e.persistSession(st)
	}
	if e.cfg.Trace != nil {
		outcomeLabel := "failed"
		if out.Success {
			outcomeLabel = "success"
		}
		e.cfg.Trace.EndRun(e.now(), outcomeLabel)
		e.archiveTrace()
	}
	return out
}

func (e *Executor) archiveTrace() {
	if e.cfg.TraceArchive == nil {
		return
	}
	_ = e.cfg.TraceArchive.Store(e.cfg.Trace.GetTrace())
}

func (e *Executor) persistSession(st *session.State) {
	if e.cfg.Sessions == nil || st == nil {
		return
	}
	_ = e.cfg.Sessions.Save(st)
}

func (e *Executor) publish(topic, nodeID string, meta map[string]interface{}) {
	if e.cfg.Bus == nil {
		return
	}
	e.cfg.Bus.Publish(eventbus.Event{Topic: topic, RunID: e.cfg.RunID, NodeID: nodeID, At: e.now(), Meta: meta})
}

// selectNext evaluates currentNode's outgoing edges against outcome,
// returning the next node to enter, or done=true with
// the run's terminal Outcome if currentNode was terminal / had no
// eligible edge.
func (e *Executor) selectNext(spec graphspec.NodeSpec, outcome nodeOutcome) (next string, done bool, runOutcome Outcome, err *agerrors.Error) {
	edges := e.cfg.Graph.OutgoingEdges(spec.ID)

	lookup := func(key string) (interface{}, bool) {
		return e.cfg.Memory.Read(key)
	}

	loopBoundHit := false
	for _, edge := range edges {
		eligible := false
		var conditionValue bool
		switch edge.Condition {
		case graphspec.EdgeAlways:
			eligible = true
		case graphspec.EdgeOnSuccess:
			eligible = outcome.success
		case graphspec.EdgeOnFailure:
			eligible = !outcome.success
		case graphspec.EdgeConditional:
			v, evalErr := expr.Eval(edge.ConditionExpr, lookup)
			if evalErr == nil {
				conditionValue = v
				eligible = v
			}
		}
		if !eligible {
			continue
		}

		target := edge.To
		if edge.Priority < 0 {
			if max := e.targetNodeMaxVisits(target); max > 0 && e.visits[target] >= max {
				loopBoundHit = true
				continue
			}
		}

		if e.cfg.Trace != nil {
			e.cfg.Trace.RecordEdgeTraversal(spec.ID, target, string(edge.Condition), conditionValue, edge.IsParallelBranch, "", e.now())
		}
		return target, false, Outcome{}, nil
	}

	if loopBoundHit {
		return "", true, Outcome{}, agerrors.New(agerrors.LoopBoundExceeded, fmt.Sprintf("node %q's only eligible edge loops back to a node at max_node_visits", spec.ID))
	}
	if e.cfg.Graph.IsTerminal(spec.ID) {
		return "", true, Outcome{Success: outcome.success, Output: e.cfg.Memory.ReadAll()}, nil
	}
	if e.cfg.Graph.IsPause(spec.ID) {
		return "", false, Outcome{Paused: true, PausedAt: spec.ID}, nil
	}
	return "", true, Outcome{}, agerrors.New(agerrors.NoEligibleEdge, fmt.Sprintf("no eligible outgoing edge from %q", spec.ID))
}

func (e *Executor) targetNodeMaxVisits(nodeID string) int {
	if n, ok := e.cfg.Graph.Node(nodeID); ok {
		return n.MaxNodeVisits
	}
	return 0
}
