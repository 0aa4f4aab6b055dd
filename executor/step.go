package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentgraph/agentgraph/agerrors"
	"github.com/agentgraph/agentgraph/episodic"
	"github.com/agentgraph/agentgraph/graphspec"
	"github.com/agentgraph/agentgraph/llm"
	"github.com/agentgraph/agentgraph/memory"
	"github.com/agentgraph/agentgraph/session"
)

type keySnapshot struct {
	value   interface{}
	present bool
}

func (e *Executor) snapshotKeys(keys []string) map[string]keySnapshot {
	snap := make(map[string]keySnapshot, len(keys))
	for _, k := range keys {
		v, ok := e.cfg.Memory.Read(k)
		snap[k] = keySnapshot{value: v, present: ok}
	}
	return snap
}

func (e *Executor) restoreSnapshot(snap map[string]keySnapshot) {
	for k, s := range snap {
		if s.present {
			_ = e.cfg.Memory.Write(k, s.value, false)
		} else {
			e.cfg.Memory.Delete(k)
		}
	}
}

func (e *Executor) missingOutputs(spec graphspec.NodeSpec) []string {
	var missing []string
	for _, k := range spec.RequiredOutputKeys() {
		if _, ok := e.cfg.Memory.Read(k); !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

type dispatchResult struct {
	tokens    int
	toolCalls []map[string]interface{}
	verdict   string
}

// step implements the per-node execution loop: visit-limit enforcement,
// trace enter/exit boundaries, dispatch by node_type,
// output-contract validation, retry with backoff, and episode/event
// recording.
func (e *Executor) step(ctx context.Context, spec graphspec.NodeSpec, st *session.State) (nodeOutcome, error) {
	if spec.MaxNodeVisits > 0 && e.visits[spec.ID] >= spec.MaxNodeVisits {
		return nodeOutcome{}, agerrors.New(agerrors.NodeVisitLimitReached, "node visit limit reached").WithNode(spec.ID)
	}
	e.visits[spec.ID]++

	view := e.cfg.Memory.WithPermissions(spec.InputKeys, spec.OutputKeys)
	if e.cfg.Guardrail != nil {
		var sessionID string
		if st != nil {
			sessionID = st.SessionID
		}
		view = view.WithIsolation(e.cfg.Guardrail.IsolationPolicy(), sessionID)
	}
	inputs := view.ReadAll()

	var (
		attempt           = 0
		retryAttempts     = 0
		validationRetries = 0
		lastErr           *agerrors.Error
		result            dispatchResult
	)

	for {
		attempt++
		if e.cfg.Trace != nil {
			e.cfg.Trace.StartNode(spec.ID, attempt, inputs, e.now())
		}
		if attempt > 1 {
			e.publish("node_started", spec.ID, map[string]interface{}{"attempt": attempt})
		} else {
			e.publish("node_started", spec.ID, nil)
		}

		snapshot := e.snapshotKeys(spec.OutputKeys)
		start := e.now()

		dres, execErr := e.dispatchWithTimeout(ctx, spec, view, st, attempt)
		latency := e.now().Sub(start).Milliseconds()
		result = dres

		success := execErr == nil
		var aerr *agerrors.Error
		if !success {
			if !asAgError(execErr, &aerr) {
				aerr = agerrors.Wrap(agerrors.LLMError, execErr.Error(), execErr).WithNode(spec.ID)
			}
		} else if missing := e.missingOutputs(spec); len(missing) > 0 {
			success = false
			aerr = agerrors.New(agerrors.OutputContractViolation, fmt.Sprintf("missing required outputs: %v", missing)).WithNode(spec.ID)
		}

		if !success {
			e.restoreSnapshot(snapshot)
		}

		errMsg := ""
		if aerr != nil {
			errMsg = aerr.Error()
		}
		if e.cfg.Trace != nil {
			e.cfg.Trace.CompleteNode(spec.ID, attempt, view.ReadAll(), success, errMsg, "", result.tokens, latency, result.verdict, e.now())
		}
		if e.cfg.Health != nil {
			e.cfg.Health.RecordStep(success, e.now())
		}
		e.cfg.Metrics.recordStep(e.cfg.RunID, spec.ID, time.Duration(latency)*time.Millisecond, success)

		if success {
			e.writeEpisode(spec, st, inputs, result, true, attempt, aerr, latency)
			e.publish("node_completed", spec.ID, map[string]interface{}{"success": true})
			return nodeOutcome{success: true, attempt: attempt, verdict: result.verdict, tokens: result.tokens, latencyMS: latency, toolCalls: result.toolCalls}, nil
		}

		lastErr = aerr

		if aerr.Kind == agerrors.OutputContractViolation && validationRetries < spec.MaxValidationRetries {
			validationRetries++
			e.sleepBackoff(ctx, validationRetries)
			continue
		}
		if spec.RetriesOn(string(aerr.Kind)) && retryAttempts < spec.MaxRetries {
			retryAttempts++
			if e.cfg.Trace != nil {
				e.cfg.Trace.RecordRetry(spec.ID, attempt, aerr.Error(), computeBackoff(retryAttempts-1, time.Second, 30*time.Second, e.rng), e.now())
			}
			e.cfg.Metrics.recordRetry(e.cfg.RunID, spec.ID, string(aerr.Kind))
			e.sleepBackoff(ctx, retryAttempts)
			continue
		}

		e.writeEpisode(spec, st, inputs, result, false, attempt, aerr, latency)
		e.publish("node_completed", spec.ID, map[string]interface{}{"success": false, "error": lastErr.Error()})
		return nodeOutcome{success: false, attempt: attempt, tokens: result.tokens, latencyMS: latency}, lastErr
	}
}

func (e *Executor) sleepBackoff(ctx context.Context, attempt int) {
	delay := computeBackoff(attempt-1, time.Second, 30*time.Second, e.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (e *Executor) writeEpisode(spec graphspec.NodeSpec, st *session.State, inputs map[string]interface{}, result dispatchResult, success bool, attempt int, aerr *agerrors.Error, latencyMS int64) {
	if e.cfg.Episodes == nil {
		return
	}
	errMsg := ""
	if aerr != nil {
		errMsg = aerr.Error()
	}
	sessionID := ""
	if st != nil {
		sessionID = st.SessionID
	}
	e.cfg.Episodes.Write(context.Background(), episodic.NodeContext{
		TraceID:      e.cfg.RunID,
		RunID:        e.cfg.RunID,
		AgentID:      e.cfg.AgentID,
		GoalID:       e.cfg.GoalID,
		NodeID:       spec.ID,
		NodeName:     spec.Name,
		Inputs:       inputs,
		SystemPrompt: spec.SystemPrompt,
	}, episodic.NodeOutcome{
		Success:       success,
		Attempt:       attempt,
		Description:   fmt.Sprintf("executed node %s (%s)", spec.Name, sessionID),
		ToolCalls:     result.toolCalls,
		ResultSummary: errMsg,
		TokensUsed:    result.tokens,
		LatencyMS:     latencyMS,
	}, e.now())
}

// dispatchWithTimeout bounds dispatch to spec.TimeoutMS, if set: when
// dispatch returns an error after the deadline has passed, that error is
// replaced by an agerrors.Timeout error. The deadline reaches the handler
// only through ctx; a handler that ignores ctx is not interrupted.
func (e *Executor) dispatchWithTimeout(ctx context.Context, spec graphspec.NodeSpec, view *memory.View, st *session.State, attempt int) (dispatchResult, error) {
	if spec.TimeoutMS <= 0 {
		return e.dispatch(ctx, spec, view, st, attempt)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(spec.TimeoutMS)*time.Millisecond)
	defer cancel()

	result, err := e.dispatch(timeoutCtx, spec, view, st, attempt)
	if err != nil && timeoutCtx.Err() == context.DeadlineExceeded {
		return result, agerrors.New(agerrors.Timeout, fmt.Sprintf("node %q exceeded timeout of %v", spec.ID, time.Duration(spec.TimeoutMS)*time.Millisecond)).WithNode(spec.ID)
	}
	return result, err
}

// dispatch executes spec per its NodeType.
func (e *Executor) dispatch(ctx context.Context, spec graphspec.NodeSpec, view *memory.View, st *session.State, attempt int) (dispatchResult, error) {
	switch spec.NodeType {
	case graphspec.NodeFunction:
		handler, ok := e.cfg.Handlers.Lookup(spec.ID)
		if !ok {
			return dispatchResult{}, agerrors.New(agerrors.InvalidSpec, fmt.Sprintf("no handler registered for function node %q", spec.ID)).WithNode(spec.ID)
		}
		err := handler(ctx, NodeContext{Spec: spec, Memory: view, RunID: e.cfg.RunID, GoalID: e.cfg.GoalID, Attempt: attempt})
		if err != nil {
			return dispatchResult{}, err
		}
		return dispatchResult{}, nil

	case graphspec.NodeLLMGenerate, graphspec.NodeLLMToolUse, graphspec.NodeEventLoop:
		return e.dispatchLLM(ctx, spec, view, st)

	default:
		return dispatchResult{}, agerrors.New(agerrors.InvalidSpec, fmt.Sprintf("unknown node_type %q", spec.NodeType)).WithNode(spec.ID)
	}
}

func (e *Executor) dispatchLLM(ctx context.Context, spec graphspec.NodeSpec, view *memory.View, st *session.State) (dispatchResult, error) {
	if e.cfg.Provider == nil {
		return dispatchResult{}, agerrors.New(agerrors.LLMError, "no LLM provider configured").WithNode(spec.ID)
	}

	history := e.loadHistory()
	history = TrimHistory(history, e.cfg.Graph.LoopConfig.MaxHistoryTokens)

	userMessage := summarizeInputs(view.ReadAll())

	sessionID := ""
	if st != nil {
		sessionID = st.SessionID
	}
	turnCfg := TurnConfig{
		Provider:  e.cfg.Provider,
		Tools:     e.cfg.Tools,
		Guardrail: e.cfg.Guardrail,
		Cost:      e.cfg.Cost,
		SessionID: sessionID,
		Actor:     "executor",
		NodeID:    spec.ID,
		Now:       e.now,
	}

	result, newHistory, err := RunTurn(ctx, turnCfg, spec, history, userMessage, e.cfg.Graph.LoopConfig.MaxToolCallsPerTurn)
	if err != nil {
		return dispatchResult{}, agerrors.Wrap(agerrors.LLMError, err.Error(), err).WithNode(spec.ID)
	}
	e.saveHistory(newHistory)

	if outputs := spec.OutputKeys; len(outputs) > 0 {
		if err := view.Write(outputs[0], result.FinalText, true); err != nil {
			return dispatchResult{}, agerrors.Wrap(agerrors.MemoryWriteError, err.Error(), err).WithNode(spec.ID)
		}
	}

	return dispatchResult{tokens: result.TokensUsed, toolCalls: result.ToolCalls}, nil
}

func (e *Executor) loadHistory() []llm.Message {
	raw, ok := e.cfg.Memory.Read(HistoryKey)
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var history []llm.Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil
	}
	return history
}

func (e *Executor) saveHistory(history []llm.Message) {
	_ = e.cfg.Memory.Write(HistoryKey, history, false)
}

func summarizeInputs(inputs map[string]interface{}) string {
	if len(inputs) == 0 {
		return ""
	}
	data, err := json.Marshal(inputs)
	if err != nil {
		return ""
	}
	return string(data)
}
