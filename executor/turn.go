package executor

import (
	"context"
	"time"

	"github.com/agentgraph/agentgraph/graphspec"
	"github.com/agentgraph/agentgraph/guardrail"
	"github.com/agentgraph/agentgraph/llm"
	"github.com/agentgraph/agentgraph/tool"
)

// HistoryKey is the shared-memory key the turn loop reads and writes the
// run's accumulated conversation under. Every llm_generate / llm_tool_use
// / event_loop node in a run shares one history, matching the "composes
// [system_prompt, trimmed_history, current_user_or_tool_messages]"
// message-assembly rule.
const HistoryKey = "__conversation_history__"

// TurnConfig bundles the collaborators a turn needs beyond the node spec
// itself.
type TurnConfig struct {
	Provider  llm.Provider
	Tools     *tool.Registry
	Guardrail *guardrail.Engine
	Cost      *llm.CostTracker
	SessionID string
	Actor     string
	Environment string
	NodeID      string
	Now         func() time.Time
}

// TurnResult summarizes one completed turn loop for the caller (the step
// loop records it into the trace and episode).
type TurnResult struct {
	FinalText  string
	ToolCalls  []map[string]interface{}
	TokensUsed int
	LatencyMS  int64
}

// RunTurn drives the bounded tool-call/tool-result loop: submit history,
// dispatch any requested tool calls through
// the guardrail-wrapped registry, append results, and reinvoke until the
// model stops calling tools or the per-turn budget is exhausted.
func RunTurn(ctx context.Context, cfg TurnConfig, spec graphspec.NodeSpec, history []llm.Message, userMessage string, maxToolCalls int) (TurnResult, []llm.Message, error) {
	if maxToolCalls <= 0 {
		maxToolCalls = 1
	}

	messages := append([]llm.Message(nil), history...)
	if userMessage != "" {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	}

	tools := toolSpecs(spec, cfg.Tools)

	var result TurnResult
	start := time.Now()

	for call := 0; ; call++ {
		forceTextOnly := call >= maxToolCalls
		turnTools := tools
		if forceTextOnly {
			turnTools = nil
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if _, ok := ctx.Deadline(); !ok {
			callCtx, cancel = context.WithTimeout(ctx, llm.DefaultTimeout)
		}
		completion, err := cfg.Provider.Complete(callCtx, messages, spec.SystemPrompt, spec.MaxTokens, turnTools)
		cancel()
		if err != nil {
			return result, messages, err
		}
		result.TokensUsed += completion.Usage.InputTokens + completion.Usage.OutputTokens
		now := cfg.Now
		if now == nil {
			now = time.Now
		}
		cfg.Cost.RecordLLMCall(spec.Model, cfg.NodeID, completion.Usage.InputTokens, completion.Usage.OutputTokens, now())

		if len(completion.ToolCalls) == 0 || forceTextOnly {
			result.FinalText = completion.Content
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: completion.Content})
			break
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: completion.Content})
		for _, tc := range completion.ToolCalls {
			guardResult := guardrail.Result{Allowed: true, ToolName: tc.Name, ToolUseID: tc.ID}
			if cfg.Guardrail != nil {
				guardResult = cfg.Guardrail.Evaluate(ctx, guardrail.ToolCall{
					ToolName:    tc.Name,
					ToolUseID:   tc.ID,
					Input:       tc.Input,
					Actor:       cfg.Actor,
					SessionID:   cfg.SessionID,
					Environment: cfg.Environment,
				})
			}

			var toolResult tool.Result
			if !guardResult.Allowed {
				toolResult = tool.Result{Content: guardResult.ToErrorContent(), IsError: true}
			} else {
				toolResult = cfg.Tools.Dispatch(ctx, tool.Call{ToolName: tc.Name, Input: tc.Input, ToolUseID: tc.ID})
			}

			result.ToolCalls = append(result.ToolCalls, map[string]interface{}{
				"tool_name": tc.Name,
				"tool_use_id": tc.ID,
				"input":     tc.Input,
				"is_error":  toolResult.IsError,
			})
			messages = append(messages, llm.Message{Role: llm.RoleTool, Content: toolResult.Content, ToolCallID: tc.ID})
		}
	}

	result.LatencyMS = time.Since(start).Milliseconds()
	return result, messages, nil
}

// toolSpecs resolves a node's allowed tool names against the registry,
// skipping names with no registered implementation.
func toolSpecs(spec graphspec.NodeSpec, registry *tool.Registry) []llm.ToolSpec {
	if registry == nil {
		return nil
	}
	var out []llm.ToolSpec
	for _, name := range spec.Tools {
		if _, ok := registry.Lookup(name); ok {
			out = append(out, llm.ToolSpec{Name: name})
		}
	}
	return out
}

// TrimHistory keeps the most recent messages whose cumulative
// approximate size (4 characters per token, a common rough estimate) is
// within maxTokens, always preferring recency over the oldest turns so
// the model never loses the tail of the conversation it needs to
// continue coherently.
func TrimHistory(history []llm.Message, maxTokens int) []llm.Message {
	if maxTokens <= 0 || len(history) == 0 {
		return history
	}
	budget := maxTokens * 4
	var kept []llm.Message
	total := 0
	for i := len(history) - 1; i >= 0; i-- {
		size := len(history[i].Content)
		if total+size > budget && len(kept) > 0 {
			break
		}
		kept = append([]llm.Message{history[i]}, kept...)
		total += size
	}
	return kept
}
