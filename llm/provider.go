// Package llm defines the provider contract the executor drives an LLM
// turn loop against, independent of any particular vendor SDK.
package llm

import (
	"context"
	"time"
)

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in a conversation submitted to a provider.
type Message struct {
	Role       string
	Content    string
	ToolCallID string // set on RoleTool messages, echoing the call it answers
}

// ToolSpec describes a tool the model may choose to call.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ToolCall is a single invocation the model requested.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompleteResult is the normalized shape every provider returns.
type CompleteResult struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
	Model     string
}

// Provider is the contract the executor drives: complete(messages, system,
// max_tokens, tools?, timeout?) -> {content, tool_calls, usage, error?}.
// Timeout is expressed via ctx; callers wrap ctx with context.WithTimeout.
type Provider interface {
	Complete(ctx context.Context, messages []Message, system string, maxTokens int, tools []ToolSpec) (CompleteResult, error)
}

// DefaultTimeout is applied by callers that do not set their own deadline.
const DefaultTimeout = 30 * time.Second
