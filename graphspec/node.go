// Package graphspec defines the declarative node/edge/graph data model
// that the executor interprets at runtime. Types here are
// pure data: validation lives alongside construction, nothing in this
// package talks to an LLM or a tool, and only LoadYAMLFile reads from the
// filesystem.
package graphspec

// NodeType tags the behavior kind of a node. The executor dispatches on
// this tag rather than through an inheritance hierarchy (see
// executor.Registry for the handler lookup).
type NodeType string

const (
	NodeLLMGenerate NodeType = "llm_generate"
	NodeLLMToolUse  NodeType = "llm_tool_use"
	NodeEventLoop   NodeType = "event_loop"
	NodeFunction    NodeType = "function"
)

// NodeSpec is a declarative unit of work in a graph.
type NodeSpec struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	NodeType    NodeType `json:"node_type" yaml:"node_type"`

	// I/O contract.
	InputKeys          []string `json:"input_keys" yaml:"input_keys"`
	OutputKeys         []string `json:"output_keys" yaml:"output_keys"`
	NullableOutputKeys []string `json:"nullable_output_keys" yaml:"nullable_output_keys"`

	// LLM wiring. Ignored for NodeFunction nodes.
	SystemPrompt string   `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Model        string   `json:"model,omitempty" yaml:"model,omitempty"`
	Tools        []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// Safety bounds.
	MaxRetries           int      `json:"max_retries" yaml:"max_retries"`
	RetryOn              []string `json:"retry_on" yaml:"retry_on"`
	MaxNodeVisits        int      `json:"max_node_visits" yaml:"max_node_visits"`
	MaxValidationRetries int      `json:"max_validation_retries" yaml:"max_validation_retries"`

	// TimeoutMS bounds a single attempt's wall-clock time. 0 means no
	// per-node timeout beyond whatever the caller's ctx already carries.
	TimeoutMS int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`

	// Classification.
	ClientFacing bool `json:"client_facing" yaml:"client_facing"`
}

// RequiredOutputKeys returns OutputKeys minus NullableOutputKeys: the set
// the executor must find populated in memory after the node runs.
func (n NodeSpec) RequiredOutputKeys() []string {
	nullable := make(map[string]bool, len(n.NullableOutputKeys))
	for _, k := range n.NullableOutputKeys {
		nullable[k] = true
	}
	var out []string
	for _, k := range n.OutputKeys {
		if !nullable[k] {
			out = append(out, k)
		}
	}
	return out
}

// RetriesOn reports whether errKind is configured to trigger a retry for
// this node.
func (n NodeSpec) RetriesOn(errKind string) bool {
	for _, k := range n.RetryOn {
		if k == errKind {
			return true
		}
	}
	return false
}

// AllowsTool reports whether toolName is in the node's tool allowlist.
// A node with an empty Tools list allows no tools at all, and callers that
// want "all tools" must enumerate them explicitly, matching the
// permission-evaluator default-deny posture used in the guardrail engine.
func (n NodeSpec) AllowsTool(toolName string) bool {
	for _, t := range n.Tools {
		if t == toolName {
			return true
		}
	}
	return false
}
