package graphspec

// EdgeCondition tags how an edge decides whether it is eligible to fire.
type EdgeCondition string

const (
	EdgeAlways      EdgeCondition = "always"
	EdgeOnSuccess   EdgeCondition = "on_success"
	EdgeOnFailure   EdgeCondition = "on_failure"
	EdgeConditional EdgeCondition = "conditional"
)

// EdgeSpec connects a source node to a target node, guarded by a
// condition. Edges carrying the same From are evaluated by the executor
// in descending Priority, ties broken by declaration order (see
// graphspec.GraphSpec.OutgoingEdges).
type EdgeSpec struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`

	Condition    EdgeCondition `json:"condition" yaml:"condition"`
	ConditionExpr string       `json:"condition_expr,omitempty" yaml:"condition_expr,omitempty"`

	Priority int `json:"priority" yaml:"priority"`

	// IsParallelBranch marks an edge as one of several fan-out branches
	// taken together in a single step. The executor copies the flag into
	// the trace's edge-traversal record; it follows only the first
	// eligible edge per step and does not fan out or join branches.
	IsParallelBranch bool `json:"is_parallel_branch,omitempty" yaml:"is_parallel_branch,omitempty"`
}

// orderedEdge is attached internally by GraphSpec.OutgoingEdges to make
// tie-breaking by declaration order explicit and stable regardless of how
// callers sort the underlying slice.
type orderedEdge struct {
	EdgeSpec
	declIndex int
}
