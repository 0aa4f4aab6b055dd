// Package executor drives a graphspec.GraphSpec to completion: selecting
// nodes, running their handlers, evaluating outgoing edges, enforcing
// safety bounds, and recording the run's trace and episode history
// along the way.
package executor

import (
	"context"

	"github.com/agentgraph/agentgraph/graphspec"
	"github.com/agentgraph/agentgraph/memory"
)

// NodeContext is what a function-node handler receives: a scoped view
// onto shared memory and the node's own declared spec.
type NodeContext struct {
	Spec   graphspec.NodeSpec
	Memory *memory.View
	RunID  string
	GoalID string
	Attempt int
}

// Handler implements a registered node_type == "function" node's
// behavior. It must read only declared InputKeys and write only declared
// OutputKeys; the executor enforces the output contract after the
// handler returns, not before.
type Handler func(ctx context.Context, nc NodeContext) error

// Registry maps NodeSpec.ID to its Handler, letting custom function
// nodes register additional behavior without an inheritance chain.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// RegisterNode binds handler to the node whose ID is nodeID.
func (r *Registry) RegisterNode(nodeID string, handler Handler) {
	r.handlers[nodeID] = handler
}

// Lookup returns the handler registered for nodeID, if any.
func (r *Registry) Lookup(nodeID string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r.handlers[nodeID]
	return h, ok
}
