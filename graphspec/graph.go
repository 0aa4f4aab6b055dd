package graphspec

import (
	"fmt"
	"sort"
)

// LoopConfig bounds how far a run is allowed to progress before the
// executor aborts it as runaway.
type LoopConfig struct {
	MaxIterations      int `json:"max_iterations" yaml:"max_iterations"`
	MaxHistoryTokens   int `json:"max_history_tokens" yaml:"max_history_tokens"`
	MaxToolCallsPerTurn int `json:"max_tool_calls_per_turn" yaml:"max_tool_calls_per_turn"`
}

// GraphSpec is the full declarative graph: nodes, edges, and the entry /
// exit topology connecting them.
type GraphSpec struct {
	ID      string `json:"id" yaml:"id"`
	GoalID  string `json:"goal_id" yaml:"goal_id"`
	Version string `json:"version" yaml:"version"`

	Nodes []NodeSpec `json:"nodes" yaml:"nodes"`
	Edges []EdgeSpec `json:"edges" yaml:"edges"`

	EntryNode     string            `json:"entry_node" yaml:"entry_node"`
	TerminalNodes []string          `json:"terminal_nodes" yaml:"terminal_nodes"`
	PauseNodes    []string          `json:"pause_nodes" yaml:"pause_nodes"`
	EntryPoints   map[string]string `json:"entry_points,omitempty" yaml:"entry_points,omitempty"`

	LoopConfig      LoopConfig `json:"loop_config" yaml:"loop_config"`
	DefaultModel    string     `json:"default_model" yaml:"default_model"`
	MaxTokens       int        `json:"max_tokens" yaml:"max_tokens"`
	CleanupLLMModel string     `json:"cleanup_llm_model,omitempty" yaml:"cleanup_llm_model,omitempty"`

	nodeIndex map[string]int
	edgesFrom map[string][]orderedEdge
}

// ValidationWarning is a non-fatal finding surfaced by Validate, such as a
// dead-end node with no outgoing edges.
type ValidationWarning struct {
	NodeID  string
	Message string
}

// ValidationError aggregates the fatal problems found by Validate. A
// non-nil ValidationError means the graph must not be run.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 1 {
		return e.Messages[0]
	}
	return fmt.Sprintf("%d graph validation errors: %v", len(e.Messages), e.Messages)
}

// Validate checks the structural invariants of a GraphSpec:
//  1. entry_node and every terminal_nodes/pause_nodes member is declared.
//  2. every edge source and target is declared.
//  3. no duplicate node IDs.
//  4. every non-terminal node has at least one outgoing edge (warning, not fatal).
//
// It also builds the internal indices used by Node, OutgoingEdges, and
// IsTerminal, so Validate should be called once after construction (or
// after deserialization) before the graph is handed to an executor.
func (g *GraphSpec) Validate() ([]ValidationWarning, error) {
	var errs []string

	nodeIndex := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, dup := nodeIndex[n.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate node ID: %s", n.ID))
			continue
		}
		nodeIndex[n.ID] = i
	}

	checkDeclared := func(id, role string) {
		if id == "" {
			return
		}
		if _, ok := nodeIndex[id]; !ok {
			errs = append(errs, fmt.Sprintf("%s references undeclared node: %s", role, id))
		}
	}

	checkDeclared(g.EntryNode, "entry_node")
	for _, t := range g.TerminalNodes {
		checkDeclared(t, "terminal_nodes")
	}
	for _, p := range g.PauseNodes {
		checkDeclared(p, "pause_nodes")
	}
	for name, id := range g.EntryPoints {
		checkDeclared(id, fmt.Sprintf("entry_points[%s]", name))
	}

	edgesFrom := make(map[string][]orderedEdge, len(g.Nodes))
	for i, e := range g.Edges {
		checkDeclared(e.From, fmt.Sprintf("edges[%d].from", i))
		checkDeclared(e.To, fmt.Sprintf("edges[%d].to", i))
		edgesFrom[e.From] = append(edgesFrom[e.From], orderedEdge{EdgeSpec: e, declIndex: i})
	}

	for from, edges := range edgesFrom {
		sorted := append([]orderedEdge(nil), edges...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Priority != sorted[j].Priority {
				return sorted[i].Priority > sorted[j].Priority
			}
			return sorted[i].declIndex < sorted[j].declIndex
		})
		edgesFrom[from] = sorted
	}

	var warnings []ValidationWarning
	terminal := make(map[string]bool, len(g.TerminalNodes))
	for _, t := range g.TerminalNodes {
		terminal[t] = true
	}
	for _, n := range g.Nodes {
		if terminal[n.ID] {
			continue
		}
		if len(edgesFrom[n.ID]) == 0 {
			warnings = append(warnings, ValidationWarning{
				NodeID:  n.ID,
				Message: fmt.Sprintf("node %q is not terminal but has no outgoing edges", n.ID),
			})
		}
	}

	if len(errs) > 0 {
		return warnings, &ValidationError{Messages: errs}
	}

	g.nodeIndex = nodeIndex
	g.edgesFrom = edgesFrom
	return warnings, nil
}

// Node looks up a node by ID. Call Validate first; before that, lookups
// fall back to a linear scan.
func (g *GraphSpec) Node(id string) (NodeSpec, bool) {
	if g.nodeIndex != nil {
		if i, ok := g.nodeIndex[id]; ok {
			return g.Nodes[i], true
		}
		return NodeSpec{}, false
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// OutgoingEdges returns the edges leaving nodeID ordered by descending
// Priority, ties broken by declaration order (the order the executor
// must evaluate them in).
func (g *GraphSpec) OutgoingEdges(nodeID string) []EdgeSpec {
	ordered := g.edgesFrom[nodeID]
	if ordered == nil {
		return nil
	}
	out := make([]EdgeSpec, len(ordered))
	for i, e := range ordered {
		out[i] = e.EdgeSpec
	}
	return out
}

// IsTerminal reports whether nodeID is listed in TerminalNodes.
func (g *GraphSpec) IsTerminal(nodeID string) bool {
	for _, t := range g.TerminalNodes {
		if t == nodeID {
			return true
		}
	}
	return false
}

// IsPause reports whether nodeID is listed in PauseNodes.
func (g *GraphSpec) IsPause(nodeID string) bool {
	for _, p := range g.PauseNodes {
		if p == nodeID {
			return true
		}
	}
	return false
}

// ResolveEntry returns the node ID to start execution at for the named
// entry point, or EntryNode if entryPoint is empty.
func (g *GraphSpec) ResolveEntry(entryPoint string) (string, error) {
	if entryPoint == "" {
		return g.EntryNode, nil
	}
	id, ok := g.EntryPoints[entryPoint]
	if !ok {
		return "", fmt.Errorf("unknown entry point: %s", entryPoint)
	}
	return id, nil
}
