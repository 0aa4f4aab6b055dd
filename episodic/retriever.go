package episodic

import (
	"context"
	"fmt"

	"github.com/agentgraph/agentgraph/memory/vector"
)

// Filters narrows a Retriever.Retrieve call.
type Filters struct {
	Outcome        Outcome // zero value: no outcome filter
	MinSimilarity  float64
	Limit          int  // zero or negative: backend default
	Diversify      bool
	OverlapThresh  float64 // fraction of shared tool names at or above which a candidate is suppressed as redundant; used only when Diversify is set
}

// Retriever answers similarity queries over a Store's vector backend,
// resolving Match hits back to full Episode records.
type Retriever struct {
	backend vector.Backend
	lookup  func(id string) (Episode, bool)
}

// NewRetriever returns a Retriever backed by backend. lookup resolves a
// vector Match's ID back to the full Episode; callers typically build it
// from an in-memory index kept alongside the Store, or from re-reading
// episodes.jsonl via All.
func NewRetriever(backend vector.Backend, lookup func(id string) (Episode, bool)) *Retriever {
	return &Retriever{backend: backend, lookup: lookup}
}

// Retrieve queries the backend with queryEmbedding for the n nearest
// episodes, applies Filters, and returns the surviving Episodes ordered
// by descending similarity.
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float64, n int, filters Filters) ([]Episode, error) {
	if n <= 0 {
		n = 10
	}
	// Pull extra candidates up front since filtering (outcome, min
	// similarity, diversity) may remove some.
	fetchN := n
	if filters.Diversify || filters.Outcome != "" || filters.MinSimilarity > 0 {
		fetchN = n * 3
	}

	matches, err := r.backend.Query(ctx, queryEmbedding, fetchN, nil)
	if err != nil {
		return nil, fmt.Errorf("episodic: query: %w", err)
	}

	episodes := make([]Episode, 0, len(matches))
	for _, m := range matches {
		if filters.MinSimilarity > 0 && m.Similarity < filters.MinSimilarity {
			continue
		}
		ep, ok := r.lookup(m.ID)
		if !ok {
			continue
		}
		if filters.Outcome != "" && ep.Outcome != filters.Outcome {
			continue
		}
		episodes = append(episodes, ep)
	}

	if filters.Diversify {
		episodes = diversify(episodes, filters.OverlapThresh)
	}

	if len(episodes) > n {
		episodes = episodes[:n]
	}
	return episodes, nil
}

// diversify drops candidates that are redundant with an already-kept
// episode: either they share the same action_description and node_id, or
// their tool-call name sets overlap at or above thresh. A zero thresh
// defaults to 0.8.
func diversify(episodes []Episode, thresh float64) []Episode {
	if thresh <= 0 {
		thresh = 0.8
	}
	var kept []Episode
	for _, ep := range episodes {
		redundant := false
		for _, k := range kept {
			if ep.ActionDescription != "" && ep.ActionDescription == k.ActionDescription && ep.NodeID == k.NodeID {
				redundant = true
				break
			}
			if toolOverlap(ep.ToolCalls, k.ToolCalls) >= thresh {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, ep)
		}
	}
	return kept
}

// toolOverlap returns the Jaccard similarity (intersection over union) of
// two episodes' tool-name sets, matching the original diversity filter's
// overlap/union comparison.
func toolOverlap(a, b []map[string]interface{}) float64 {
	namesA := toolNames(a)
	namesB := toolNames(b)
	if len(namesA) == 0 || len(namesB) == 0 {
		return 0
	}
	union := make(map[string]bool, len(namesA)+len(namesB))
	shared := 0
	for name := range namesA {
		union[name] = true
		if namesB[name] {
			shared++
		}
	}
	for name := range namesB {
		union[name] = true
	}
	if len(union) == 0 {
		return 0
	}
	return float64(shared) / float64(len(union))
}

func toolNames(calls []map[string]interface{}) map[string]bool {
	out := make(map[string]bool, len(calls))
	for _, c := range calls {
		if name, ok := c["tool_name"].(string); ok {
			out[name] = true
		} else if name, ok := c["name"].(string); ok {
			out[name] = true
		}
	}
	return out
}
