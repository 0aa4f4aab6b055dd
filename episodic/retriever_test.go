package episodic

import (
	"context"
	"testing"
	"time"

	"github.com/agentgraph/agentgraph/memory/vector/memvector"
)

func buildRetriever(t *testing.T, episodes []Episode) *Retriever {
	t.Helper()
	backend := memvector.New()
	index := make(map[string]Episode, len(episodes))
	var ids []string
	var embeddings [][]float64
	var metadatas []map[string]interface{}
	var documents []string
	for _, ep := range episodes {
		index[ep.EpisodeID] = ep
		ids = append(ids, ep.EpisodeID)
		embeddings = append(embeddings, ep.ContextEmbedding)
		metadatas = append(metadatas, map[string]interface{}{"outcome": string(ep.Outcome)})
		documents = append(documents, ep.ContextSummary)
	}
	if err := backend.Upsert(context.Background(), ids, embeddings, metadatas, documents); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return NewRetriever(backend, func(id string) (Episode, bool) {
		ep, ok := index[id]
		return ep, ok
	})
}

func TestRetriever_RetrieveOrdersBySimilarity(t *testing.T) {
	now := time.Now()
	episodes := []Episode{
		{EpisodeID: "a", ContextEmbedding: []float64{1, 0, 0}, Outcome: OutcomeSuccess, Timestamp: now},
		{EpisodeID: "b", ContextEmbedding: []float64{0, 1, 0}, Outcome: OutcomeSuccess, Timestamp: now},
	}
	r := buildRetriever(t, episodes)

	got, err := r.Retrieve(context.Background(), []float64{1, 0, 0}, 2, Filters{})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) == 0 || got[0].EpisodeID != "a" {
		t.Fatalf("expected closest match first, got %+v", got)
	}
}

func TestRetriever_FiltersByMinSimilarity(t *testing.T) {
	episodes := []Episode{
		{EpisodeID: "a", ContextEmbedding: []float64{1, 0, 0}, Outcome: OutcomeSuccess},
		{EpisodeID: "b", ContextEmbedding: []float64{-1, 0, 0}, Outcome: OutcomeSuccess},
	}
	r := buildRetriever(t, episodes)

	got, err := r.Retrieve(context.Background(), []float64{1, 0, 0}, 10, Filters{MinSimilarity: 0.5})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for _, ep := range got {
		if ep.EpisodeID == "b" {
			t.Error("expected anti-correlated episode to be filtered out")
		}
	}
}

func TestRetriever_FiltersByOutcome(t *testing.T) {
	episodes := []Episode{
		{EpisodeID: "a", ContextEmbedding: []float64{1, 0, 0}, Outcome: OutcomeSuccess},
		{EpisodeID: "b", ContextEmbedding: []float64{0.9, 0.1, 0}, Outcome: OutcomeFailure},
	}
	r := buildRetriever(t, episodes)

	got, err := r.Retrieve(context.Background(), []float64{1, 0, 0}, 10, Filters{Outcome: OutcomeFailure})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 || got[0].EpisodeID != "b" {
		t.Fatalf("expected only the failure episode, got %+v", got)
	}
}

func TestDiversify_SuppressesSameActionAndNode(t *testing.T) {
	episodes := []Episode{
		{EpisodeID: "a", ActionDescription: "call search", NodeID: "n1", Timestamp: time.Now()},
		{EpisodeID: "b", ActionDescription: "call search", NodeID: "n1", Timestamp: time.Now().Add(-time.Minute)},
	}
	got := diversify(episodes, 0.75)
	if len(got) != 1 {
		t.Fatalf("expected redundant episode suppressed, got %d", len(got))
	}
}

func TestDiversify_SuppressesOverlappingToolCalls(t *testing.T) {
	episodes := []Episode{
		{EpisodeID: "a", ToolCalls: []map[string]interface{}{{"tool_name": "search"}, {"tool_name": "fetch"}}},
		{EpisodeID: "b", ToolCalls: []map[string]interface{}{{"tool_name": "search"}, {"tool_name": "fetch"}}},
	}
	got := diversify(episodes, 0.5)
	if len(got) != 1 {
		t.Fatalf("expected overlapping tool-call episode suppressed, got %d", len(got))
	}
}

func TestDiversify_KeepsDistinctEpisodes(t *testing.T) {
	episodes := []Episode{
		{EpisodeID: "a", ActionDescription: "call search", NodeID: "n1"},
		{EpisodeID: "b", ActionDescription: "call write", NodeID: "n2"},
	}
	got := diversify(episodes, 0.75)
	if len(got) != 2 {
		t.Fatalf("expected both distinct episodes kept, got %d", len(got))
	}
}
