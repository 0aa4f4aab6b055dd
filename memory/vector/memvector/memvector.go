// Package memvector is a non-persistent, cosine-similarity vector backend
// used for tests and as the reference implementation of the contract.
package memvector

import (
	"context"
	"sort"
	"sync"

	"github.com/agentgraph/agentgraph/memory/vector"
)

type entry struct {
	embedding []float64
	metadata  map[string]interface{}
	document  string
}

// Backend is an in-memory vector.Backend. Zero value is not usable; use New.
type Backend struct {
	mu    sync.RWMutex
	items map[string]entry
}

var _ vector.Backend = (*Backend)(nil)

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{items: make(map[string]entry)}
}

func (b *Backend) Upsert(ctx context.Context, ids []string, embeddings [][]float64, metadatas []map[string]interface{}, documents []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, id := range ids {
		var meta map[string]interface{}
		if i < len(metadatas) {
			meta = metadatas[i]
		}
		var doc string
		if i < len(documents) {
			doc = documents[i]
		}
		var emb []float64
		if i < len(embeddings) {
			emb = embeddings[i]
		}
		b.items[id] = entry{embedding: emb, metadata: meta, document: doc}
	}
	return nil
}

func (b *Backend) Query(ctx context.Context, embedding []float64, n int, where map[string]interface{}) ([]vector.Match, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	matches := make([]vector.Match, 0, len(b.items))
	for id, e := range b.items {
		if !vector.MatchesWhere(e.metadata, where) {
			continue
		}
		matches = append(matches, vector.Match{
			ID:         id,
			Similarity: vector.CosineSimilarity(embedding, e.embedding),
			Metadata:   e.metadata,
			Document:   e.document,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})

	if n >= 0 && n < len(matches) {
		matches = matches[:n]
	}
	return matches, nil
}

func (b *Backend) Fetch(ctx context.Context, ids []string) ([]vector.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	records := make([]vector.Record, 0, len(ids))
	for _, id := range ids {
		e, ok := b.items[id]
		if !ok {
			continue
		}
		records = append(records, vector.Record{ID: id, Embedding: e.embedding, Metadata: e.metadata, Document: e.document})
	}
	return records, nil
}

func (b *Backend) Delete(ctx context.Context, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		delete(b.items, id)
	}
	return nil
}

func (b *Backend) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items), nil
}

func (b *Backend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = make(map[string]entry)
	return nil
}
