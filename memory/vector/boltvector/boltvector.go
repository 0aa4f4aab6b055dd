// Package boltvector is a disk-backed vector.Backend for single-workstation
// deployments. Vectors and metadata are stored as JSON in a bbolt bucket and
// loaded into an in-memory index on Open.
package boltvector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/agentgraph/agentgraph/memory/vector"
)

const vectorsBucket = "vectors"

type record struct {
	Embedding []float64              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata"`
	Document  string                 `json:"document"`
}

// Backend persists vectors to a bbolt database file and keeps a mirror
// in memory for query speed; writes go to disk first, then the mirror.
type Backend struct {
	mu  sync.RWMutex
	db  *bolt.DB
	mem map[string]record
}

var _ vector.Backend = (*Backend)(nil)

// Open opens (creating if needed) a bbolt-backed vector store at path and
// loads its existing contents into memory.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltvector: open: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(vectorsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("boltvector: create bucket: %w", err)
	}

	b := &Backend{db: db, mem: make(map[string]record)}
	if err := b.load(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) load() error {
	return b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(vectorsBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var r record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("boltvector: unmarshal %s: %w", k, err)
			}
			b.mem[string(k)] = r
			return nil
		})
	})
}

// Close releases the underlying database file handle.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Upsert(ctx context.Context, ids []string, embeddings [][]float64, metadatas []map[string]interface{}, documents []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(vectorsBucket))
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
			r := record{Embedding: emb, Metadata: meta, Document: doc}

			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("boltvector: marshal %s: %w", id, err)
			}
			if err := bucket.Put([]byte(id), data); err != nil {
				return fmt.Errorf("boltvector: put %s: %w", id, err)
			}
			b.mem[id] = r
		}
		return nil
	})
}

func (b *Backend) Query(ctx context.Context, embedding []float64, n int, where map[string]interface{}) ([]vector.Match, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	matches := make([]vector.Match, 0, len(b.mem))
	for id, r := range b.mem {
		if !vector.MatchesWhere(r.Metadata, where) {
			continue
		}
		matches = append(matches, vector.Match{
			ID:         id,
			Similarity: vector.CosineSimilarity(embedding, r.Embedding),
			Metadata:   r.Metadata,
			Document:   r.Document,
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
		r, ok := b.mem[id]
		if !ok {
			continue
		}
		records = append(records, vector.Record{ID: id, Embedding: r.Embedding, Metadata: r.Metadata, Document: r.Document})
	}
	return records, nil
}

func (b *Backend) Delete(ctx context.Context, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(vectorsBucket))
		for _, id := range ids {
			if err := bucket.Delete([]byte(id)); err != nil {
				return fmt.Errorf("boltvector: delete %s: %w", id, err)
			}
			delete(b.mem, id)
		}
		return nil
	})
}

func (b *Backend) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.mem), nil
}

func (b *Backend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(vectorsBucket)); err != nil {
			return fmt.Errorf("boltvector: clear: %w", err)
		}
		if _, err := tx.CreateBucket([]byte(vectorsBucket)); err != nil {
			return fmt.Errorf("boltvector: recreate bucket: %w", err)
		}
		b.mem = make(map[string]record)
		return nil
	})
}
