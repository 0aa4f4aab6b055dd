package episodic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/agentgraph/agentgraph/memory/vector"
)

// Store owns the append-only episodes.jsonl log plus a vector.Backend for
// similarity lookup. Episodes, once written, are immutable, so Store
// exposes no update or rewrite path, only Append and the read paths used by
// Retriever.
type Store struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	backend vector.Backend

	queue chan Episode
	done  chan struct{}
	wg    sync.WaitGroup

	onError func(error)
}

// Option configures a Store.
type Option func(*Store)

// WithErrorHook registers a callback invoked whenever the background
// writer encounters an error it cannot otherwise surface (the caller of
// Append has already moved on by the time the error happens).
func WithErrorHook(fn func(error)) Option {
	return func(s *Store) { s.onError = fn }
}

// QueueSize bounds how many pending Append calls the background worker
// may buffer before Append blocks. Defaults to 256.
func QueueSize(n int) Option {
	return func(s *Store) {
		s.queue = make(chan Episode, n)
	}
}

// Open appends to (creating if absent) the episodes.jsonl file at path
// and starts the background worker that drains Append calls. Close must
// be called to flush and release the file.
func Open(path string, backend vector.Backend, opts ...Option) (*Store, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("episodic: open %s: %w", path, err)
	}

	s := &Store{
		file:    f,
		writer:  bufio.NewWriter(f),
		backend: backend,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = make(chan Episode, 256)
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

// NewID returns a lexicographically sortable episode identifier.
func NewID() string {
	return ulid.Make().String()
}

// Append enqueues episode for asynchronous persistence: one JSON line to
// episodes.jsonl, plus a vector upsert when ContextEmbedding is set. The
// call returns as soon as the episode is queued; it does not wait for the
// write to land on disk.
func (s *Store) Append(episode Episode) {
	if episode.EpisodeID == "" {
		episode.EpisodeID = NewID()
	}
	s.queue <- episode
}

func (s *Store) run() {
	defer s.wg.Done()
	for {
		select {
		case ep, ok := <-s.queue:
			if !ok {
				return
			}
			s.persist(ep)
		case <-s.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case ep := <-s.queue:
					s.persist(ep)
				default:
					return
				}
			}
		}
	}
}

func (s *Store) persist(ep Episode) {
	s.mu.Lock()
	line, err := json.Marshal(ep)
	if err == nil {
		_, err = s.writer.Write(append(line, '\n'))
	}
	if err == nil {
		err = s.writer.Flush()
	}
	s.mu.Unlock()
	if err != nil {
		s.reportError(fmt.Errorf("episodic: append %s: %w", ep.EpisodeID, err))
		return
	}

	if len(ep.ContextEmbedding) == 0 || s.backend == nil {
		return
	}
	metadata := map[string]interface{}{
		"agent_id": ep.AgentID,
		"goal_id":  ep.GoalID,
		"node_id":  ep.NodeID,
		"outcome":  string(ep.Outcome),
	}
	err = s.backend.Upsert(context.Background(),
		[]string{ep.EpisodeID},
		[][]float64{ep.ContextEmbedding},
		[]map[string]interface{}{metadata},
		[]string{ep.ContextSummary})
	if err != nil {
		s.reportError(fmt.Errorf("episodic: upsert embedding %s: %w", ep.EpisodeID, err))
	}
}

func (s *Store) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// Close stops the background worker after draining any queued episodes
// and closes the underlying file.
func (s *Store) Close() error {
	close(s.done)
	s.wg.Wait()
	return s.file.Close()
}

// Backend returns the vector.Backend this store upserts embeddings into,
// for use by a Retriever.
func (s *Store) Backend() vector.Backend {
	return s.backend
}

// All re-reads every persisted episode from episodes.jsonl at path, in
// append order. Intended for Retriever's full-scan fallback and for
// tests; callers needing the hot path should prefer the vector backend.
func All(path string) ([]Episode, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("episodic: open %s: %w", path, err)
	}
	defer f.Close()

	var out []Episode
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ep Episode
		if err := json.Unmarshal(line, &ep); err != nil {
			return nil, fmt.Errorf("episodic: decode line: %w", err)
		}
		out = append(out, ep)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("episodic: scan %s: %w", path, err)
	}
	return out, nil
}
