// Package pgvector is a vector.Backend that hands queries off to an
// external pgvector-enabled PostgreSQL index, so similarity search scales
// past what a single process can hold in memory.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agentgraph/agentgraph/memory/vector"
)

const defaultTableName = "agentgraph_vectors"

// Querier abstracts the pgx query methods needed by Backend, so callers
// may inject either a *pgxpool.Pool or a single transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Backend delegates vector storage and similarity search to PostgreSQL
// with the pgvector extension. Thread safety is handled by the underlying
// pgx connection pool.
type Backend struct {
	db        Querier
	tableName string
}

var _ vector.Backend = (*Backend)(nil)

// Option configures optional Backend behavior.
type Option func(*Backend)

// WithTableName overrides the default table name. The name is sanitized
// via pgx.Identifier since it is interpolated into queries.
func WithTableName(name string) Option {
	return func(b *Backend) { b.tableName = pgx.Identifier{name}.Sanitize() }
}

// New returns a Backend against an existing table (see Schema for the
// expected DDL). db is typically a *pgxpool.Pool.
func New(db Querier, opts ...Option) *Backend {
	b := &Backend{db: db, tableName: defaultTableName}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Schema returns the DDL this backend expects, for callers to run as a
// migration. Requires `CREATE EXTENSION IF NOT EXISTS vector` beforehand.
func (b *Backend) Schema(dims int) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	embedding vector(%d),
	metadata JSONB NOT NULL DEFAULT '{}',
	document TEXT NOT NULL DEFAULT ''
)`, b.tableName, dims)
}

func (b *Backend) Upsert(ctx context.Context, ids []string, embeddings [][]float64, metadatas []map[string]interface{}, documents []string) error {
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

		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("pgvector: marshal metadata for %s: %w", id, err)
		}

		query := fmt.Sprintf(`INSERT INTO %s (id, embedding, metadata, document)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET embedding = $2, metadata = $3, document = $4`, b.tableName)

		if _, err := b.db.Exec(ctx, query, id, literal(emb), metaJSON, doc); err != nil {
			return fmt.Errorf("pgvector: upsert %s: %w", id, err)
		}
	}
	return nil
}

func (b *Backend) Query(ctx context.Context, embedding []float64, n int, where map[string]interface{}) ([]vector.Match, error) {
	if n <= 0 {
		return []vector.Match{}, nil
	}

	args := []any{literal(embedding)}
	query := fmt.Sprintf(`SELECT id, 1 - (embedding <=> $1) AS similarity, metadata, document FROM %s`, b.tableName)

	if len(where) > 0 {
		whereJSON, err := json.Marshal(where)
		if err != nil {
			return nil, fmt.Errorf("pgvector: marshal where: %w", err)
		}
		args = append(args, whereJSON)
		query += fmt.Sprintf(` WHERE metadata @> $%d`, len(args))
	}

	args = append(args, n)
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT $%d`, len(args))

	rows, err := b.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: query: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var m vector.Match
		var metaJSON []byte
		if err := rows.Scan(&m.ID, &m.Similarity, &metaJSON, &m.Document); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &m.Metadata)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: iterate: %w", err)
	}
	if matches == nil {
		matches = []vector.Match{}
	}
	return matches, nil
}

func (b *Backend) Fetch(ctx context.Context, ids []string) ([]vector.Record, error) {
	if len(ids) == 0 {
		return []vector.Record{}, nil
	}

	query := fmt.Sprintf(`SELECT id, embedding::text, metadata, document FROM %s WHERE id = ANY($1)`, b.tableName)
	rows, err := b.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("pgvector: fetch: %w", err)
	}
	defer rows.Close()

	var records []vector.Record
	for rows.Next() {
		var r vector.Record
		var embText string
		var metaJSON []byte
		if err := rows.Scan(&r.ID, &embText, &metaJSON, &r.Document); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		r.Embedding = parseLiteral(embText)
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &r.Metadata)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: iterate: %w", err)
	}
	if records == nil {
		records = []vector.Record{}
	}
	return records, nil
}

func (b *Backend) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, b.tableName)
	if _, err := b.db.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

func (b *Backend) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, b.tableName)
	var count int
	if err := b.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgvector: count: %w", err)
	}
	return count, nil
}

func (b *Backend) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`TRUNCATE %s`, b.tableName)
	if _, err := b.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("pgvector: clear: %w", err)
	}
	return nil
}

// literal renders a float slice as a pgvector input literal, e.g. "[1,2,3]".
func literal(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseLiteral reverses literal, tolerating the bracketed text pgvector
// returns when embedding::text is selected.
func parseLiteral(s string) []float64 {
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
