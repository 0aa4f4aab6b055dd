package trace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteArchive persists completed ExecutionTraces keyed by run ID, for
// deployments that want trace history to outlive the process without
// standing up a full trace-query service. Recorder itself stays
// in-memory; an archive is an optional sink a caller writes a finished
// trace to at end_run.
type SQLiteArchive struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteArchive opens (creating if absent) a SQLite database at path
// and ensures its schema exists.
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trace: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("trace: enable WAL: %w", err)
	}

	ddl := `
	CREATE TABLE IF NOT EXISTS execution_traces (
		run_id TEXT PRIMARY KEY,
		graph_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		trace TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("trace: create execution_traces table: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

// Store writes t, replacing any prior trace recorded under the same
// RunID.
func (a *SQLiteArchive) Store(t ExecutionTrace) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("trace: marshal execution trace: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = a.db.Exec(
		`INSERT INTO execution_traces (run_id, graph_id, outcome, trace) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET graph_id = excluded.graph_id, outcome = excluded.outcome, trace = excluded.trace`,
		t.RunID, t.Summary.GraphID, t.Summary.Outcome, string(data),
	)
	if err != nil {
		return fmt.Errorf("trace: store: %w", err)
	}
	return nil
}

// Load retrieves the trace stored under runID.
func (a *SQLiteArchive) Load(runID string) (ExecutionTrace, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var data string
	err := a.db.QueryRow(`SELECT trace FROM execution_traces WHERE run_id = ?`, runID).Scan(&data)
	if err == sql.ErrNoRows {
		return ExecutionTrace{}, fmt.Errorf("trace: %q: not found", runID)
	}
	if err != nil {
		return ExecutionTrace{}, fmt.Errorf("trace: load: %w", err)
	}

	var t ExecutionTrace
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return ExecutionTrace{}, fmt.Errorf("trace: parse trace: %w", err)
	}
	return t, nil
}

// Close releases the underlying connection.
func (a *SQLiteArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db.Close()
}
