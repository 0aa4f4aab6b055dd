package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// sqlStore is the shared implementation behind SQLiteStore and MySQLStore:
// both back onto database/sql against a single sessions table, differing
// only in driver name, DSN, and the placeholder/DDL dialect.
type sqlStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	closed    bool
	upsertSQL string
}

// SQLiteStore persists sessions to a single SQLite file. Suited to local
// development and single-process deployments; see MySQLStore for a
// multi-worker-safe alternative backend.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// ensures its schema exists. path may be ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: set busy_timeout: %w", err)
	}

	s := &SQLiteStore{sqlStore{db: db, upsertSQL: sqliteUpsertSQL}}
	if err := s.createTable(sqliteDDL); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// MySQLStore persists sessions to a MySQL/MariaDB table, suited to
// multi-worker deployments where several executor processes share session
// state. dsn follows go-sql-driver/mysql's format, e.g.
// "user:pass@tcp(localhost:3306)/agentgraph?parseTime=true".
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore opens a connection pool against dsn and ensures its
// schema exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: ping mysql: %w", err)
	}

	s := &MySQLStore{sqlStore{db: db, upsertSQL: mysqlUpsertSQL}}
	if err := s.createTable(mysqlDDL); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const mysqlDDL = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id VARCHAR(191) PRIMARY KEY,
	state LONGTEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

const sqliteUpsertSQL = `
INSERT INTO sessions (session_id, state) VALUES (?, ?)
ON CONFLICT(session_id) DO UPDATE SET state = excluded.state`

const mysqlUpsertSQL = `
INSERT INTO sessions (session_id, state) VALUES (?, ?)
ON DUPLICATE KEY UPDATE state = VALUES(state)`

func (s *sqlStore) createTable(ddl string) error {
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("session: create sessions table: %w", err)
	}
	return nil
}

// Save upserts s keyed by its SessionID.
func (s *sqlStore) Save(st *State) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("session: store is closed")
	}
	s.mu.RUnlock()

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}

	if _, err := s.db.Exec(s.upsertSQL, st.SessionID, string(data)); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Load fetches and parses the state stored for sessionID.
func (s *sqlStore) Load(sessionID string) (*State, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("session: store is closed")
	}
	s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT state FROM sessions WHERE session_id = ?`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session: %q: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var st State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("session: parse state: %w", err)
	}
	return &st, nil
}

// List returns every stored session ID.
func (s *sqlStore) List() ([]string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("session: store is closed")
	}
	s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT session_id FROM sessions ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("session: scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the underlying connection pool. Safe to call more than
// once.
func (s *sqlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
