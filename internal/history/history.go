// Package history persists processed queries in a local SQLite database so
// the chat session can recall and export earlier answers.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded query/response pair. ResponseJSON holds the full
// aggregate response as serialized JSON.
type Entry struct {
	ID            int64     `json:"id"`
	RequestID     string    `json:"request_id"`
	Query         string    `json:"query"`
	Success       bool      `json:"success"`
	PrimaryIntent string    `json:"primary_intent"`
	ResponseJSON  string    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store is the SQLite-backed history.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS query_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	query TEXT NOT NULL,
	success INTEGER NOT NULL,
	primary_intent TEXT NOT NULL DEFAULT '',
	response_json TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_history_created_at ON query_history (created_at);
`

// Open creates or opens the history database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_history (request_id, query, success, primary_intent, response_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Query, e.Success, e.PrimaryIntent, e.ResponseJSON, createdAt)
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, query, success, primary_intent, response_json, created_at
		 FROM query_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Query, &e.Success,
			&e.PrimaryIntent, &e.ResponseJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Last returns the most recent entry, or nil when the history is empty.
func (s *Store) Last(ctx context.Context) (*Entry, error) {
	entries, err := s.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}
