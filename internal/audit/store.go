// Package audit persists one durable record per HTTP request/response
// pair. Writes are best-effort: a failed audit write is logged and
// counted but never surfaced to the request that produced it.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one captured request/response pair.
type Entry struct {
	ID           int64
	RequestData  string
	ResponseData string
	Timestamp    time.Time
}

// Store persists audit entries in SQLite. The id column is assigned by
// the database, so concurrent appends from independent requests need no
// coordination here.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS api_logs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		request_data  TEXT NOT NULL,
		response_data TEXT NOT NULL,
		timestamp     DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_api_logs_timestamp ON api_logs(timestamp);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert appends one entry in its own transaction. Each call acquires
// and releases its own scoped session; nothing is shared across
// concurrent requests.
func (s *Store) Insert(ctx context.Context, entry Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO api_logs (request_data, response_data, timestamp) VALUES (?, ?, ?)`,
		entry.RequestData, entry.ResponseData, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return tx.Commit()
}

// Recent returns the most recent n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_data, response_data, timestamp FROM api_logs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RequestData, &e.ResponseData, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_logs`).Scan(&n)
	return n, err
}
