// SPDX-License-Identifier: MIT

// Package history persists a record of every check run in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history store closed")

// Run is one persisted check run.
type Run struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	Status       string        `json:"status"`
	Declarations int           `json:"declarations"`
	Conflicts    int           `json:"conflicts"`
	Report       string        `json:"report"`
	Error        string        `json:"error,omitempty"`
}

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the configuration used by portcheck serve.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT    NOT NULL UNIQUE,
	started_at   INTEGER NOT NULL,
	duration_ns  INTEGER NOT NULL,
	status       TEXT    NOT NULL,
	declarations INTEGER NOT NULL,
	conflicts    INTEGER NOT NULL,
	report       TEXT    NOT NULL,
	error        TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

// Store is a SQLite backed run history.
type Store struct {
	db *sql.DB
}

// Open initializes the database at path with WAL mode and busy_timeout applied to every
// pooled connection, and creates the schema if needed.
func Open(ctx context.Context, path string, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores a run.
func (s *Store) Record(ctx context.Context, r Run) error {
	if s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, duration_ns, status, declarations, conflicts, report, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.UnixNano(), int64(r.Duration), r.Status,
		r.Declarations, r.Conflicts, r.Report, r.Error)
	if err != nil {
		return fmt.Errorf("history: record run %s: %w", r.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, duration_ns, status, declarations, conflicts, report, error
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			startedAt int64
			duration  int64
		)
		if err := rows.Scan(&r.RunID, &startedAt, &duration, &r.Status,
			&r.Declarations, &r.Conflicts, &r.Report, &r.Error); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, startedAt).UTC()
		r.Duration = time.Duration(duration)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return runs, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("history: ping failed: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
