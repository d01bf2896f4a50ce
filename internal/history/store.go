// Package history keeps an append-only sqlite archive of completed jobs.
// It backs the status endpoint's recent-results view and the batch
// validation reports. It is never read at startup to repopulate the
// queue: restarts begin with an empty registry.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes; old archives must be
// deleted on mismatch.
const schemaVersion = 1

// Entry is one archived job outcome.
type Entry struct {
	ID           int64
	ReportID     string
	UserID       string
	AppClass     string
	Steps        *int
	Status       string
	ProcessingMS int64
	FinishedAt   time.Time
}

// Store manages archive persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the archive database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("archive schema version %d, expected %d (delete %s)", version, schemaVersion, s.path)
	}
	return nil
}

// Record appends one completed job.
func (s *Store) Record(ctx context.Context, e Entry) error {
	var steps sql.NullInt64
	if e.Steps != nil {
		steps = sql.NullInt64{Int64: int64(*e.Steps), Valid: true}
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_history (
            report_id, user_id, app_class, steps, status, processing_ms, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ReportID,
		e.UserID,
		e.AppClass,
		steps,
		e.Status,
		e.ProcessingMS,
		e.FinishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Recent returns the latest n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_id, user_id, app_class, steps, status, processing_ms, finished_at
         FROM job_history ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			steps      sql.NullInt64
			finishedAt string
		)
		if err := rows.Scan(&e.ID, &e.ReportID, &e.UserID, &e.AppClass, &steps, &e.Status, &e.ProcessingMS, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if steps.Valid {
			v := int(steps.Int64)
			e.Steps = &v
		}
		if t, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			e.FinishedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns completed/failed totals recorded in the archive.
func (s *Store) Counts(ctx context.Context) (completed, failed int64, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM job_history GROUP BY status`)
	if err != nil {
		return 0, 0, fmt.Errorf("count history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return 0, 0, fmt.Errorf("scan count row: %w", err)
		}
		switch status {
		case "COMPLETED":
			completed = n
		case "FAILED":
			failed = n
		}
	}
	return completed, failed, rows.Err()
}
