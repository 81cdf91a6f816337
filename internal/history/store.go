// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package history persists download jobs and their outcomes in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/ytdlq/internal/download"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/persistence/sqlite"
)

// ErrNotFound is returned by Get for an unknown job id.
var ErrNotFound = errors.New("history record not found")

var migrations = []string{
	`
	CREATE TABLE jobs (
		job_id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		height INTEGER NOT NULL,
		format TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('queued', 'running', 'completed', 'failed', 'cancelled')),
		percent REAL NOT NULL DEFAULT 0,
		file_path TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT
	);
	CREATE INDEX idx_jobs_created_at ON jobs(created_at);
	CREATE INDEX idx_jobs_status ON jobs(status);
	`,
}

const selectColumns = `job_id, url, title, height, format, status, percent, file_path, error, created_at, started_at, finished_at`

// Store provides SQLite persistence for job history.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the history database at path and brings
// its schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if _, err := sqlite.Migrate(ctx, db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, logger: xlog.WithComponent("history")}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// MarkQueued inserts a new record for job. Re-inserting a known id is a
// no-op.
func (s *Store) MarkQueued(ctx context.Context, job download.Job) error {
	url, title := "", ""
	if job.Source != nil {
		url, title = job.Source.URL(), job.Source.Title()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO jobs (job_id, url, title, height, format, status, created_at)
	VALUES (?, ?, ?, ?, ?, 'queued', ?)
	ON CONFLICT(job_id) DO NOTHING
	`, job.ID, url, title, job.Quality.Height, download.FormatSelector(job.Quality), formatTime(job.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// MarkRunning moves a queued record to running.
func (s *Store) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, "running", `
	UPDATE jobs SET status = 'running', started_at = ?
	WHERE job_id = ? AND status = 'queued'
	`, formatTime(at), id)
}

// MarkProgress records a percentage for a running job. Progress never moves
// backwards.
func (s *Store) MarkProgress(ctx context.Context, id string, percent float64) error {
	return s.update(ctx, id, "progress", `
	UPDATE jobs SET percent = ?
	WHERE job_id = ? AND status = 'running' AND percent < ?
	`, percent, id, percent)
}

// MarkCompleted records the final file of a job.
func (s *Store) MarkCompleted(ctx context.Context, id, filePath string, at time.Time) error {
	return s.update(ctx, id, "completed", `
	UPDATE jobs SET status = 'completed', percent = 100, file_path = ?, finished_at = ?
	WHERE job_id = ? AND status IN ('queued', 'running')
	`, filePath, formatTime(at), id)
}

// MarkFailed records the raw failure text of a job.
func (s *Store) MarkFailed(ctx context.Context, id, detail string, at time.Time) error {
	return s.update(ctx, id, "failed", `
	UPDATE jobs SET status = 'failed', error = ?, finished_at = ?
	WHERE job_id = ? AND status IN ('queued', 'running')
	`, detail, formatTime(at), id)
}

// MarkCancelled records a job removed from the queue.
func (s *Store) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, "cancelled", `
	UPDATE jobs SET status = 'cancelled', finished_at = ?
	WHERE job_id = ? AND status IN ('queued', 'running')
	`, formatTime(at), id)
}

// update runs a guarded transition. A transition that matches no row (an
// unknown id or a record already past that state) is not an error.
func (s *Store) update(ctx context.Context, id, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s job %s: %w", op, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 && op != "progress" {
		s.logger.Debug().Str(xlog.FieldJobID, id).Str("op", op).Msg("history transition skipped")
	}
	return nil
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM jobs WHERE job_id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + selectColumns + ` FROM jobs`
	args := []any{}
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, job_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes finished records older than before and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	DELETE FROM jobs
	WHERE status IN ('completed', 'failed', 'cancelled') AND finished_at < ?
	`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r                 Record
		status, created   string
		started, finished sql.NullString
	)
	if err := sc.Scan(&r.JobID, &r.URL, &r.Title, &r.Height, &r.Format, &status, &r.Percent,
		&r.FilePath, &r.Error, &created, &started, &finished); err != nil {
		return Record{}, err
	}
	r.Status = Status(status)
	r.CreatedAt = parseTime(created)
	if started.Valid {
		t := parseTime(started.String)
		r.StartedAt = &t
	}
	if finished.Valid {
		t := parseTime(finished.String)
		r.FinishedAt = &t
	}
	return r, nil
}

// Times are stored as fixed-width UTC text so lexical order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
