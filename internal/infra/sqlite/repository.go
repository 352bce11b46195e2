// Package sqlite keeps the run ledger in an embedded database, one record
// per processed video.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/diangao/vid2script/internal/domain/entity"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	model          TEXT NOT NULL,
	status         TEXT NOT NULL,
	chunk_count    INTEGER NOT NULL DEFAULT 0,
	turn_count     INTEGER NOT NULL DEFAULT 0,
	skipped_chunks INTEGER NOT NULL DEFAULT 0,
	video_duration REAL NOT NULL DEFAULT 0,
	output_path    TEXT NOT NULL DEFAULT '',
	error_message  TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	completed_at   TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

type RunRepository struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path.
func Open(path string) (*RunRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &RunRepository{db: db}, nil
}

func (r *RunRepository) Close() error {
	return r.db.Close()
}

func (r *RunRepository) Create(ctx context.Context, run *entity.Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, source, model, status, chunk_count, turn_count, skipped_chunks,
			video_duration, output_path, error_message, created_at, updated_at, completed_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID.String(), run.Source, run.Model, string(run.Status),
		run.ChunkCount, run.TurnCount, run.SkippedChunks,
		run.VideoDuration, run.OutputPath, run.ErrorMessage,
		run.CreatedAt.Format(time.RFC3339Nano), run.UpdatedAt.Format(time.RFC3339Nano),
		nullTime(run.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *entity.Run) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET
			status=?, chunk_count=?, turn_count=?, skipped_chunks=?,
			video_duration=?, output_path=?, error_message=?, updated_at=?, completed_at=?
		WHERE id=?`,
		string(run.Status), run.ChunkCount, run.TurnCount, run.SkippedChunks,
		run.VideoDuration, run.OutputPath, run.ErrorMessage,
		run.UpdatedAt.Format(time.RFC3339Nano), nullTime(run.CompletedAt),
		run.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRecent returns the newest runs, most recent first. It backs the
// -list-runs report in cmd/vid2script.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, model, status, chunk_count, turn_count, skipped_chunks,
			video_duration, output_path, error_message, created_at, updated_at, completed_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.Run, error) {
	var (
		run                          entity.Run
		id, status, created, updated string
		completed                    sql.NullString
	)
	if err := s.Scan(
		&id, &run.Source, &run.Model, &status,
		&run.ChunkCount, &run.TurnCount, &run.SkippedChunks,
		&run.VideoDuration, &run.OutputPath, &run.ErrorMessage,
		&created, &updated, &completed,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	run.ID = parsed
	run.Status = entity.RunStatus(status)
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, err
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}
