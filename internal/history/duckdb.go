// Package history persists finished upscale jobs in a DuckDB file.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"sync"

	"github.com/image-upscaler/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

// DuckHistory is a job log backed by DuckDB.
type DuckHistory struct {
	db     *sql.DB
	dbPath string
	log    *slog.Logger

	// DuckDB allows a single writer; serialize inserts from concurrent jobs.
	writeMu sync.Mutex
}

// Open opens (or creates) the history database at dbPath.
func Open(ctx context.Context, log *slog.Logger, dbPath string) (*DuckHistory, error) {
	log.DebugContext(ctx, "opening job history", slog.String("path", dbPath))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=1",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id                 VARCHAR PRIMARY KEY,
			file_name          VARCHAR NOT NULL,
			input_size         BIGINT NOT NULL,
			output_size        BIGINT,
			status             VARCHAR NOT NULL,
			error              VARCHAR,
			processing_time_ms BIGINT,
			created_at         TIMESTAMP NOT NULL,
			completed_at       TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}

	return &DuckHistory{db: db, dbPath: dbPath, log: log}, nil
}

// Record stores a finished job. Recording the same job twice replaces the row.
func (h *DuckHistory) Record(ctx context.Context, job models.Job) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	var completedAt any
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs
			(id, file_name, input_size, output_size, status, error, processing_time_ms, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.FileName, job.InputSize, job.OutputSize, string(job.Status),
		job.Error, job.ProcessingTimeMs, job.CreatedAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}
	return nil
}

// Recent returns up to limit jobs, newest first.
func (h *DuckHistory) Recent(ctx context.Context, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, file_name, input_size, output_size, status, error, processing_time_ms, created_at, completed_at
		FROM jobs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var (
			job         models.Job
			status      string
			outputSize  sql.NullInt64
			errMsg      sql.NullString
			procTime    sql.NullInt64
			completedAt sql.NullTime
		)
		if err := rows.Scan(&job.ID, &job.FileName, &job.InputSize, &outputSize, &status,
			&errMsg, &procTime, &job.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		job.Status = models.JobStatus(status)
		job.OutputSize = outputSize.Int64
		job.Error = errMsg.String
		job.ProcessingTimeMs = procTime.Int64
		if completedAt.Valid {
			t := completedAt.Time
			job.CompletedAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Count returns the number of recorded jobs.
func (h *DuckHistory) Count(ctx context.Context) (int, error) {
	var n int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting jobs: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (h *DuckHistory) Close() error {
	h.log.Debug("closing job history", slog.String("path", h.dbPath))
	return h.db.Close()
}
