package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/image-upscaler/backend/internal/models"
	"golang.org/x/sync/semaphore"
)

// History receives every job once it has finished.
type History interface {
	Record(ctx context.Context, job models.Job) error
}

// Manager tracks upscale jobs and bounds how many run at once.
type Manager struct {
	jobs    map[string]*models.Job
	mu      sync.RWMutex
	sem     *semaphore.Weighted
	history History
	log     *slog.Logger
}

// NewManager creates a job manager running at most maxConcurrent jobs in parallel.
// history may be nil.
func NewManager(log *slog.Logger, maxConcurrent int, history History) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Manager{
		jobs:    make(map[string]*models.Job),
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		history: history,
		log:     log,
	}
}

// Run registers a job and executes fn once a slot is free; fn returns the size
// of the produced output. Run blocks until fn returns or ctx is done while the
// job is still queued. The returned job is a snapshot.
func (m *Manager) Run(ctx context.Context, fileName string, inputSize int64, fn func(ctx context.Context) (int64, error)) (models.Job, error) {
	job := models.NewJob(uuid.New().String(), fileName, inputSize)

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.log.DebugContext(ctx, "job queued", slog.String("job_id", job.ID), slog.String("file", fileName))

	if err := m.sem.Acquire(ctx, 1); err != nil {
		err = fmt.Errorf("waiting for a free worker: %w", err)
		return m.finish(ctx, job, 0, err), err
	}
	defer m.sem.Release(1)

	m.mu.Lock()
	job.Status = models.JobStatusProcessing
	m.mu.Unlock()

	m.log.InfoContext(ctx, "job started", slog.String("job_id", job.ID), slog.String("file", fileName))

	start := time.Now()
	outputSize, err := fn(ctx)

	m.mu.Lock()
	job.ProcessingTimeMs = time.Since(start).Milliseconds()
	m.mu.Unlock()

	return m.finish(ctx, job, outputSize, err), err
}

// finish marks the job complete or failed and hands it to the history sink.
func (m *Manager) finish(ctx context.Context, job *models.Job, outputSize int64, err error) models.Job {
	m.mu.Lock()
	now := time.Now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = models.JobStatusError
		job.Error = err.Error()
	} else {
		job.Status = models.JobStatusComplete
		job.OutputSize = outputSize
	}
	snapshot := *job
	m.mu.Unlock()

	if err != nil {
		m.log.WarnContext(ctx, "job failed", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	} else {
		m.log.InfoContext(ctx, "job complete",
			slog.String("job_id", job.ID),
			slog.Int64("output_size", outputSize),
			slog.Int64("processing_time_ms", snapshot.ProcessingTimeMs),
		)
	}

	if m.history != nil {
		// The request context may already be cancelled; the record should still land.
		if herr := m.history.Record(context.WithoutCancel(ctx), snapshot); herr != nil {
			m.log.ErrorContext(ctx, "failed to record job history", slog.String("job_id", job.ID), slog.String("error", herr.Error()))
		}
	}

	return snapshot
}

// GetJob retrieves a snapshot of a job by ID.
func (m *Manager) GetJob(id string) (models.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// List returns snapshots of the most recent jobs, newest first.
func (m *Manager) List(limit int) []models.Job {
	m.mu.RLock()
	list := make([]models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		list = append(list, *job)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// CleanupOldJobs removes finished jobs completed before now-maxAge.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range m.jobs {
		if job.Finished() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
