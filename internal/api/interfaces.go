// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/image-upscaler/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// ProcessHandler handles image upscale requests
type ProcessHandler interface {
	HandleProcess(c echo.Context) error
}

// JobsHandler exposes job status and history
type JobsHandler interface {
	HandleListJobs(c echo.Context) error
	HandleListJobsMsgpack(c echo.Context) error
	HandleGetJob(c echo.Context) error
	HandleHistory(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// JobRunner runs upscale work as tracked jobs.
// This allows mocking in tests
type JobRunner interface {
	Run(ctx context.Context, fileName string, inputSize int64, fn func(ctx context.Context) (int64, error)) (models.Job, error)
}

// JobLister reads jobs tracked in memory
type JobLister interface {
	GetJob(id string) (models.Job, bool)
	List(limit int) []models.Job
}

// JobTracker runs and lists jobs
type JobTracker interface {
	JobRunner
	JobLister
}

// HistoryReader reads persisted jobs
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]models.Job, error)
}
