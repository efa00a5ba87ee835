// handlers_jobs.go - Job status and history handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultJobsLimit = 50

// JobsHandlerImpl implements the JobsHandler interface
type JobsHandlerImpl struct {
	jobs    JobLister
	history HistoryReader
}

// NewJobsHandler creates a new jobs handler. history may be nil.
func NewJobsHandler(jobs JobLister, history HistoryReader) JobsHandler {
	return &JobsHandlerImpl{
		jobs:    jobs,
		history: history,
	}
}

// HandleListJobs returns recent in-memory jobs
func (h *JobsHandlerImpl) HandleListJobs(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	list := h.jobs.List(limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"total": len(list),
	})
}

// HandleListJobsMsgpack returns recent in-memory jobs encoded as msgpack
func (h *JobsHandlerImpl) HandleListJobsMsgpack(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	list := h.jobs.List(limit)

	data, err := msgpack.Marshal(map[string]interface{}{
		"jobs":  list,
		"total": len(list),
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetJob returns a single job
func (h *JobsHandlerImpl) HandleGetJob(c echo.Context) error {
	id := c.Param("id")
	job, ok := h.jobs.GetJob(id)
	if !ok {
		return NewNotFoundError("job", id)
	}
	return c.JSON(http.StatusOK, job)
}

// HandleHistory returns persisted jobs
func (h *JobsHandlerImpl) HandleHistory(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("job history is disabled")
	}

	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	list, err := h.history.Recent(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to read job history", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"total": len(list),
	})
}

func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultJobsLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, NewBadRequestError("limit must be a positive integer", err)
	}
	return limit, nil
}
