package models

import "time"

// JobStatus represents the status of an upscale job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// Job represents a single /process request.
type Job struct {
	ID               string     `json:"id" msgpack:"id"`
	FileName         string     `json:"fileName" msgpack:"fileName"`
	InputSize        int64      `json:"inputSize" msgpack:"inputSize"`
	OutputSize       int64      `json:"outputSize,omitempty" msgpack:"outputSize,omitempty"`
	Status           JobStatus  `json:"status" msgpack:"status"`
	Error            string     `json:"error,omitempty" msgpack:"error,omitempty"`
	ProcessingTimeMs int64      `json:"processingTimeMs,omitempty" msgpack:"processingTimeMs,omitempty"`
	CreatedAt        time.Time  `json:"createdAt" msgpack:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty" msgpack:"completedAt,omitempty"`
}

// NewJob creates a new Job in queued status.
func NewJob(id, fileName string, inputSize int64) *Job {
	return &Job{
		ID:        id,
		FileName:  fileName,
		InputSize: inputSize,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
}

// Finished reports whether the job reached a terminal status.
func (j *Job) Finished() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusError
}
