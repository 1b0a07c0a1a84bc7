package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle of a generation job. Jobs are created
// pending, move to processing when the worker picks them up, and end in
// complete or error.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobComplete   JobStatus = "complete"
	JobError      JobStatus = "error"
)

// ResumeJob is one tailored-resume generation request and its progress.
type ResumeJob struct {
	ID             uuid.UUID              `json:"id"`
	UserID         uuid.UUID              `json:"user_id"`
	JobDescription string                 `json:"job_description"`
	Status         JobStatus              `json:"status"`
	Error          string                 `json:"error,omitempty"`
	Metadata       map[string]interface{} `json:"metadata"`
	ResumeID       *uuid.UUID             `json:"resume_id,omitempty"`
	Language       string                 `json:"language"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`

	// Overrides are user-supplied profile overrides applied on top of the
	// stored profile during generation.
	Overrides map[string]interface{} `json:"overrides,omitempty"`

	// Document is the validated resume document produced by the pipeline.
	Document map[string]interface{} `json:"document,omitempty"`

	// PDF holds the rendered artifact once the job completes.
	PDF []byte `json:"-"`
}

// Clone returns a copy safe to hand across goroutine boundaries; map
// values are shared but the job header is independent.
func (j *ResumeJob) Clone() *ResumeJob {
	if j == nil {
		return nil
	}
	c := *j
	return &c
}
