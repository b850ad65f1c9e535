// Package async dispatches extraction jobs to background workers.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/warranty-tracker/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is the single descriptor handed to a worker.
type Job struct {
	JobID       uuid.UUID `json:"job_id"`
	DocumentID  uuid.UUID `json:"document_id"`
	UserID      uuid.UUID `json:"user_id"`
	ImagePath   string    `json:"image_path"`
	SubmittedAt time.Time `json:"submitted_at"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Request converts the descriptor into a pipeline request.
func (j Job) Request() pipeline.Request {
	return pipeline.Request{
		JobID:      j.JobID,
		DocumentID: j.DocumentID,
		UserID:     j.UserID,
		ImagePath:  j.ImagePath,
	}
}

func (j Job) validate() error {
	if j.JobID == uuid.Nil || j.DocumentID == uuid.Nil || j.UserID == uuid.Nil {
		return errors.New("job descriptor is missing an id")
	}
	if j.ImagePath == "" {
		return errors.New("job descriptor is missing image_path")
	}
	return nil
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler runs one job. *pipeline.Processor satisfies it.
type Handler interface {
	ProcessDocumentJob(ctx context.Context, req pipeline.Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req pipeline.Request) error

func (f HandlerFunc) ProcessDocumentJob(ctx context.Context, req pipeline.Request) error {
	return f(ctx, req)
}
