// Package ingest turns uploaded or dropped files into documents with a pending job.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/warranty-tracker/internal/repository"
)

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath string    `json:"source_path"`
	DocumentID uuid.UUID `json:"document_id"`
	JobID      uuid.UUID `json:"job_id"`
	Title      string    `json:"title"`
	QueuedAt   time.Time `json:"queued_at"`
	Err        string    `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// Store is the transactional persistence ingest needs.
type Store interface {
	InTx(ctx context.Context, fn func(repository.Repos) error) error
}
