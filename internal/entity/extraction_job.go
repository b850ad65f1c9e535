package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/warranty-tracker/constants"
)

// ExtractionJob is one ingestion attempt for a document.
type ExtractionJob struct {
	ID         uuid.UUID           `db:"id" json:"id"`
	UserID     uuid.UUID           `db:"user_id" json:"user_id"`
	DocumentID *uuid.UUID          `db:"document_id" json:"document_id,omitempty"`
	ProductID  *uuid.UUID          `db:"product_id" json:"product_id,omitempty"`
	Status     constants.JobStatus `db:"status" json:"status"`
	Error      *string             `db:"error" json:"error,omitempty"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}

// ToMap renders the job the way API responses carry it.
func (j ExtractionJob) ToMap() map[string]any {
	return map[string]any{
		"id":          j.ID.String(),
		"user_id":     j.UserID.String(),
		"document_id": uuidPtr(j.DocumentID),
		"product_id":  uuidPtr(j.ProductID),
		"status":      j.Status.String(),
		"error":       strPtr(j.Error),
		"created_at":  timestamp(j.CreatedAt),
		"updated_at":  timestamp(j.UpdatedAt),
	}
}
