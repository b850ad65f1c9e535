package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded artifact with its redacted OCR output.
type Document struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	ProductID    *uuid.UUID `db:"product_id" json:"product_id,omitempty"`
	Title        string     `db:"title" json:"title"`
	ImagePath    string     `db:"image_path" json:"image_path"`
	RawText      *string    `db:"raw_text" json:"raw_text,omitempty"`
	ParsedFields JSONMap    `db:"parsed_fields" json:"parsed_fields,omitempty"`
	Evidence     JSONMap    `db:"evidence" json:"evidence,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (d Document) ToMap() map[string]any {
	return map[string]any{
		"id":            d.ID.String(),
		"user_id":       d.UserID.String(),
		"product_id":    uuidPtr(d.ProductID),
		"title":         d.Title,
		"image_path":    d.ImagePath,
		"raw_text":      strPtr(d.RawText),
		"parsed_fields": jsonMap(d.ParsedFields),
		"evidence":      jsonMap(d.Evidence),
		"created_at":    timestamp(d.CreatedAt),
		"updated_at":    timestamp(d.UpdatedAt),
	}
}
