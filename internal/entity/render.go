package entity

import (
	"time"

	"github.com/google/uuid"
)

// Helpers for ToMap: absent values render as nil so JSON shows null.

func uuidPtr(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func strPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func date(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Format(time.DateOnly)
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func jsonMap(m JSONMap) any {
	if m == nil {
		return nil
	}
	return map[string]any(m)
}

// Ptr returns a pointer to v, for optional columns.
func Ptr[T any](v T) *T { return &v }
