// Package server exposes jobs, documents and products over gRPC and HTTP.
// Every payload leaves through a response-redaction pass.
package server

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/ingest"
	"github.com/joseph-ayodele/warranty-tracker/internal/repository"
)

const defaultListLimit = 50

// Store hands out user-scoped repositories. *repository.Store satisfies it.
type Store interface {
	Repos() repository.Repos
}

// Submitter registers documents for extraction. *ingest.Service satisfies it.
type Submitter interface {
	Submit(ctx context.Context, userID uuid.UUID, path string) (ingest.Result, error)
	Upload(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (ingest.Result, error)
}

// Exporter renders products. *export.Service satisfies it.
type Exporter interface {
	ProductsXLSX(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]byte, error)
}

// Service holds the transport-independent handlers. Results are plain maps so
// both transports can run the same redaction over them.
type Service struct {
	store    Store
	ingest   Submitter
	exporter Exporter
	logger   *slog.Logger
}

func NewService(store Store, ing Submitter, exp Exporter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, ingest: ing, exporter: exp, logger: logger}
}

func (s *Service) GetJob(ctx context.Context, userID, id uuid.UUID) (map[string]any, error) {
	job, err := s.store.Repos().Jobs.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return job.ToMap(), nil
}

func (s *Service) ListJobs(ctx context.Context, userID uuid.UUID, limit int) (map[string]any, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	jobs, err := s.store.Repos().Jobs.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, j.ToMap())
	}
	return map[string]any{"items": items}, nil
}

func (s *Service) GetDocument(ctx context.Context, userID, id uuid.UUID) (map[string]any, error) {
	doc, err := s.store.Repos().Documents.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return doc.ToMap(), nil
}

func (s *Service) GetProduct(ctx context.Context, userID, id uuid.UUID) (map[string]any, error) {
	p, err := s.store.Repos().Products.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return p.ToMap(), nil
}

func (s *Service) ListProducts(ctx context.Context, userID uuid.UUID) (map[string]any, error) {
	ps, err := s.store.Repos().Products.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(ps))
	for _, p := range ps {
		items = append(items, p.ToMap())
	}
	return map[string]any{"items": items}, nil
}

// SubmitDocument registers a file already on the server's disk.
func (s *Service) SubmitDocument(ctx context.Context, userID uuid.UUID, path string) (map[string]any, error) {
	if err := common.NewValidator().Field("path", path, common.Required).Err(); err != nil {
		return nil, err
	}
	res, err := s.ingest.Submit(ctx, userID, path)
	if err != nil {
		return nil, err
	}
	return submitted(res), nil
}

// UploadDocument stores the stream and registers it.
func (s *Service) UploadDocument(ctx context.Context, userID uuid.UUID, filename string, r io.Reader) (map[string]any, error) {
	res, err := s.ingest.Upload(ctx, userID, filename, r)
	if err != nil {
		return nil, err
	}
	return submitted(res), nil
}

func (s *Service) ExportProducts(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]byte, error) {
	return s.exporter.ProductsXLSX(ctx, userID, from, to)
}

func submitted(r ingest.Result) map[string]any {
	return map[string]any{
		"document_id": r.DocumentID.String(),
		"job_id":      r.JobID.String(),
		"title":       r.Title,
		"status":      "PENDING",
	}
}

// parseIDs validates the user id and, when idField is set, the resource id.
func parseIDs(userID, idField, id string) (uuid.UUID, uuid.UUID, error) {
	v := common.NewValidator().Field("user_id", userID, common.Required, common.UUID)
	if idField != "" {
		v.Field(idField, id, common.Required, common.UUID)
	}
	if err := v.Err(); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	u := uuid.MustParse(userID)
	if idField == "" {
		return u, uuid.Nil, nil
	}
	return u, uuid.MustParse(id), nil
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, common.NewAppError("VALIDATION_ERROR", "field '"+field+"' must be YYYY-MM-DD", common.ErrValidation)
	}
	return &t, nil
}
