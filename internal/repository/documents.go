package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/entity"
)

const documentColumns = `id, user_id, product_id, title, image_path, raw_text, parsed_fields, evidence, created_at, updated_at`

// DocumentRepository persists uploaded documents. Callers pass text and
// structures that are already redacted.
type DocumentRepository struct {
	ext sqlx.ExtContext
	now func() time.Time
	log *slog.Logger
}

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	doc.CreatedAt = r.now()
	doc.UpdatedAt = doc.CreatedAt

	q := r.ext.Rebind(`INSERT INTO documents (` + documentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.ext.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.ProductID, doc.Title, doc.ImagePath, doc.RawText,
		doc.ParsedFields, doc.Evidence, doc.CreatedAt, doc.UpdatedAt,
	); err != nil {
		r.log.Error("repo.document.create_failed", "document_id", doc.ID, "err", err)
		return dbErr(err, "create document")
	}
	return nil
}

func (r *DocumentRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*entity.Document, error) {
	var doc entity.Document
	q := r.ext.Rebind(`SELECT ` + documentColumns + ` FROM documents WHERE id = ? AND user_id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &doc, q, id, userID); err != nil {
		return nil, notFound(err, "get document")
	}
	return &doc, nil
}

// SetRawText stores the redacted OCR text.
func (r *DocumentRepository) SetRawText(ctx context.Context, id, userID uuid.UUID, rawText string) error {
	q := r.ext.Rebind(`UPDATE documents SET raw_text = ?, updated_at = ? WHERE id = ? AND user_id = ?`)
	return r.expectOne(ctx, "set document raw text", q, rawText, r.now(), id, userID)
}

// LinkProduct attaches the product and stores the redacted parse results.
func (r *DocumentRepository) LinkProduct(ctx context.Context, id, userID, productID uuid.UUID, parsed, evidence entity.JSONMap) error {
	q := r.ext.Rebind(`UPDATE documents SET product_id = ?, parsed_fields = ?, evidence = ?, updated_at = ? WHERE id = ? AND user_id = ?`)
	return r.expectOne(ctx, "link document", q, productID, parsed, evidence, r.now(), id, userID)
}

func (r *DocumentRepository) expectOne(ctx context.Context, what, q string, args ...any) error {
	res, err := r.ext.ExecContext(ctx, q, args...)
	if err != nil {
		r.log.Error("repo.document.update_failed", "op", what, "err", err)
		return dbErr(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(err, what)
	}
	if n == 0 {
		return common.WrapError(common.ErrNotFound, what)
	}
	return nil
}
