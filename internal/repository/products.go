package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joseph-ayodele/warranty-tracker/internal/entity"
)

const productColumns = `id, user_id, title, category, purchase_date, amount, store, order_id,
	refund_deadline, warranty_end_date, as_contact, image_path, raw_text, created_at, updated_at`

type ProductRepository struct {
	ext sqlx.ExtContext
	now func() time.Time
	log *slog.Logger
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt

	q := r.ext.Rebind(`INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.ext.ExecContext(ctx, q,
		p.ID, p.UserID, p.Title, p.Category, p.PurchaseDate, p.Amount, p.Store, p.OrderID,
		p.RefundDeadline, p.WarrantyEndDate, p.ASContact, p.ImagePath, p.RawText, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		r.log.Error("repo.product.create_failed", "product_id", p.ID, "err", err)
		return dbErr(err, "create product")
	}
	r.log.Debug("repo.product.created", "product_id", p.ID)
	return nil
}

func (r *ProductRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*entity.Product, error) {
	var p entity.Product
	q := r.ext.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ? AND user_id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &p, q, id, userID); err != nil {
		return nil, notFound(err, "get product")
	}
	return &p, nil
}

// ListForUser returns a user's products ordered by purchase date, newest first.
func (r *ProductRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]entity.Product, error) {
	var out []entity.Product
	q := r.ext.Rebind(`SELECT ` + productColumns + ` FROM products WHERE user_id = ?
		ORDER BY purchase_date IS NULL, purchase_date DESC, created_at DESC`)
	if err := sqlx.SelectContext(ctx, r.ext, &out, q, userID); err != nil {
		return nil, dbErr(err, "list products")
	}
	return out, nil
}
