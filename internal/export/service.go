// Package export renders a user's products as a spreadsheet.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/warranty-tracker/internal/entity"
	"github.com/joseph-ayodele/warranty-tracker/internal/redact"
)

const sheet = "Products"

// ProductLister lists a user's products. *repository.ProductRepository satisfies it.
type ProductLister interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]entity.Product, error)
}

// Service produces XLSX bytes for exports. Every text cell is redacted.
type Service struct {
	products ProductLister
	redact   redact.Engine
	logger   *slog.Logger
}

func NewService(products ProductLister, strict bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{products: products, redact: redact.New(strict), logger: logger}
}

var headers = []string{
	"Purchase Date",
	"Product",
	"Category",
	"Store",
	"Amount",
	"Order ID",
	"Refund Deadline",
	"Warranty End",
	"A/S Contact",
	"File Path",
}

// ProductsXLSX returns a workbook of userID's products whose purchase date falls in the window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all products, including those without a purchase date.
func (s *Service) ProductsXLSX(ctx context.Context, userID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	fromDate, toDate := dateOnly(from), dateOnly(to)
	if fromDate != nil && toDate == nil {
		toDate = dateOnly(entity.Ptr(time.Now().UTC()))
	}

	all, err := s.products.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	rows := make([]entity.Product, 0, len(all))
	for _, p := range all {
		if inWindow(p.PurchaseDate, fromDate, toDate) {
			rows = append(rows, p)
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, p := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, formatDate(p.PurchaseDate))
		write(2, s.text(&p.Title))
		write(3, s.text(p.Category))
		write(4, s.text(p.Store))
		if p.Amount != nil {
			write(5, *p.Amount)
		}
		write(6, s.text(p.OrderID))
		write(7, formatDate(p.RefundDeadline))
		write(8, formatDate(p.WarrantyEndDate))
		write(9, s.text(p.ASContact))
		write(10, s.text(&p.ImagePath))
	}

	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "D", 20)
	_ = f.SetColWidth(sheet, "E", "E", 14)
	_ = f.SetColWidth(sheet, "F", "F", 20)
	_ = f.SetColWidth(sheet, "G", "H", 14)
	_ = f.SetColWidth(sheet, "I", "I", 18)
	_ = f.SetColWidth(sheet, "J", "J", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID.String(),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) text(v *string) string {
	if v == nil {
		return ""
	}
	return s.redact.Text(*v)
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func inWindow(d, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if d == nil {
		return false
	}
	day := dateOnly(d)
	if from != nil && day.Before(*from) {
		return false
	}
	if to != nil && day.After(*to) {
		return false
	}
	return true
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
