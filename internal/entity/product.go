package entity

import (
	"time"

	"github.com/google/uuid"
)

// Product is the normalized outcome of a successful job. Amount is in the
// smallest currency unit.
type Product struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	Title           string     `db:"title" json:"title"`
	Category        *string    `db:"category" json:"category,omitempty"`
	PurchaseDate    *time.Time `db:"purchase_date" json:"purchase_date,omitempty"`
	Amount          *int64     `db:"amount" json:"amount,omitempty"`
	Store           *string    `db:"store" json:"store,omitempty"`
	OrderID         *string    `db:"order_id" json:"order_id,omitempty"`
	RefundDeadline  *time.Time `db:"refund_deadline" json:"refund_deadline,omitempty"`
	WarrantyEndDate *time.Time `db:"warranty_end_date" json:"warranty_end_date,omitempty"`
	ASContact       *string    `db:"as_contact" json:"as_contact,omitempty"`
	ImagePath       string     `db:"image_path" json:"image_path"`
	RawText         *string    `db:"raw_text" json:"raw_text,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (p Product) ToMap() map[string]any {
	var amount any
	if p.Amount != nil {
		amount = *p.Amount
	}
	return map[string]any{
		"id":                p.ID.String(),
		"user_id":           p.UserID.String(),
		"title":             p.Title,
		"category":          strPtr(p.Category),
		"purchase_date":     date(p.PurchaseDate),
		"amount":            amount,
		"store":             strPtr(p.Store),
		"order_id":          strPtr(p.OrderID),
		"refund_deadline":   date(p.RefundDeadline),
		"warranty_end_date": date(p.WarrantyEndDate),
		"as_contact":        strPtr(p.ASContact),
		"image_path":        p.ImagePath,
		"raw_text":          strPtr(p.RawText),
		"created_at":        timestamp(p.CreatedAt),
		"updated_at":        timestamp(p.UpdatedAt),
	}
}
