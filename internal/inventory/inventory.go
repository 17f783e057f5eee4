// Package inventory moves stock on product variants. Every mutation runs on
// the caller's transaction.
package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

// DecrementRequest asks for Qty units of VariantID.
type DecrementRequest struct {
	VariantID uuid.UUID
	Qty       int
	Label     string
}

// ReleaseRequest returns Qty units to VariantID.
type ReleaseRequest struct {
	VariantID *uuid.UUID
	Qty       int
}

// Decrement takes qty units from the variant only when enough are on hand.
// It reports false when the guard refused the update.
func Decrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction required")
	}
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := tx.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND quantity >= ?", variantID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementAll applies every request or fails with InsufficientStock naming
// the first refused line. Callers roll back the transaction on error.
func DecrementAll(ctx context.Context, tx *gorm.DB, requests []DecrementRequest) error {
	for _, req := range requests {
		ok, err := Decrement(ctx, tx, req.VariantID, req.Qty)
		if err != nil {
			return err
		}
		if !ok {
			return InsufficientStock(req.Label)
		}
	}
	return nil
}

// Release adds stock back for each request that still references a variant
// and returns the number of units restored. Deleted variants are skipped.
func Release(ctx context.Context, tx *gorm.DB, requests []ReleaseRequest) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction required")
	}
	units := 0
	for _, req := range requests {
		if req.VariantID == nil || req.Qty <= 0 {
			continue
		}
		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ?", *req.VariantID).
			Update("quantity", gorm.Expr("quantity + ?", req.Qty))
		if res.Error != nil {
			return units, res.Error
		}
		if res.RowsAffected == 1 {
			units += req.Qty
		}
	}
	return units, nil
}

// InsufficientStock builds the display-safe stock error for label.
func InsufficientStock(label string) error {
	msg := "Insufficient stock"
	if label != "" {
		msg = fmt.Sprintf("Insufficient stock for %q", label)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithReason(pkgerrors.ReasonInsufficientStock)
}

// ReleaseRequestsFor maps order items to release requests.
func ReleaseRequestsFor(items []models.OrderItem) []ReleaseRequest {
	out := make([]ReleaseRequest, 0, len(items))
	for _, item := range items {
		out = append(out, ReleaseRequest{VariantID: item.VariantID, Qty: item.Quantity})
	}
	return out
}
