package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
)

// AttachDiscount links a discount to the cart. It reports false when the
// discount was already attached.
func (r *Repository) AttachDiscount(ctx context.Context, cartID, discountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CartDiscount{}).
		Where("cart_id = ? AND discount_id = ?", cartID, discountID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	link := models.CartDiscount{CartID: cartID, DiscountID: discountID}
	if err := r.db.WithContext(ctx).Create(&link).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_cart_discounts_cart_discount") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Repository) DetachDiscount(ctx context.Context, cartID, discountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND discount_id = ?", cartID, discountID).
		Delete(&models.CartDiscount{}).Error
}

// ClearDiscounts drops every discount link of the cart.
func (r *Repository) ClearDiscounts(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartDiscount{}).Error
}

// ListDiscountIDs returns attached discount ids in attach order.
func (r *Repository) ListDiscountIDs(ctx context.Context, cartID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.CartDiscount{}).
		Where("cart_id = ?", cartID).
		Order("created_at ASC, id ASC").
		Pluck("discount_id", &ids).Error
	return ids, err
}
