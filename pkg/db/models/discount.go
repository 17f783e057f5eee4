package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wixandwax/storefront-backend/pkg/enums"
)

// Discount rows are never deleted once used; UsedCount is history.
type Discount struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code        string             `gorm:"column:code;not null;uniqueIndex"`
	Description *string            `gorm:"column:description"`
	Type        enums.DiscountType `gorm:"column:type;type:varchar(16);not null"`
	Value       decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MinPurchase *decimal.Decimal   `gorm:"column:min_purchase;type:numeric(12,2)"`
	MaxUses     *int               `gorm:"column:max_uses"`
	UsedCount   int                `gorm:"column:used_count;not null"`
	StartsAt    *time.Time         `gorm:"column:starts_at"`
	EndsAt      *time.Time         `gorm:"column:ends_at"`
	IsActive    bool               `gorm:"column:is_active;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ActiveAt reports whether the discount is switched on and inside its window.
func (d Discount) ActiveAt(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.StartsAt != nil && d.StartsAt.After(now) {
		return false
	}
	if d.EndsAt != nil && d.EndsAt.Before(now) {
		return false
	}
	return true
}

// Exhausted reports whether MaxUses has been reached.
func (d Discount) Exhausted() bool {
	return d.MaxUses != nil && d.UsedCount >= *d.MaxUses
}

// MeetsMinimum reports whether subtotal satisfies MinPurchase.
func (d Discount) MeetsMinimum(subtotal decimal.Decimal) bool {
	return d.MinPurchase == nil || subtotal.GreaterThanOrEqual(*d.MinPurchase)
}
