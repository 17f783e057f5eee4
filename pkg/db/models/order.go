package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

// Order is immutable after checkout except for its status fields, notes and
// payment bookkeeping.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string                  `gorm:"column:order_number;not null;uniqueIndex"`
	UserID            *uuid.UUID              `gorm:"column:user_id;type:uuid;index"`
	Email             string                  `gorm:"column:email;not null"`
	Status            enums.OrderStatus       `gorm:"column:status;type:varchar(16);not null"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:varchar(16);not null"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:varchar(16);not null"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount          decimal.Decimal         `gorm:"column:discount;type:numeric(12,2);not null"`
	Tax               decimal.Decimal         `gorm:"column:tax;type:numeric(12,2);not null"`
	Shipping          decimal.Decimal         `gorm:"column:shipping;type:numeric(12,2);not null"`
	Total             decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	Currency          string                  `gorm:"column:currency;type:varchar(3);not null"`
	ShippingAddress   types.Address           `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress    *types.Address          `gorm:"column:billing_address;type:jsonb;serializer:json"`
	Notes             *string                 `gorm:"column:notes"`
	PaymentProvider   *enums.PaymentProvider  `gorm:"column:payment_provider;type:varchar(32)"`
	PaymentReference  *string                 `gorm:"column:payment_reference;index"`
	PaymentID         *string                 `gorm:"column:payment_id"`
	PaidAt            *time.Time              `gorm:"column:paid_at"`
	StockReleasedAt   *time.Time              `gorm:"column:stock_released_at"`
	Items             []OrderItem             `gorm:"foreignKey:OrderID"`
	Discounts         []OrderDiscount         `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a point-in-time snapshot of the purchased variant. VariantID is
// kept only so stock can be returned; it is nulled if the variant is deleted.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID    *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	ProductName  string          `gorm:"column:product_name;not null"`
	VariantName  string          `gorm:"column:variant_name;not null"`
	SKU          string          `gorm:"column:sku;not null"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	Total        decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	FulfilledQty int             `gorm:"column:fulfilled_qty;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderDiscount records what each discount contributed at checkout.
type OrderDiscount struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	DiscountID uuid.UUID          `gorm:"column:discount_id;type:uuid;not null"`
	Code       string             `gorm:"column:code;not null"`
	Type       enums.DiscountType `gorm:"column:type;type:varchar(16);not null"`
	Amount     decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}
