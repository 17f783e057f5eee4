package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wixandwax/storefront-backend/pkg/enums"
)

// Product is the catalog parent of sellable variants.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name        string              `gorm:"column:name;not null"`
	Slug        string              `gorm:"column:slug;not null;uniqueIndex"`
	Description *string             `gorm:"column:description"`
	Status      enums.ProductStatus `gorm:"column:status;type:varchar(16);not null"`
	Variants    []ProductVariant    `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is the source of truth for price and stock.
type ProductVariant struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	Name         string            `gorm:"column:name;not null"`
	SKU          string            `gorm:"column:sku;not null;uniqueIndex"`
	Price        decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	ComparePrice *decimal.Decimal  `gorm:"column:compare_price;type:numeric(12,2)"`
	Quantity     int               `gorm:"column:quantity;not null"`
	IsDefault    bool              `gorm:"column:is_default;not null"`
	Options      map[string]string `gorm:"column:options;type:jsonb;serializer:json"`
	Product      *Product          `gorm:"foreignKey:ProductID"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
