// Package dbtest opens throwaway sqlite databases carrying the storefront
// schema for package tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

// Open returns a private in-memory database migrated with every model. A
// single connection backs it, so code under test must use the tx it is handed
// inside transactions.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps conn in the db.Client used by services.
func Client(conn *gorm.DB) *db.Client {
	return db.FromGorm(conn)
}

// VariantSeed describes a product with a single variant.
type VariantSeed struct {
	ProductName   string
	ProductStatus enums.ProductStatus
	VariantName   string
	SKU           string
	Price         string
	Quantity      int
}

// SeedVariant inserts a product and one variant and returns the variant.
func SeedVariant(t testing.TB, conn *gorm.DB, seed VariantSeed) models.ProductVariant {
	t.Helper()
	if seed.ProductStatus == "" {
		seed.ProductStatus = enums.ProductStatusActive
	}
	if seed.ProductName == "" {
		seed.ProductName = "Lavender Jar"
	}
	if seed.VariantName == "" {
		seed.VariantName = "Default"
	}
	if seed.SKU == "" {
		seed.SKU = "SKU-" + uuid.NewString()[:8]
	}
	if seed.Price == "" {
		seed.Price = "100"
	}

	product := models.Product{
		Name:   seed.ProductName,
		Slug:   "p-" + uuid.NewString(),
		Status: seed.ProductStatus,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.ProductVariant{
		ProductID: product.ID,
		Name:      seed.VariantName,
		SKU:       seed.SKU,
		Price:     decimal.RequireFromString(seed.Price),
		Quantity:  seed.Quantity,
		IsDefault: true,
	}
	if err := conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	variant.Product = &product
	return variant
}

// CartSeedItem is one line of a seeded cart.
type CartSeedItem struct {
	VariantID uuid.UUID
	Quantity  int
	Price     string
}

// SeedCart inserts an active cart with the given owner and lines.
func SeedCart(t testing.TB, conn *gorm.DB, userID *uuid.UUID, sessionID *string, items ...CartSeedItem) models.Cart {
	t.Helper()
	cart := models.Cart{
		UserID:    userID,
		SessionID: sessionID,
		Status:    enums.CartStatusActive,
		Currency:  "INR",
	}
	if err := conn.Create(&cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	for _, item := range items {
		price := item.Price
		if price == "" {
			price = "0"
		}
		row := models.CartItem{
			CartID:    cart.ID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     decimal.RequireFromString(price),
		}
		if err := conn.Create(&row).Error; err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
		cart.Items = append(cart.Items, row)
	}
	return cart
}

// DiscountSeed describes a discount code.
type DiscountSeed struct {
	Code        string
	Type        enums.DiscountType
	Value       string
	MinPurchase *string
	MaxUses     *int
	UsedCount   int
	StartsAt    *time.Time
	EndsAt      *time.Time
	Inactive    bool
}

// SeedDiscount inserts a discount row.
func SeedDiscount(t testing.TB, conn *gorm.DB, seed DiscountSeed) models.Discount {
	t.Helper()
	if seed.Code == "" {
		seed.Code = "CODE" + uuid.NewString()[:6]
	}
	if seed.Type == "" {
		seed.Type = enums.DiscountTypePercentage
	}
	if seed.Value == "" {
		seed.Value = "0"
	}
	discount := models.Discount{
		Code:      seed.Code,
		Type:      seed.Type,
		Value:     decimal.RequireFromString(seed.Value),
		MaxUses:   seed.MaxUses,
		UsedCount: seed.UsedCount,
		StartsAt:  seed.StartsAt,
		EndsAt:    seed.EndsAt,
		IsActive:  !seed.Inactive,
	}
	if seed.MinPurchase != nil {
		min := decimal.RequireFromString(*seed.MinPurchase)
		discount.MinPurchase = &min
	}
	if err := conn.Create(&discount).Error; err != nil {
		t.Fatalf("seed discount: %v", err)
	}
	return discount
}

// AttachDiscount links a discount to a cart.
func AttachDiscount(t testing.TB, conn *gorm.DB, cartID, discountID uuid.UUID) {
	t.Helper()
	if err := conn.Create(&models.CartDiscount{CartID: cartID, DiscountID: discountID}).Error; err != nil {
		t.Fatalf("attach discount: %v", err)
	}
}

// Variant reloads a variant by id.
func Variant(t testing.TB, conn *gorm.DB, id uuid.UUID) models.ProductVariant {
	t.Helper()
	var v models.ProductVariant
	if err := conn.WithContext(context.Background()).First(&v, "id = ?", id).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	return v
}

// OrderSeedItem is one snapshot line of a seeded order.
type OrderSeedItem struct {
	VariantID *uuid.UUID
	Quantity  int
	Price     string
}

// OrderSeed describes an order inserted directly, bypassing checkout.
type OrderSeed struct {
	OrderNumber      string
	UserID           *uuid.UUID
	Email            string
	Status           enums.OrderStatus
	PaymentStatus    enums.PaymentStatus
	PaymentReference *string
	Total            string
	CreatedAt        time.Time
	Items            []OrderSeedItem
}

// SeedOrder inserts an order with its items.
func SeedOrder(t testing.TB, conn *gorm.DB, seed OrderSeed) models.Order {
	t.Helper()
	if seed.OrderNumber == "" {
		seed.OrderNumber = "ORD-TEST-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if seed.Email == "" {
		seed.Email = "buyer@example.com"
	}
	if seed.Status == "" {
		seed.Status = enums.OrderStatusPending
	}
	if seed.PaymentStatus == "" {
		seed.PaymentStatus = enums.PaymentStatusPending
	}
	if seed.Total == "" {
		seed.Total = "417.60"
	}
	order := models.Order{
		OrderNumber:       seed.OrderNumber,
		UserID:            seed.UserID,
		Email:             seed.Email,
		Status:            seed.Status,
		PaymentStatus:     seed.PaymentStatus,
		FulfillmentStatus: enums.FulfillmentUnfulfilled,
		Subtotal:          decimal.RequireFromString(seed.Total),
		Discount:          decimal.Zero,
		Tax:               decimal.Zero,
		Shipping:          decimal.Zero,
		Total:             decimal.RequireFromString(seed.Total),
		Currency:          "INR",
		ShippingAddress: types.Address{
			FirstName:  "Asha",
			LastName:   "Rao",
			Address1:   "12 MG Road",
			City:       "Bengaluru",
			PostalCode: "560001",
			Country:    "IN",
		},
		PaymentReference: seed.PaymentReference,
		CreatedAt:        seed.CreatedAt,
	}
	if seed.PaymentReference != nil {
		provider := enums.PaymentProviderRazorpay
		order.PaymentProvider = &provider
	}
	for i, item := range seed.Items {
		price := decimal.RequireFromString(item.Price)
		order.Items = append(order.Items, models.OrderItem{
			VariantID:   item.VariantID,
			ProductName: "Lavender Jar",
			VariantName: "Default",
			SKU:         fmt.Sprintf("SKU-%d", i+1),
			Price:       price,
			Quantity:    item.Quantity,
			Total:       price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}
