package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/cart"
	"github.com/wixandwax/storefront-backend/internal/discounts"
	"github.com/wixandwax/storefront-backend/internal/orders"
	product "github.com/wixandwax/storefront-backend/internal/products"
	"github.com/wixandwax/storefront-backend/pkg/config"
	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

func testConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		TaxRate:                "0.18",
		ShippingFlat:           "99",
		Currency:               "INR",
		DiscountUsagePolicy:    "contributed",
		FreeShippingZeroesShip: true,
		CapDiscountAtSubtotal:  true,
		OrderNumberMaxAttempts: 5,
	}
}

type fixture struct {
	conn   *gorm.DB
	svc    *service
	orders orders.Repository
	outbox *outbox.Repository
}

func newFixture(t *testing.T, cfg config.CheckoutConfig) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	outboxRepo := outbox.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	svc, err := NewService(Params{
		Tx:        dbtest.Client(conn),
		Carts:     cart.NewRepository(conn),
		Products:  product.NewRepository(conn),
		Discounts: discounts.NewRepository(conn),
		Orders:    ordersRepo,
		Outbox:    outbox.NewService(outboxRepo, nil),
		Config:    cfg,
	})
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc.(*service), orders: ordersRepo, outbox: outboxRepo}
}

func address() *types.Address {
	return &types.Address{
		FirstName:  "Asha",
		LastName:   "Rao",
		Address1:   "12 MG Road",
		City:       "Bengaluru",
		PostalCode: "560001",
		Country:    "IN",
	}
}

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: want %s got %s", field, want, got.StringFixed(2))
}

func cartItem(t *testing.T, conn *gorm.DB, cartID uuid.UUID) *models.CartItem {
	t.Helper()
	var items []models.CartItem
	require.NoError(t, conn.Where("cart_id = ?", cartID).Find(&items).Error)
	if len(items) == 0 {
		return nil
	}
	return &items[0]
}

func cartStatus(t *testing.T, conn *gorm.DB, cartID uuid.UUID) enums.CartStatus {
	t.Helper()
	var c models.Cart
	require.NoError(t, conn.First(&c, "id = ?", cartID).Error)
	return c.Status
}

func TestPartialCheckoutWithPercentageDiscount(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	userID := uuid.New()
	variant := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Price: "100", Quantity: 5})
	c := dbtest.SeedCart(t, f.conn, &userID, nil, dbtest.CartSeedItem{VariantID: variant.ID, Quantity: 5, Price: "1"})
	discount := dbtest.SeedDiscount(t, f.conn, dbtest.DiscountSeed{Code: "TENOFF", Value: "10"})
	dbtest.AttachDiscount(t, f.conn, c.ID, discount.ID)

	res, err := f.svc.Checkout(ctx, Input{
		UserID:          &userID,
		UserEmail:       "Buyer@Example.com",
		ShippingAddress: address(),
		Items:           []SelectedItem{{VariantID: variant.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	order := res.Order
	assertMoney(t, "300", order.Subtotal, "subtotal")
	assertMoney(t, "30", order.Discount, "discount")
	assertMoney(t, "48.6", order.Tax, "tax")
	assertMoney(t, "99", order.Shipping, "shipping")
	assertMoney(t, "417.6", order.Total, "total")
	assert.Equal(t, "buyer@example.com", order.Email)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Regexp(t, `^ORD-[0-9A-Z]+-[0-9A-Z]{4}$`, order.OrderNumber)

	require.Len(t, order.Items, 1)
	assertMoney(t, "100", order.Items[0].Price, "unit price")
	assert.Equal(t, 3, order.Items[0].Quantity)
	require.Len(t, order.Discounts, 1)
	assertMoney(t, "30", order.Discounts[0].Amount, "order discount")

	assert.Equal(t, 2, dbtest.Variant(t, f.conn, variant.ID).Quantity)
	remaining := cartItem(t, f.conn, c.ID)
	require.NotNil(t, remaining)
	assert.Equal(t, 2, remaining.Quantity)
	assert.Equal(t, enums.CartStatusActive, cartStatus(t, f.conn, c.ID))
	assert.False(t, res.CartConverted)

	var reloaded models.Discount
	require.NoError(t, f.conn.First(&reloaded, "id = ?", discount.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)

	events, err := f.outbox.ListByAggregate(ctx, enums.AggregateOrder, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
}

func TestGuestFullCartCheckoutConvertsCart(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	a := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Price: "100", Quantity: 5})
	b := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{ProductName: "Cedar Tin", Price: "250", Quantity: 1})
	c := dbtest.SeedCart(t, f.conn, nil, strPtr("guest-1"),
		dbtest.CartSeedItem{VariantID: a.ID, Quantity: 2},
		dbtest.CartSeedItem{VariantID: b.ID, Quantity: 1},
	)
	discount := dbtest.SeedDiscount(t, f.conn, dbtest.DiscountSeed{Code: "SHIP", Type: enums.DiscountTypeFreeShipping})
	dbtest.AttachDiscount(t, f.conn, c.ID, discount.ID)

	res, err := f.svc.Checkout(ctx, Input{
		SessionID:       "guest-1",
		Email:           "a@b.com",
		ShippingAddress: address(),
	})
	require.NoError(t, err)

	assert.True(t, res.CartConverted)
	assert.Nil(t, res.Order.UserID)
	assert.Equal(t, "a@b.com", res.Order.Email)
	assertMoney(t, "450", res.Order.Subtotal, "subtotal")
	assertMoney(t, "0", res.Order.Shipping, "free shipping")
	assertMoney(t, "81", res.Order.Tax, "tax")
	assertMoney(t, "531", res.Order.Total, "total")

	assert.Nil(t, cartItem(t, f.conn, c.ID))
	assert.Equal(t, enums.CartStatusConverted, cartStatus(t, f.conn, c.ID))
	var links int64
	require.NoError(t, f.conn.Model(&models.CartDiscount{}).Where("cart_id = ?", c.ID).Count(&links).Error)
	assert.Zero(t, links)
	assert.Equal(t, 0, dbtest.Variant(t, f.conn, b.ID).Quantity)
}

func TestSelectionWithoutQuantityBuysWholeLine(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	jar := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Price: "100", Quantity: 5})
	tin := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{ProductName: "Cedar Tin", Price: "250", Quantity: 4})
	c := dbtest.SeedCart(t, f.conn, nil, strPtr("whole-line"),
		dbtest.CartSeedItem{VariantID: jar.ID, Quantity: 3},
		dbtest.CartSeedItem{VariantID: tin.ID, Quantity: 1},
	)

	res, err := f.svc.Checkout(ctx, Input{
		SessionID:       "whole-line",
		Email:           "a@b.com",
		ShippingAddress: address(),
		Items:           []SelectedItem{{VariantID: jar.ID}},
	})
	require.NoError(t, err)

	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, 3, res.Order.Items[0].Quantity)
	assertMoney(t, "300", res.Order.Subtotal, "subtotal")
	assert.False(t, res.CartConverted)
	assert.Equal(t, 2, dbtest.Variant(t, f.conn, jar.ID).Quantity)

	left := cartItem(t, f.conn, c.ID)
	require.NotNil(t, left)
	assert.Equal(t, tin.ID, left.VariantID)
	assert.Equal(t, enums.CartStatusActive, cartStatus(t, f.conn, c.ID))
}

func TestEmptySelectionBuysWholeCart(t *testing.T) {
	f := newFixture(t, testConfig())
	variant := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Price: "100", Quantity: 5})
	c := dbtest.SeedCart(t, f.conn, nil, strPtr("empty-list"), dbtest.CartSeedItem{VariantID: variant.ID, Quantity: 2})

	res, err := f.svc.Checkout(context.Background(), Input{
		SessionID:       "empty-list",
		Email:           "a@b.com",
		ShippingAddress: address(),
		Items:           []SelectedItem{},
	})
	require.NoError(t, err)
	assert.True(t, res.CartConverted)
	assert.Equal(t, enums.CartStatusConverted, cartStatus(t, f.conn, c.ID))
	assert.Equal(t, 3, dbtest.Variant(t, f.conn, variant.ID).Quantity)
}

func TestCheckoutStockBoundary(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Quantity: 2})
	dbtest.SeedCart(t, f.conn, nil, strPtr("exact"), dbtest.CartSeedItem{VariantID: variant.ID, Quantity: 2})

	_, err := f.svc.Checkout(ctx, Input{SessionID: "exact", Email: "a@b.com", ShippingAddress: address()})
	require.NoError(t, err)
	assert.Equal(t, 0, dbtest.Variant(t, f.conn, variant.ID).Quantity)

	other := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{ProductName: "Rose Jar", Quantity: 2})
	dbtest.SeedCart(t, f.conn, nil, strPtr("over"), dbtest.CartSeedItem{VariantID: other.ID, Quantity: 3})

	_, err = f.svc.Checkout(ctx, Input{SessionID: "over", Email: "a@b.com", ShippingAddress: address()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonInsufficientStock, pkgerrors.ReasonOf(err))
	assert.Equal(t, `Insufficient stock for "Rose Jar"`, pkgerrors.As(err).Message())
	assert.Equal(t, 2, dbtest.Variant(t, f.conn, other.ID).Quantity)

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestExpiredDiscountContributesNothing(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Price: "100", Quantity: 5})
	c := dbtest.SeedCart(t, f.conn, nil, strPtr("exp"), dbtest.CartSeedItem{VariantID: variant.ID, Quantity: 1})
	past := time.Now().UTC().Add(-time.Hour)
	expired := dbtest.SeedDiscount(t, f.conn, dbtest.DiscountSeed{Code: "GONE", Value: "50", EndsAt: &past})
	dbtest.AttachDiscount(t, f.conn, c.ID, expired.ID)

	res, err := f.svc.Checkout(ctx, Input{SessionID: "exp", Email: "a@b.com", ShippingAddress: address()})
	require.NoError(t, err)
	assertMoney(t, "0", res.Order.Discount, "discount")
	assertMoney(t, "217", res.Order.Total, "total")
	assert.Empty(t, res.Order.Discounts)

	var reloaded models.Discount
	require.NoError(t, f.conn.First(&reloaded, "id = ?", expired.ID).Error)
	assert.Equal(t, 0, reloaded.UsedCount)
}

func TestAttachedUsagePolicyCountsInvalidDiscounts(t *testing.T) {
	cfg := testConfig()
	cfg.DiscountUsagePolicy = "attached"
	f := newFixture(t, cfg)
	variant := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Quantity: 5})
	c := dbtest.SeedCart(t, f.conn, nil, strPtr("att"), dbtest.CartSeedItem{VariantID: variant.ID, Quantity: 1})
	past := time.Now().UTC().Add(-time.Hour)
	expired := dbtest.SeedDiscount(t, f.conn, dbtest.DiscountSeed{Code: "GONE", Value: "50", EndsAt: &past})
	dbtest.AttachDiscount(t, f.conn, c.ID, expired.ID)

	_, err := f.svc.Checkout(context.Background(), Input{SessionID: "att", Email: "a@b.com", ShippingAddress: address()})
	require.NoError(t, err)

	var reloaded models.Discount
	require.NoError(t, f.conn.First(&reloaded, "id = ?", expired.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
}

func TestOrderRoundTripByIDAndNumber(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	a := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{SKU: "A-1", Price: "120.50", Quantity: 5})
	b := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{SKU: "B-1", Price: "80", Quantity: 5})
	dbtest.SeedCart(t, f.conn, nil, strPtr("rt"),
		dbtest.CartSeedItem{VariantID: a.ID, Quantity: 2},
		dbtest.CartSeedItem{VariantID: b.ID, Quantity: 1},
	)

	res, err := f.svc.Checkout(ctx, Input{SessionID: "rt", Email: "a@b.com", ShippingAddress: address()})
	require.NoError(t, err)

	byID, err := f.orders.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	byNumber, err := f.orders.FindByNumber(ctx, res.Order.OrderNumber)
	require.NoError(t, err)

	for _, loaded := range []*models.Order{byID, byNumber} {
		require.Len(t, loaded.Items, 2)
		bySKU := map[string]models.OrderItem{}
		for _, item := range loaded.Items {
			bySKU[item.SKU] = item
		}
		assert.Equal(t, 2, bySKU["A-1"].Quantity)
		assertMoney(t, "120.50", bySKU["A-1"].Price, "A price")
		assertMoney(t, "241", bySKU["A-1"].Total, "A total")
		assert.Equal(t, 1, bySKU["B-1"].Quantity)
		assertMoney(t, "80", bySKU["B-1"].Total, "B total")
		assertMoney(t, res.Order.Total.String(), loaded.Total, "order total")
	}
}

func TestCheckoutRejections(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Quantity: 5})
	draft := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{ProductStatus: enums.ProductStatusArchived, Quantity: 5})
	gone := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Quantity: 5})
	dbtest.SeedCart(t, f.conn, nil, strPtr("rej"), dbtest.CartSeedItem{VariantID: variant.ID, Quantity: 2})
	dbtest.SeedCart(t, f.conn, nil, strPtr("draft"), dbtest.CartSeedItem{VariantID: draft.ID, Quantity: 1})
	dbtest.SeedCart(t, f.conn, nil, strPtr("gone"), dbtest.CartSeedItem{VariantID: gone.ID, Quantity: 1})
	require.NoError(t, f.conn.Delete(&models.ProductVariant{}, "id = ?", gone.ID).Error)

	tests := []struct {
		name   string
		input  Input
		reason pkgerrors.Reason
		msg    string
	}{
		{name: "missing address", input: Input{SessionID: "rej", Email: "a@b.com"}, msg: "Shipping address is required"},
		{name: "missing email", input: Input{SessionID: "rej", ShippingAddress: address()}, msg: "Email is required"},
		{name: "no cart", input: Input{SessionID: "nobody", Email: "a@b.com", ShippingAddress: address()}, reason: pkgerrors.ReasonCartEmpty},
		{name: "not in cart", input: Input{SessionID: "rej", Email: "a@b.com", ShippingAddress: address(), Items: []SelectedItem{{VariantID: uuid.New(), Quantity: 1}}}, reason: pkgerrors.ReasonItemNotInCart},
		{name: "exceeds cart", input: Input{SessionID: "rej", Email: "a@b.com", ShippingAddress: address(), Items: []SelectedItem{{VariantID: variant.ID, Quantity: 3}}}, reason: pkgerrors.ReasonQuantityExceedsCart},
		{name: "duplicates summed", input: Input{SessionID: "rej", Email: "a@b.com", ShippingAddress: address(), Items: []SelectedItem{{VariantID: variant.ID, Quantity: 2}, {VariantID: variant.ID, Quantity: 1}}}, reason: pkgerrors.ReasonQuantityExceedsCart},
		{name: "archived product", input: Input{SessionID: "draft", Email: "a@b.com", ShippingAddress: address()}, reason: pkgerrors.ReasonProductUnavailable},
		{name: "variant deleted", input: Input{SessionID: "gone", Email: "a@b.com", ShippingAddress: address()}, reason: pkgerrors.ReasonVariantGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Checkout(ctx, tt.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "unexpected code for %v", err)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, pkgerrors.ReasonOf(err))
			}
			if tt.msg != "" {
				assert.Equal(t, tt.msg, pkgerrors.As(err).Message())
			}
		})
	}
	assert.Equal(t, 5, dbtest.Variant(t, f.conn, variant.ID).Quantity)
}

func TestOrderNumberCollisionRetries(t *testing.T) {
	f := newFixture(t, testConfig())
	variant := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Quantity: 5})
	dbtest.SeedCart(t, f.conn, nil, strPtr("dup"), dbtest.CartSeedItem{VariantID: variant.ID, Quantity: 1})
	dbtest.SeedOrder(t, f.conn, dbtest.OrderSeed{OrderNumber: "ORD-TAKEN-0001"})

	numbers := []string{"ORD-TAKEN-0001", "ORD-TAKEN-0001", "ORD-FRESH-0002"}
	calls := 0
	f.svc.orderNumber = func(time.Time) string {
		n := numbers[calls]
		calls++
		return n
	}

	res, err := f.svc.Checkout(context.Background(), Input{SessionID: "dup", Email: "a@b.com", ShippingAddress: address()})
	require.NoError(t, err)
	assert.Equal(t, "ORD-FRESH-0002", res.Order.OrderNumber)
	assert.Equal(t, 3, calls)
	require.Len(t, res.Order.Items, 1)
}

func TestOrderNumberCollisionGivesUp(t *testing.T) {
	cfg := testConfig()
	cfg.OrderNumberMaxAttempts = 2
	f := newFixture(t, cfg)
	variant := dbtest.SeedVariant(t, f.conn, dbtest.VariantSeed{Quantity: 5})
	dbtest.SeedCart(t, f.conn, nil, strPtr("dup"), dbtest.CartSeedItem{VariantID: variant.ID, Quantity: 1})
	dbtest.SeedOrder(t, f.conn, dbtest.OrderSeed{OrderNumber: "ORD-TAKEN-0001"})
	f.svc.orderNumber = func(time.Time) string { return "ORD-TAKEN-0001" }

	_, err := f.svc.Checkout(context.Background(), Input{SessionID: "dup", Email: "a@b.com", ShippingAddress: address()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
	assert.Equal(t, "Checkout failed", pkgerrors.As(err).Message())
	assert.Equal(t, 5, dbtest.Variant(t, f.conn, variant.ID).Quantity)
}
