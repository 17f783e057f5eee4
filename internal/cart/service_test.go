package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/discounts"
	product "github.com/wixandwax/storefront-backend/internal/products"
	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(
		NewRepository(conn),
		dbtest.Client(conn),
		product.NewRepository(conn),
		discounts.NewRepository(conn),
		"INR",
		nil,
	)
	require.NoError(t, err)
	return svc, conn
}

func TestGetCartRequiresIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetCart(context.Background(), Owner{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetCartCreatesOncePerSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := Owner{SessionID: "sess-1"}

	first, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	second, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, enums.CartStatusActive, second.Status)
	assert.Equal(t, "0.00", second.Subtotal)
}

func TestAddItemMergesAndCapsAtStock(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Price: "100", Quantity: 5})
	owner := Owner{SessionID: "sess-2"}

	_, err := svc.AddItem(ctx, owner, variant.ID, 2)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, owner, variant.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, "500.00", cart.Subtotal)

	_, err = svc.AddItem(ctx, owner, variant.ID, 1)
	assert.Equal(t, pkgerrors.ReasonInsufficientStock, pkgerrors.ReasonOf(err))
}

func TestAddItemRejectsUnavailableProducts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	draft := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{ProductStatus: enums.ProductStatusDraft, Quantity: 5})

	_, err := svc.AddItem(ctx, Owner{SessionID: "s"}, draft.ID, 1)
	assert.Equal(t, pkgerrors.ReasonProductUnavailable, pkgerrors.ReasonOf(err))

	_, err = svc.AddItem(ctx, Owner{SessionID: "s"}, uuid.New(), 1)
	assert.Equal(t, pkgerrors.ReasonVariantGone, pkgerrors.ReasonOf(err))
}

func TestUpdateItemZeroDeletes(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 5})
	owner := Owner{SessionID: "sess-3"}

	cart, err := svc.AddItem(ctx, owner, variant.ID, 2)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = svc.UpdateItem(ctx, owner, cart.ID, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	cart, err = svc.UpdateItem(ctx, owner, cart.ID, itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.RemoveItem(ctx, owner, cart.ID, itemID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCartIsHiddenFromOtherOwners(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 5})

	cart, err := svc.AddItem(ctx, Owner{SessionID: "mine"}, variant.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, Owner{SessionID: "theirs"}, cart.ID, cart.Items[0].ID, 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestApplyDiscountValidatesAtAttach(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Price: "100", Quantity: 5})
	past := time.Now().UTC().Add(-time.Hour)
	dbtest.SeedDiscount(t, conn, dbtest.DiscountSeed{Code: "OLD10", Value: "10", EndsAt: &past})
	dbtest.SeedDiscount(t, conn, dbtest.DiscountSeed{Code: "TEN", Value: "10"})
	owner := Owner{SessionID: "sess-4"}

	cart, err := svc.AddItem(ctx, owner, variant.ID, 3)
	require.NoError(t, err)

	_, err = svc.ApplyDiscount(ctx, owner, cart.ID, "old10")
	assert.Equal(t, pkgerrors.ReasonDiscountInvalid, pkgerrors.ReasonOf(err))

	_, err = svc.ApplyDiscount(ctx, owner, cart.ID, "nope")
	assert.Equal(t, pkgerrors.ReasonDiscountInvalid, pkgerrors.ReasonOf(err))

	cart, err = svc.ApplyDiscount(ctx, owner, cart.ID, "ten")
	require.NoError(t, err)
	cart, err = svc.ApplyDiscount(ctx, owner, cart.ID, "TEN")
	require.NoError(t, err)
	require.Len(t, cart.Discounts, 1)
	assert.Equal(t, "30.00", cart.DiscountEstimate)

	cart, err = svc.RemoveDiscount(ctx, owner, cart.ID, cart.Discounts[0].DiscountID)
	require.NoError(t, err)
	assert.Empty(t, cart.Discounts)
}

func TestSignedInUserAdoptsSessionCart(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 5})
	guest, err := svc.AddItem(ctx, Owner{SessionID: "sess-5"}, variant.ID, 1)
	require.NoError(t, err)

	userID := uuid.New()
	adopted, err := svc.GetCart(ctx, Owner{UserID: &userID, SessionID: "sess-5"})
	require.NoError(t, err)
	assert.Equal(t, guest.ID, adopted.ID)

	again, err := svc.GetCart(ctx, Owner{UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, guest.ID, again.ID, "user now owns the cart")

	other := uuid.New()
	ok, err := svc.AdoptGuestCart(ctx, guest.ID, other)
	require.NoError(t, err)
	assert.False(t, ok, "an owned cart cannot be adopted again")

	otherCart, err := svc.GetCart(ctx, Owner{UserID: &other, SessionID: "sess-5"})
	require.NoError(t, err)
	assert.NotEqual(t, guest.ID, otherCart.ID)
}
