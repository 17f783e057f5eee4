package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/pagination"
)

func TestRepositoryMarkPaidIsConditional(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{})
	paidAt := time.Now().UTC()

	ok, err := repo.MarkPaid(ctx, order.ID, "pay_1", paidAt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkPaid(ctx, order.ID, "pay_2", paidAt)
	require.NoError(t, err)
	assert.False(t, ok, "second mark must be refused")

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, loaded.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, loaded.Status)
	require.NotNil(t, loaded.PaymentID)
	assert.Equal(t, "pay_1", *loaded.PaymentID)
}

func TestRepositoryMarkPaidRefusesCancelled(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{Status: enums.OrderStatusCancelled})

	ok, err := repo.MarkPaid(context.Background(), order.ID, "pay_1", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryFindByNumberIgnoresCase(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	variantID := uuid.New()
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{
		OrderNumber: "ORD-LX2A9Q-7KQ1",
		Items: []dbtest.OrderSeedItem{
			{VariantID: &variantID, Quantity: 2, Price: "100"},
			{VariantID: &variantID, Quantity: 1, Price: "250"},
		},
	})

	loaded, err := repo.FindByNumber(context.Background(), " ord-lx2a9q-7kq1 ")
	require.NoError(t, err)
	assert.Equal(t, order.ID, loaded.ID)
	assert.Len(t, loaded.Items, 2)
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: &owner, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	dbtest.SeedOrder(t, conn, dbtest.OrderSeed{})

	rows, total, err := repo.List(ctx, ListFilters{UserID: &owner}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt), "newest first")

	rows, total, err = repo.List(ctx, ListFilters{}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, rows, 4)
}

func TestRepositoryExpireUnpaid(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	old := time.Now().UTC().Add(-2 * time.Hour)

	stale := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{CreatedAt: old})
	failed := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{CreatedAt: old, PaymentStatus: enums.PaymentStatusFailed})
	dbtest.SeedOrder(t, conn, dbtest.OrderSeed{CreatedAt: old, PaymentStatus: enums.PaymentStatusPaid, Status: enums.OrderStatusConfirmed})
	dbtest.SeedOrder(t, conn, dbtest.OrderSeed{})

	rows, err := repo.FindExpiredUnpaid(ctx, time.Now().UTC().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	ids := []uuid.UUID{}
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{stale.ID, failed.ID}, ids)

	ok, err := repo.ExpireUnpaid(ctx, stale.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.ExpireUnpaid(ctx, stale.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	claimed, err := repo.ClaimStockRelease(ctx, stale.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, claimed, "expire already claimed the release")
}
