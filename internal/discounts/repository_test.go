package discounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

func TestRepositoryLookupsAndUsage(t *testing.T) {
	conn := dbtest.Open(t)
	a := dbtest.SeedDiscount(t, conn, dbtest.DiscountSeed{Code: "WELCOME10", Value: "10"})
	b := dbtest.SeedDiscount(t, conn, dbtest.DiscountSeed{Code: "FLAT50", Value: "50", UsedCount: 2})
	repo := NewRepository(conn)
	ctx := context.Background()

	rows, err := repo.FindByIDs(ctx, []uuid.UUID{b.ID, uuid.New(), a.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, b.ID, rows[0].ID)
	assert.Equal(t, a.ID, rows[1].ID)

	found, err := repo.FindByCode(ctx, "  welcome10 ")
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	require.NoError(t, repo.IncrementUsage(ctx, []uuid.UUID{a.ID, b.ID}))
	rows, err = repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, rows[0].UsedCount)
	assert.Equal(t, 3, rows[1].UsedCount)
}

func TestIncrementUsageStopsAtMaxUses(t *testing.T) {
	conn := dbtest.Open(t)
	limit := 2
	open := dbtest.SeedDiscount(t, conn, dbtest.DiscountSeed{Code: "OPEN", Value: "10"})
	capped := dbtest.SeedDiscount(t, conn, dbtest.DiscountSeed{Code: "LASTONE", Value: "10", MaxUses: &limit, UsedCount: 1})
	repo := NewRepository(conn)
	ctx := context.Background()

	// Two checkouts evaluated LASTONE while one use was left; only the first
	// may count it.
	require.NoError(t, repo.IncrementUsage(ctx, []uuid.UUID{capped.ID, open.ID}))
	err := conn.Transaction(func(tx *gorm.DB) error {
		return repo.WithTx(tx).IncrementUsage(ctx, []uuid.UUID{capped.ID, open.ID})
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonDiscountInvalid, pkgerrors.ReasonOf(err))

	var rows []models.Discount
	require.NoError(t, conn.Where("id IN ?", []uuid.UUID{open.ID, capped.ID}).Find(&rows).Error)
	counts := map[uuid.UUID]int{}
	for _, row := range rows {
		counts[row.ID] = row.UsedCount
	}
	assert.Equal(t, 2, counts[capped.ID])
	assert.Equal(t, 1, counts[open.ID], "rolled back with the refused discount")
}

func TestIncrementUsageCountsRepeatedIDsOnce(t *testing.T) {
	conn := dbtest.Open(t)
	d := dbtest.SeedDiscount(t, conn, dbtest.DiscountSeed{Code: "TWICE", Value: "5"})
	repo := NewRepository(conn)

	require.NoError(t, repo.IncrementUsage(context.Background(), []uuid.UUID{d.ID, d.ID}))
	rows, err := repo.FindByIDs(context.Background(), []uuid.UUID{d.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, rows[0].UsedCount)
}
