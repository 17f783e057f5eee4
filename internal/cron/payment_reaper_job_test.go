package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
)

func TestPaymentReaperExpiresStaleUnpaidOrders(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-time.Hour)
	fresh := now.Add(-5 * time.Minute)

	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 2})
	line := func(qty int) []dbtest.OrderSeedItem {
		return []dbtest.OrderSeedItem{{VariantID: &variant.ID, Quantity: qty, Price: "100"}}
	}

	pending := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{CreatedAt: stale, Items: line(3)})
	failed := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{CreatedAt: stale, PaymentStatus: enums.PaymentStatusFailed, Items: line(1)})
	paid := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{CreatedAt: stale, PaymentStatus: enums.PaymentStatusPaid, Status: enums.OrderStatusConfirmed, Items: line(4)})
	recent := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{CreatedAt: fresh, Items: line(5)})
	orphan := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{CreatedAt: stale, Items: []dbtest.OrderSeedItem{{Quantity: 2, Price: "50"}}})

	outboxRepo := outbox.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	jobIface, err := NewPaymentReaperJob(PaymentReaperJobParams{
		Logger:     logger.Nop(),
		DB:         dbtest.Client(conn),
		Orders:     ordersRepo,
		Outbox:     outbox.NewService(outboxRepo, nil),
		PaymentTTL: 30 * time.Minute,
	})
	require.NoError(t, err)
	job := jobIface.(*paymentReaperJob)
	job.now = func() time.Time { return now }

	processed, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, processed)

	assert.Equal(t, 2+3+1, dbtest.Variant(t, conn, variant.ID).Quantity)

	for _, order := range []models.Order{pending, failed, orphan} {
		reloaded, err := ordersRepo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
		assert.NotNil(t, reloaded.StockReleasedAt)

		events, err := outboxRepo.ListByAggregate(ctx, enums.AggregateOrder, order.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, enums.EventOrderExpired, events[0].EventType)
	}
	for _, order := range []models.Order{paid, recent} {
		reloaded, err := ordersRepo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.NotEqual(t, enums.OrderStatusCancelled, reloaded.Status)
		assert.Nil(t, reloaded.StockReleasedAt)
	}

	again, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Equal(t, 6, dbtest.Variant(t, conn, variant.ID).Quantity)
}

func TestNewPaymentReaperJobRequiresDeps(t *testing.T) {
	_, err := NewPaymentReaperJob(PaymentReaperJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
