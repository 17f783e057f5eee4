package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/pagination"
)

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func newTestService(t *testing.T) (Service, *gorm.DB, *recordingOutbox) {
	t.Helper()
	conn := dbtest.Open(t)
	pub := &recordingOutbox{}
	svc, err := NewService(NewRepository(conn), dbtest.Client(conn), pub, nil)
	require.NoError(t, err)
	return svc, conn, pub
}

func TestGetAppliesViewerRules(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()
	owned := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: &owner})
	guest := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{Email: "a@b.com"})

	_, err := svc.Get(ctx, owned.ID, Viewer{UserID: &owner, Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	_, err = svc.Get(ctx, owned.ID, Viewer{UserID: &stranger, Role: enums.UserRoleCustomer})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, owned.ID, Viewer{Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	_, err = svc.Get(ctx, guest.ID, Viewer{Email: "A@B.com"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, uuid.New(), Viewer{Role: enums.UserRoleAdmin})
	assert.Equal(t, pkgerrors.ReasonOrderNotFound, pkgerrors.ReasonOf(err))
}

func TestGetByNumberRequiresMatchingEmail(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{Email: "a@b.com"})

	found, err := svc.GetByNumber(ctx, order.OrderNumber, "A@B.COM", Viewer{})
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = svc.GetByNumber(ctx, order.OrderNumber, "other@b.com", Viewer{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetByNumber(ctx, order.OrderNumber, "", Viewer{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListScopesToViewer(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	dbtest.SeedOrder(t, conn, dbtest.OrderSeed{UserID: &owner})
	dbtest.SeedOrder(t, conn, dbtest.OrderSeed{})

	list, err := svc.List(ctx, Viewer{UserID: &owner}, pagination.Params{}, nil)
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)
	assert.EqualValues(t, 1, list.Pagination.Total)

	list, err = svc.List(ctx, Viewer{Role: enums.UserRoleAdmin}, pagination.Params{}, nil)
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)

	_, err = svc.List(ctx, Viewer{}, pagination.Params{}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateStatusStateMachine(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{})

	shipped := enums.OrderStatusShipped
	updated, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: &shipped})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.Status)

	pending := enums.OrderStatusPending
	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: &pending})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: &shipped})
	require.NoError(t, err, "same state is a no-op")

	refunded := enums.PaymentStatusRefunded
	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{PaymentStatus: &refunded})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "pending cannot be refunded")
}

func TestCancelReleasesStockOnce(t *testing.T) {
	svc, conn, pub := newTestService(t)
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 2})
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{
		Items: []dbtest.OrderSeedItem{{VariantID: &variant.ID, Quantity: 3, Price: "100"}},
	})

	cancelled := enums.OrderStatusCancelled
	updated, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
	assert.NotNil(t, updated.StockReleasedAt)
	assert.Equal(t, 5, dbtest.Variant(t, conn, variant.ID).Quantity)

	require.Len(t, pub.events, 1)
	assert.Equal(t, enums.EventOrderCancelled, pub.events[0].EventType)

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, 5, dbtest.Variant(t, conn, variant.ID).Quantity)
	assert.Len(t, pub.events, 1)
}

func TestToDTOFormatsMoney(t *testing.T) {
	svc, conn, _ := newTestService(t)
	order := dbtest.SeedOrder(t, conn, dbtest.OrderSeed{Total: "417.6"})
	loaded, err := svc.Get(context.Background(), order.ID, Viewer{Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	dto := ToDTO(loaded)
	assert.Equal(t, "417.60", dto.Total)
	assert.Empty(t, dto.Items)
}
