package address

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, dbtest.Client(conn))
	require.NoError(t, err)
	return svc, repo
}

func home(city string) types.Address {
	return types.Address{
		FirstName:  "Asha",
		LastName:   "Rao",
		Address1:   " 12 MG Road ",
		City:       city,
		PostalCode: "560001",
		Country:    "IN",
	}
}

func TestCreateDefaultUnsetsPreviousDefault(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, userID, Input{Address: home("Bengaluru"), IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, enums.AddressTypeShipping, first.Type)
	assert.Equal(t, "12 MG Road", first.Address1)

	billing, err := svc.Create(ctx, userID, Input{Address: home("Pune"), Type: enums.AddressTypeBilling, IsDefault: true})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	second, err := svc.Create(ctx, userID, Input{Address: home("Mysuru"), IsDefault: true})
	require.NoError(t, err)

	rows, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	defaults := map[uuid.UUID]bool{}
	for _, row := range rows {
		defaults[row.ID] = row.IsDefault
	}
	assert.False(t, defaults[first.ID])
	assert.True(t, defaults[second.ID])
	assert.True(t, defaults[billing.ID], "defaults are tracked per address type")
	assert.False(t, rows[2].IsDefault, "non-default entries sort last")
}

func TestListOrdersDefaultFirstThenNewest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	def, err := svc.Create(ctx, userID, Input{Address: home("A"), IsDefault: true})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	older, err := svc.Create(ctx, userID, Input{Address: home("B")})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newer, err := svc.Create(ctx, userID, Input{Address: home("C")})
	require.NoError(t, err)

	rows, err := svc.List(ctx, userID)
	require.NoError(t, err)
	ids := []uuid.UUID{rows[0].ID, rows[1].ID, rows[2].ID}
	assert.Equal(t, []uuid.UUID{def.ID, newer.ID, older.ID}, ids)
}

func TestUpdateAndDeleteRequireOwnership(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	row, err := svc.Create(ctx, owner, Input{Address: home("Bengaluru")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, row.ID, Input{Address: home("Delhi")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, "Address not found", pkgerrors.As(err).Message())

	err = svc.Delete(ctx, stranger, row.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	updated, err := svc.Update(ctx, owner, row.ID, Input{Address: home("Delhi"), Type: enums.AddressTypeBilling, IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, "Delhi", updated.City)
	assert.Equal(t, enums.AddressTypeBilling, updated.Type)

	require.NoError(t, svc.Delete(ctx, owner, row.ID))
	_, err = repo.FindOwned(ctx, row.ID, owner)
	assert.Error(t, err)
}

func TestUpdateDefaultKeepsOnlyOne(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	a, err := svc.Create(ctx, userID, Input{Address: home("A"), IsDefault: true})
	require.NoError(t, err)
	b, err := svc.Create(ctx, userID, Input{Address: home("B")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, userID, b.ID, Input{Address: home("B"), IsDefault: true})
	require.NoError(t, err)

	rows, err := svc.List(ctx, userID)
	require.NoError(t, err)
	var defaults []models.SavedAddress
	for _, row := range rows {
		if row.IsDefault {
			defaults = append(defaults, row)
		}
	}
	require.Len(t, defaults, 1)
	assert.Equal(t, b.ID, defaults[0].ID)
	assert.NotEqual(t, a.ID, defaults[0].ID)
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), uuid.New(), Input{Address: types.Address{FirstName: "A"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Create(context.Background(), uuid.New(), Input{Address: home("A"), Type: "office"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
