package product

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/enums"
)

func TestFindVariantPreloadsProduct(t *testing.T) {
	conn := dbtest.Open(t)
	seeded := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{ProductName: "Cedar Tin", Price: "450", Quantity: 4})

	repo := NewRepository(conn)
	variant, err := repo.FindVariant(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("find variant: %v", err)
	}
	if variant.Product == nil || variant.Product.Name != "Cedar Tin" {
		t.Fatalf("expected product to be preloaded, got %+v", variant.Product)
	}
	if variant.Product.Status != enums.ProductStatusActive {
		t.Fatalf("unexpected status %s", variant.Product.Status)
	}

	_, err = repo.FindVariant(context.Background(), uuid.New())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindVariantsKeyedByID(t *testing.T) {
	conn := dbtest.Open(t)
	a := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 1})
	b := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 2})

	repo := NewRepository(conn)
	got, err := repo.FindVariants(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	if err != nil {
		t.Fatalf("find variants: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(got))
	}
	if got[b.ID].Quantity != 2 || got[b.ID].Product == nil {
		t.Fatalf("unexpected variant %+v", got[b.ID])
	}

	empty, err := repo.FindVariants(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result, got %v %v", empty, err)
	}
}
