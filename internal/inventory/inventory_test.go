package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

func TestDecrementGuardsStock(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 3})

	ok, err := Decrement(ctx, conn, variant.ID, 3)
	if err != nil || !ok {
		t.Fatalf("expected exact-stock decrement to succeed, ok=%v err=%v", ok, err)
	}
	if got := dbtest.Variant(t, conn, variant.ID).Quantity; got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}

	ok, err = Decrement(ctx, conn, variant.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected guard to refuse decrement below zero")
	}
	if got := dbtest.Variant(t, conn, variant.ID).Quantity; got != 0 {
		t.Fatalf("stock changed after refused decrement: %d", got)
	}
}

func TestDecrementRejectsNonPositiveQty(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := Decrement(context.Background(), conn, uuid.New(), 0)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecrementAllRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	a := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 5})
	b := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{ProductName: "Cedar Tin", Quantity: 1})

	err := conn.Transaction(func(tx *gorm.DB) error {
		return DecrementAll(ctx, tx, []DecrementRequest{
			{VariantID: a.ID, Qty: 2, Label: "Lavender Jar"},
			{VariantID: b.ID, Qty: 2, Label: "Cedar Tin"},
		})
	})
	if pkgerrors.ReasonOf(err) != pkgerrors.ReasonInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != `Insufficient stock for "Cedar Tin"` {
		t.Fatalf("unexpected message: %v", err)
	}
	if got := dbtest.Variant(t, conn, a.ID).Quantity; got != 5 {
		t.Fatalf("expected first decrement rolled back, stock %d", got)
	}
}

func TestReleaseSkipsMissingVariants(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 1})
	gone := uuid.New()

	units, err := Release(ctx, conn, []ReleaseRequest{
		{VariantID: &variant.ID, Qty: 2},
		{VariantID: &gone, Qty: 4},
		{VariantID: nil, Qty: 1},
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if units != 2 {
		t.Fatalf("expected 2 units released, got %d", units)
	}
	if got := dbtest.Variant(t, conn, variant.ID).Quantity; got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}
}
