package inventory

import (
	"context"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/dbtest"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
)

const integrationDSNEnv = "WNW_TEST_DB_DSN"

// Concurrent buyers of the last units must never drive stock negative.
func TestConcurrentDecrementNeverOversells(t *testing.T) {
	dsn := os.Getenv(integrationDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", integrationDSNEnv)
	}
	conn, err := gorm.Open(postgres.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.ProductVariant{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	variant := dbtest.SeedVariant(t, conn, dbtest.VariantSeed{Quantity: 5})
	t.Cleanup(func() {
		conn.Delete(&models.ProductVariant{}, "id = ?", variant.ID)
		conn.Delete(&models.Product{}, "id = ?", variant.ProductID)
	})

	const buyers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	ctx := context.Background()
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conn.Transaction(func(tx *gorm.DB) error {
				ok, err := Decrement(ctx, tx, variant.ID, 1)
				if err != nil || !ok {
					return err
				}
				mu.Lock()
				granted++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if granted != 5 {
		t.Fatalf("expected 5 successful decrements, got %d", granted)
	}
	if got := dbtest.Variant(t, conn, variant.ID).Quantity; got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
}
