package checkout

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
)

const orderNumberSavepoint = "checkout_order_number"

// writeOrder inserts order with a fresh number, retrying under a savepoint
// when the number collides. Any other failure aborts.
func writeOrder(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, nextNumber func() string, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	for attempt := 1; ; attempt++ {
		order.OrderNumber = nextNumber()
		if err := tx.SavePoint(orderNumberSavepoint).Error; err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}
		err := repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "") || attempt >= maxAttempts {
			return fmt.Errorf("insert order (attempt %d): %w", attempt, err)
		}
		if rbErr := tx.RollbackTo(orderNumberSavepoint).Error; rbErr != nil {
			return fmt.Errorf("rollback to savepoint: %w", rbErr)
		}
	}
}
