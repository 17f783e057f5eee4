package checkout

import (
	"context"

	"github.com/wixandwax/storefront-backend/internal/cart"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
)

// reconcileCart removes what was bought from the cart. Fully bought lines are
// deleted, partly bought lines shrink. An emptied cart is converted and loses
// its discounts. It reports whether the cart was converted.
func reconcileCart(ctx context.Context, repo cart.CartRepository, c *models.Cart, lines []Line) (bool, error) {
	for _, line := range lines {
		if line.Quantity >= line.CartQuantity {
			if err := repo.DeleteItem(ctx, line.CartItemID); err != nil {
				return false, err
			}
			continue
		}
		shrunk, err := repo.DecrementItem(ctx, line.CartItemID, line.Quantity)
		if err != nil {
			return false, err
		}
		if !shrunk {
			if err := repo.DeleteItem(ctx, line.CartItemID); err != nil {
				return false, err
			}
		}
	}

	remaining, err := repo.CountItems(ctx, c.ID)
	if err != nil {
		return false, err
	}
	if remaining > 0 {
		return false, nil
	}
	if err := repo.UpdateStatus(ctx, c.ID, enums.CartStatusConverted); err != nil {
		return false, err
	}
	if err := repo.ClearDiscounts(ctx, c.ID); err != nil {
		return false, err
	}
	return true, nil
}
