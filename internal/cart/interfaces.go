package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
)

// CartRepository defines the persistence surface shared by the cart service
// and the checkout reconciler.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository

	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindActiveBySession(ctx context.Context, sessionID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	Adopt(ctx context.Context, cartID, userID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error

	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemByVariant(ctx context.Context, cartID, variantID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	SetItemQuantity(ctx context.Context, itemID uuid.UUID, qty int, price decimal.Decimal) error
	DecrementItem(ctx context.Context, itemID uuid.UUID, qty int) (bool, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	CountItems(ctx context.Context, cartID uuid.UUID) (int64, error)

	AttachDiscount(ctx context.Context, cartID, discountID uuid.UUID) (bool, error)
	DetachDiscount(ctx context.Context, cartID, discountID uuid.UUID) error
	ClearDiscounts(ctx context.Context, cartID uuid.UUID) error
	ListDiscountIDs(ctx context.Context, cartID uuid.UUID) ([]uuid.UUID, error)
}
