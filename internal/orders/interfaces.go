package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, int64, error)
	SetPaymentReference(ctx context.Context, id uuid.UUID, provider enums.PaymentProvider, reference string) error
	MarkPaid(ctx context.Context, id uuid.UUID, paymentID string, paidAt time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID, paymentID string) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ClaimStockRelease(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	FindExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	ExpireUnpaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// ListFilters narrow the order list. A nil UserID lists every order.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
}
