package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/inventory"
	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/outbox/payloads"
	"github.com/wixandwax/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Viewer is whoever is asking for an order. Guests carry no UserID and
// identify themselves by email.
type Viewer struct {
	UserID *uuid.UUID
	Role   enums.UserRole
	Email  string
}

func (v Viewer) IsAdmin() bool {
	return v.Role == enums.UserRoleAdmin
}

// CanSee applies the ownership rules shared by every order read.
func (v Viewer) CanSee(order *models.Order) bool {
	if v.IsAdmin() {
		return true
	}
	if v.UserID != nil && order.UserID != nil && *v.UserID == *order.UserID {
		return true
	}
	return order.UserID == nil && v.Email != "" && strings.EqualFold(strings.TrimSpace(v.Email), order.Email)
}

// UpdateStatusInput carries the admin changes; nil fields are left alone.
type UpdateStatusInput struct {
	Status            *enums.OrderStatus
	PaymentStatus     *enums.PaymentStatus
	FulfillmentStatus *enums.FulfillmentStatus
	Notes             *string
	Actor             *outbox.ActorRef
}

// Service exposes order reads and admin status changes.
type Service interface {
	Get(ctx context.Context, id uuid.UUID, viewer Viewer) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber, email string, viewer Viewer) (*models.Order, error)
	List(ctx context.Context, viewer Viewer, params pagination.Params, status *enums.OrderStatus) (*OrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, input UpdateStatusInput) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the orders service.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: publisher,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Order not found").WithReason(pkgerrors.ReasonOrderNotFound)
}

func (s *service) Get(ctx context.Context, id uuid.UUID, viewer Viewer) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to fetch order")
	}
	if !viewer.CanSee(order) {
		return nil, notFound()
	}
	return order, nil
}

// GetByNumber lets a buyer confirm an order after an ambiguous checkout
// failure. Anyone without ownership must present the order email.
func (s *service) GetByNumber(ctx context.Context, orderNumber, email string, viewer Viewer) (*models.Order, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to fetch order")
	}
	if viewer.IsAdmin() || (viewer.UserID != nil && order.UserID != nil && *viewer.UserID == *order.UserID) {
		return order, nil
	}
	if email == "" || !strings.EqualFold(strings.TrimSpace(email), order.Email) {
		return nil, notFound()
	}
	return order, nil
}

func (s *service) List(ctx context.Context, viewer Viewer, params pagination.Params, status *enums.OrderStatus) (*OrderList, error) {
	if !viewer.IsAdmin() && viewer.UserID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	params = params.Normalize()
	filters := ListFilters{Status: status}
	if !viewer.IsAdmin() {
		filters.UserID = viewer.UserID
	}
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to fetch orders")
	}
	list := &OrderList{
		Orders:     make([]OrderDTO, 0, len(rows)),
		Pagination: pagination.NewMeta(params, total),
	}
	for i := range rows {
		list.Orders = append(list.Orders, ToDTO(&rows[i]))
	}
	return list, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if input.FulfillmentStatus != nil && !input.FulfillmentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return notFound()
			}
			return err
		}

		now := s.now()
		updates := map[string]any{}
		cancelling := false

		if input.Status != nil && *input.Status != order.Status {
			if err := CanTransitionOrder(order.Status, *input.Status); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "Invalid status transition")
			}
			updates["status"] = *input.Status
			cancelling = *input.Status == enums.OrderStatusCancelled
		}
		if input.PaymentStatus != nil && *input.PaymentStatus != order.PaymentStatus {
			if err := CanTransitionPayment(order.PaymentStatus, *input.PaymentStatus); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "Invalid payment status transition")
			}
			updates["payment_status"] = *input.PaymentStatus
			if *input.PaymentStatus == enums.PaymentStatusPaid && order.PaidAt == nil {
				updates["paid_at"] = now
			}
		}
		if input.FulfillmentStatus != nil && *input.FulfillmentStatus != order.FulfillmentStatus {
			if err := CanTransitionFulfillment(order.FulfillmentStatus, *input.FulfillmentStatus); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "Invalid fulfillment transition")
			}
			updates["fulfillment_status"] = *input.FulfillmentStatus
		}
		if input.Notes != nil {
			updates["notes"] = strings.TrimSpace(*input.Notes)
		}

		if err := repo.Update(ctx, id, updates); err != nil {
			return err
		}

		if cancelling {
			if err := s.releaseOnCancel(ctx, tx, repo, order, now, input.Actor); err != nil {
				return err
			}
		}

		updated, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to update order")
	}
	return updated, nil
}

func (s *service) releaseOnCancel(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, now time.Time, actor *outbox.ActorRef) error {
	claimed, err := repo.ClaimStockRelease(ctx, order.ID, now)
	if err != nil {
		return err
	}
	if claimed {
		units, err := inventory.Release(ctx, tx, inventory.ReleaseRequestsFor(order.Items))
		if err != nil {
			return err
		}
		fields := map[string]any{"order_id": order.ID.String(), "units": units}
		s.logg.Info(s.logg.WithFields(ctx, fields), "order.cancel.stock_released")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		OccurredAt:    now,
		Data: payloads.OrderCancelledEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			PreviousState: string(order.Status),
			CancelledAt:   now,
			StockReleased: claimed,
		},
	})
}
