package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/metrics"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/outbox/payloads"
	"github.com/wixandwax/storefront-backend/pkg/razorpay"
)

const (
	sourceVerify  = "verify"
	sourceWebhook = "webhook"
)

// Verification and webhook outcomes recorded in metrics.
const (
	outcomeInvalidSignature = "invalid_signature"
	outcomeConflict         = "conflict"
	outcomeDuplicate        = "duplicate"
	outcomeIgnored          = "ignored"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service registers orders with the gateway and records their payment.
type Service interface {
	CreatePayment(ctx context.Context, orderID uuid.UUID) (*PaymentOrder, error)
	VerifyPayment(ctx context.Context, input VerifyInput) (*models.Order, error)
	HandleWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error)
}

// PaymentOrder is what the storefront needs to open the checkout widget.
type PaymentOrder struct {
	OrderID         uuid.UUID
	OrderNumber     string
	RazorpayOrderID string
	Amount          int64
	Currency        string
	KeyID           string
}

// VerifyInput is the callback the checkout widget hands back.
type VerifyInput struct {
	OrderID           uuid.UUID
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
}

// WebhookInput is a raw gateway delivery. EventID comes from the
// X-Razorpay-Event-Id header when present.
type WebhookInput struct {
	Body      []byte
	Signature string
	EventID   string
}

// WebhookResult reports what a delivery did.
type WebhookResult struct {
	Event   string
	Outcome string
	OrderID *uuid.UUID
}

// Params wires the payment service. Gateway may be nil when Razorpay is not
// configured; Guard may be nil to disable webhook dedup.
type Params struct {
	Tx      txRunner
	Orders  orders.Repository
	Outbox  outboxPublisher
	Gateway Gateway
	Guard   EventGuard
	Metrics *metrics.StorefrontMetrics
	Logger  *logger.Logger
}

type service struct {
	tx      txRunner
	orders  orders.Repository
	outbox  outboxPublisher
	gateway Gateway
	guard   EventGuard
	metrics *metrics.StorefrontMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(p Params) (Service, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:      p.Tx,
		orders:  p.Orders,
		outbox:  p.Outbox,
		gateway: p.Gateway,
		guard:   p.Guard,
		metrics: p.Metrics,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreatePayment(ctx context.Context, orderID uuid.UUID) (*PaymentOrder, error) {
	if s.gateway == nil {
		return nil, errUnavailable()
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errOrderNotFound()
		}
		return nil, errCreateFailed(err)
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, errAlreadyPaid()
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, errOrderCancelled()
	}

	remote, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   razorpay.ToSubunits(order.Total),
		Currency: order.Currency,
		Receipt:  order.OrderNumber,
		Notes: map[string]string{
			"orderId":     order.ID.String(),
			"orderNumber": order.OrderNumber,
		},
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodePaymentUnavailable) {
			return nil, err
		}
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "payments.create_order_failed", err)
		return nil, errCreateFailed(err)
	}

	if err := s.orders.SetPaymentReference(ctx, order.ID, enums.PaymentProviderRazorpay, remote.ID); err != nil {
		return nil, errCreateFailed(err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":          order.ID.String(),
		"payment_reference": remote.ID,
	}), "payments.order_registered")

	return &PaymentOrder{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		RazorpayOrderID: remote.ID,
		Amount:          remote.Amount,
		Currency:        remote.Currency,
		KeyID:           s.gateway.KeyID(),
	}, nil
}

func (s *service) VerifyPayment(ctx context.Context, input VerifyInput) (*models.Order, error) {
	order, outcome, err := s.verify(ctx, input)
	s.metrics.ObserveVerification(outcome)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = errVerificationFailed(err)
		}
		if outcome == metrics.OutcomeError {
			s.logg.Error(s.logg.WithOrderID(ctx, input.OrderID.String()), "payments.verify_failed", err)
		}
		return nil, err
	}
	return order, nil
}

func (s *service) verify(ctx context.Context, input VerifyInput) (*models.Order, string, error) {
	if s.gateway == nil {
		return nil, metrics.OutcomeRejected, errUnavailable()
	}
	if input.OrderID == uuid.Nil || strings.TrimSpace(input.RazorpayOrderID) == "" ||
		strings.TrimSpace(input.RazorpayPaymentID) == "" || strings.TrimSpace(input.RazorpaySignature) == "" {
		return nil, metrics.OutcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "orderId, razorpayOrderId, razorpayPaymentId and razorpaySignature are required")
	}
	if !s.gateway.VerifyPaymentSignature(input.RazorpayOrderID, input.RazorpayPaymentID, input.RazorpaySignature) {
		s.logg.Warn(s.logg.WithOrderID(ctx, input.OrderID.String()), "payments.signature_mismatch")
		return nil, outcomeInvalidSignature, errInvalidSignature()
	}

	var (
		result  *models.Order
		outcome = metrics.OutcomeSuccess
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if db.IsNotFound(err) {
				outcome = metrics.OutcomeRejected
				return errOrderNotFound()
			}
			return err
		}
		// The signature only proves the payment belongs to the remote order;
		// the order must have been registered with that remote order first.
		if order.PaymentReference == nil || *order.PaymentReference != input.RazorpayOrderID {
			outcome = outcomeInvalidSignature
			return errInvalidSignature()
		}
		changed, err := s.markPaid(ctx, tx, repo, order, input.RazorpayPaymentID, sourceVerify)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				outcome = outcomeConflict
			}
			return err
		}
		if !changed {
			outcome = metrics.OutcomeReplayed
		}
		result, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		if outcome == metrics.OutcomeSuccess {
			outcome = metrics.OutcomeError
		}
		return nil, outcome, err
	}
	return result, outcome, nil
}

// markPaid moves order to paid and emits order_paid exactly once. It reports
// false when the order was already paid. A cancelled order is a conflict.
func (s *service) markPaid(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, paymentID, source string) (bool, error) {
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return false, nil
	}
	if order.Status == enums.OrderStatusCancelled {
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"payment_id": paymentID,
			"source":     source,
		}), "payments.paid_after_cancel", errOrderCancelled())
		return false, errOrderCancelled()
	}
	if paymentID == "" && order.PaymentID != nil {
		paymentID = *order.PaymentID
	}

	paidAt := s.now()
	changed, err := repo.MarkPaid(ctx, order.ID, paymentID, paidAt)
	if err != nil {
		return false, err
	}
	if !changed {
		current, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return false, err
		}
		if current.Status == enums.OrderStatusCancelled {
			return false, errOrderCancelled()
		}
		return false, nil
	}

	reference := ""
	if order.PaymentReference != nil {
		reference = *order.PaymentReference
	}
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPaidEvent{
			OrderID:          order.ID,
			OrderNumber:      order.OrderNumber,
			Email:            order.Email,
			Provider:         string(enums.PaymentProviderRazorpay),
			PaymentReference: reference,
			PaymentID:        paymentID,
			Total:            order.Total.StringFixed(2),
			Currency:         order.Currency,
			PaidAt:           paidAt,
			Source:           source,
		},
	})
	if err != nil {
		return false, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"payment_id": paymentID,
		"source":     source,
	}), "payments.order_paid")
	return true, nil
}
