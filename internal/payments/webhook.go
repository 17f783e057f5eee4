package payments

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/metrics"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/outbox/payloads"
	"github.com/wixandwax/storefront-backend/pkg/razorpay"
)

const webhookProvider = "razorpay"

// HandleWebhook applies a signed gateway delivery. Deliveries for unknown
// orders or events are acknowledged and ignored so the gateway stops
// retrying; only processing failures return an error.
func (s *service) HandleWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error) {
	if s.gateway == nil {
		return nil, errUnavailable()
	}
	if !s.gateway.VerifyWebhookSignature(input.Body, input.Signature) {
		s.metrics.ObserveWebhook("unknown", outcomeInvalidSignature)
		s.logg.Warn(ctx, "payments.webhook_signature_mismatch")
		return nil, errInvalidSignature()
	}
	event, err := razorpay.ParseWebhookEvent(input.Body)
	if err != nil {
		s.metrics.ObserveWebhook("unknown", metrics.OutcomeRejected)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}

	eventID := webhookEventID(input.EventID, event)
	ctx = s.logg.WithFields(ctx, map[string]any{"webhook_event": event.Event, "webhook_event_id": eventID})

	if s.guard != nil && eventID != "" {
		seen, err := s.guard.CheckAndMark(ctx, webhookProvider, eventID)
		if err != nil {
			s.logg.Error(ctx, "payments.webhook_dedup_failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedup unavailable")
		}
		if seen {
			s.metrics.ObserveWebhook(event.Event, outcomeDuplicate)
			return &WebhookResult{Event: event.Event, Outcome: outcomeDuplicate}, nil
		}
	}

	result, err := s.applyWebhook(ctx, event)
	if err != nil {
		if s.guard != nil && eventID != "" {
			if releaseErr := s.guard.Release(ctx, webhookProvider, eventID); releaseErr != nil {
				s.logg.Error(ctx, "payments.webhook_dedup_release_failed", releaseErr)
			}
		}
		s.metrics.ObserveWebhook(event.Event, metrics.OutcomeError)
		s.logg.Error(ctx, "payments.webhook_failed", err)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Webhook processing failed")
		}
		return nil, err
	}
	s.metrics.ObserveWebhook(event.Event, result.Outcome)
	s.logg.Info(s.logg.WithField(ctx, "outcome", result.Outcome), "payments.webhook_handled")
	return result, nil
}

func webhookEventID(header string, event *razorpay.WebhookEvent) string {
	if id := strings.TrimSpace(header); id != "" {
		return id
	}
	ref := event.PaymentID()
	if ref == "" {
		ref = event.RemoteOrderID()
	}
	if ref == "" {
		return ""
	}
	return event.Event + ":" + ref
}

func (s *service) applyWebhook(ctx context.Context, event *razorpay.WebhookEvent) (*WebhookResult, error) {
	result := &WebhookResult{Event: event.Event, Outcome: outcomeIgnored}
	switch event.Event {
	case razorpay.EventPaymentCaptured, razorpay.EventOrderPaid, razorpay.EventPaymentFailed:
	default:
		return result, nil
	}

	reference := event.RemoteOrderID()
	if reference == "" {
		return result, nil
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByPaymentReference(ctx, reference)
		if err != nil {
			if db.IsNotFound(err) {
				s.logg.Warn(s.logg.WithField(ctx, "payment_reference", reference), "payments.webhook_unknown_order")
				return nil
			}
			return err
		}
		orderID := order.ID
		result.OrderID = &orderID

		if event.Event == razorpay.EventPaymentFailed {
			return s.applyPaymentFailed(ctx, tx, repo, order, event, result)
		}
		changed, err := s.markPaid(ctx, tx, repo, order, event.PaymentID(), sourceWebhook)
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
			result.Outcome = outcomeConflict
			return nil
		case err != nil:
			return err
		case changed:
			result.Outcome = metrics.OutcomeSuccess
		default:
			result.Outcome = metrics.OutcomeReplayed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) applyPaymentFailed(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, event *razorpay.WebhookEvent, result *WebhookResult) error {
	changed, err := repo.MarkPaymentFailed(ctx, order.ID, event.PaymentID())
	if err != nil {
		return err
	}
	if !changed {
		result.Outcome = metrics.OutcomeReplayed
		return nil
	}
	data := payloads.PaymentFailedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		PaymentID:   event.PaymentID(),
	}
	if order.PaymentReference != nil {
		data.PaymentReference = *order.PaymentReference
	}
	if event.Payload.Payment != nil {
		data.ErrorCode = event.Payload.Payment.Entity.ErrorCode
		data.ErrorDescription = event.Payload.Payment.Entity.ErrorDescription
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data:          data,
	}); err != nil {
		return err
	}
	result.Outcome = metrics.OutcomeSuccess
	return nil
}
