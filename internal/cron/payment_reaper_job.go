package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/inventory"
	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/outbox/payloads"
)

const (
	paymentReaperName      = "payment-reaper"
	defaultPaymentTTL      = 30 * time.Minute
	defaultReaperBatchSize = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PaymentReaperJobParams configure the unpaid order sweep.
type PaymentReaperJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Orders     orders.Repository
	Outbox     outboxEmitter
	PaymentTTL time.Duration
	BatchSize  int
}

// NewPaymentReaperJob builds the job that cancels orders left unpaid past
// the payment window and puts their stock back.
func NewPaymentReaperJob(params PaymentReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.PaymentTTL
	if ttl <= 0 {
		ttl = defaultPaymentTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReaperBatchSize
	}
	return &paymentReaperJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type paymentReaperJob struct {
	logg   *logger.Logger
	db     txRunner
	orders orders.Repository
	outbox outboxEmitter
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *paymentReaperJob) Name() string { return paymentReaperName }

// Run expires one batch. A failing order is skipped so the rest of the batch
// still gets released; the failures are combined into the returned error.
func (j *paymentReaperJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	candidates, err := j.orders.FindExpiredUnpaid(ctx, cutoff, j.batch)
	if err != nil {
		return 0, fmt.Errorf("query unpaid orders: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range candidates {
		ok, err := j.expireOrder(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}
	if len(candidates) > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"candidates": len(candidates),
			"expired":    expired,
			"cutoff":     cutoff,
		}), "reaper.sweep_complete")
	}
	return expired, errs
}

func (j *paymentReaperJob) expireOrder(ctx context.Context, order models.Order) (bool, error) {
	expired := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		now := j.now().UTC()
		repo := j.orders.WithTx(tx)
		claimed, err := repo.ExpireUnpaid(ctx, order.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			// Paid, cancelled or released since the query ran.
			return nil
		}
		released, err := inventory.Release(ctx, tx, inventory.ReleaseRequestsFor(order.Items))
		if err != nil {
			return err
		}
		if err := j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderExpiredEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				PaymentStatus: string(order.PaymentStatus),
				ExpiredAt:     now,
				ReleasedUnits: released,
			},
		}); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}
