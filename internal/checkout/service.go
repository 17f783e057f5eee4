package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wixandwax/storefront-backend/internal/cart"
	"github.com/wixandwax/storefront-backend/internal/discounts"
	"github.com/wixandwax/storefront-backend/internal/inventory"
	"github.com/wixandwax/storefront-backend/internal/orders"
	product "github.com/wixandwax/storefront-backend/internal/products"
	"github.com/wixandwax/storefront-backend/pkg/config"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/metrics"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/outbox/payloads"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

// Input is a checkout request. UserEmail comes from the access token; Email
// from the request body and wins when both are present.
type Input struct {
	UserID          *uuid.UUID
	UserRole        enums.UserRole
	UserEmail       string
	SessionID       string
	Email           string
	ShippingAddress *types.Address
	BillingAddress  *types.Address
	Notes           *string
	Items           []SelectedItem
}

// Result is the committed order and what happened to the cart.
type Result struct {
	Order         *models.Order
	CartID        uuid.UUID
	CartConverted bool
}

// Params wires the checkout service.
type Params struct {
	Tx        txRunner
	Carts     cart.CartRepository
	Products  *product.Repository
	Discounts *discounts.Repository
	Orders    orders.Repository
	Outbox    outboxPublisher
	Config    config.CheckoutConfig
	Metrics   *metrics.StorefrontMetrics
	Logger    *logger.Logger
}

type service struct {
	tx          txRunner
	carts       cart.CartRepository
	products    *product.Repository
	discounts   *discounts.Repository
	orders      orders.Repository
	outbox      outboxPublisher
	policy      TotalsPolicy
	usage       enums.DiscountUsagePolicy
	capDiscount bool
	currency    string
	maxAttempts int
	metrics     *metrics.StorefrontMetrics
	logg        *logger.Logger
	now         func() time.Time
	orderNumber func(time.Time) string
}

// NewService builds the checkout service.
func NewService(p Params) (Service, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if p.Discounts == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	usage, err := enums.ParseDiscountUsagePolicy(strings.ToLower(strings.TrimSpace(p.Config.DiscountUsagePolicy)))
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Config.Currency))
	if currency == "" {
		currency = config.DefaultCurrency
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:        p.Tx,
		carts:     p.Carts,
		products:  p.Products,
		discounts: p.Discounts,
		orders:    p.Orders,
		outbox:    p.Outbox,
		policy: TotalsPolicy{
			TaxRate:                p.Config.TaxRateDecimal(),
			Shipping:               p.Config.ShippingDecimal(),
			FreeShippingZeroesShip: p.Config.FreeShippingZeroesShip,
		},
		usage:       usage,
		capDiscount: p.Config.CapDiscountAtSubtotal,
		currency:    currency,
		maxAttempts: p.Config.OrderNumberMaxAttempts,
		metrics:     p.Metrics,
		logg:        logg,
		now:         func() time.Time { return time.Now().UTC() },
		orderNumber: func(t time.Time) string { return NewOrderNumber(t, nil) },
	}, nil
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	result, err := s.checkout(ctx, input)
	switch {
	case err == nil:
		s.metrics.ObserveCheckout(metrics.OutcomeSuccess, "")
		fields := map[string]any{
			"order_id":     result.Order.ID.String(),
			"order_number": result.Order.OrderNumber,
			"cart_id":      result.CartID.String(),
			"total":        result.Order.Total.StringFixed(2),
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "checkout.completed")
		return result, nil
	case pkgerrors.As(err) != nil && pkgerrors.CodeOf(err) != pkgerrors.CodeInternal:
		s.metrics.ObserveCheckout(metrics.OutcomeRejected, string(pkgerrors.ReasonOf(err)))
		s.logg.Warn(s.logg.WithField(ctx, "reason", string(pkgerrors.ReasonOf(err))), "checkout.rejected")
		return nil, err
	default:
		s.metrics.ObserveCheckout(metrics.OutcomeError, "")
		if pkgerrors.As(err) == nil {
			err = errCheckoutFailed(err)
		}
		s.logg.Error(ctx, "checkout.failed", err)
		return nil, err
	}
}

func (s *service) checkout(ctx context.Context, input Input) (*Result, error) {
	email, err := validateInput(input)
	if err != nil {
		return nil, err
	}
	owner := cart.Owner{UserID: input.UserID, SessionID: input.SessionID}.Normalized()
	if owner.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sessionId required for guest checkout")
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now()
		cartRepo := s.carts.WithTx(tx)

		current, err := cart.ResolveActive(ctx, cartRepo, owner)
		if err != nil {
			return err
		}
		if current == nil {
			return errCartEmpty()
		}

		pricing, err := ResolvePricing(ctx, s.products.WithTx(tx), current, input.Items)
		if err != nil {
			return err
		}

		discountIDs, err := cartRepo.ListDiscountIDs(ctx, current.ID)
		if err != nil {
			return err
		}
		discountRepo := s.discounts.WithTx(tx)
		attached, err := discountRepo.FindByIDs(ctx, discountIDs)
		if err != nil {
			return err
		}
		eval := discounts.Evaluate(now, pricing.Subtotal, attached, discounts.Options{CapAtSubtotal: s.capDiscount})
		totals := ComputeTotals(pricing.Subtotal, eval.Total, eval.FreeShipping, s.policy)

		order := s.buildOrder(input, email, current, pricing, eval, totals)
		ordersRepo := s.orders.WithTx(tx)
		next := func() string { return s.orderNumber(now) }
		if err := writeOrder(ctx, tx, ordersRepo, order, next, s.maxAttempts); err != nil {
			return err
		}

		requests := make([]inventory.DecrementRequest, 0, len(pricing.Lines))
		for _, line := range pricing.Lines {
			requests = append(requests, inventory.DecrementRequest{
				VariantID: line.VariantID,
				Qty:       line.Quantity,
				Label:     line.ProductName,
			})
		}
		if err := inventory.DecrementAll(ctx, tx, requests); err != nil {
			if pkgerrors.ReasonOf(err) == pkgerrors.ReasonInsufficientStock {
				s.metrics.IncInventoryOversold()
			}
			return err
		}

		if err := discountRepo.IncrementUsage(ctx, s.usedDiscounts(eval)); err != nil {
			return err
		}

		converted, err := reconcileCart(ctx, cartRepo, current, pricing.Lines)
		if err != nil {
			return err
		}

		if err := s.emitCreated(ctx, tx, input, order, eval, pricing); err != nil {
			return err
		}

		created, err := ordersRepo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		result = &Result{Order: created, CartID: current.ID, CartConverted: converted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateInput(input Input) (string, error) {
	if input.ShippingAddress == nil || !input.ShippingAddress.IsComplete() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Shipping address is required")
	}
	if input.BillingAddress != nil && !input.BillingAddress.IsComplete() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Billing address is incomplete")
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		email = strings.TrimSpace(input.UserEmail)
	}
	if email == "" || !strings.Contains(email, "@") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Email is required")
	}
	return strings.ToLower(email), nil
}

func (s *service) buildOrder(input Input, email string, c *models.Cart, pricing *Pricing, eval discounts.Evaluation, totals Totals) *models.Order {
	shipping := input.ShippingAddress.Normalized()
	order := &models.Order{
		UserID:            input.UserID,
		Email:             email,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentUnfulfilled,
		Subtotal:          totals.Subtotal,
		Discount:          totals.Discount,
		Tax:               totals.Tax,
		Shipping:          totals.Shipping,
		Total:             totals.Total,
		Currency:          s.currencyFor(c),
		ShippingAddress:   shipping,
		Items:             make([]models.OrderItem, 0, len(pricing.Lines)),
	}
	if input.BillingAddress != nil {
		billing := input.BillingAddress.Normalized()
		order.BillingAddress = &billing
	}
	if input.Notes != nil {
		if notes := strings.TrimSpace(*input.Notes); notes != "" {
			order.Notes = &notes
		}
	}
	for _, line := range pricing.Lines {
		variantID := line.VariantID
		order.Items = append(order.Items, models.OrderItem{
			VariantID:   &variantID,
			ProductName: line.ProductName,
			VariantName: line.VariantName,
			SKU:         line.SKU,
			Price:       line.UnitPrice,
			Quantity:    line.Quantity,
			Total:       line.LineTotal,
		})
	}
	for _, app := range eval.Applications {
		if !app.Contributed() {
			continue
		}
		order.Discounts = append(order.Discounts, models.OrderDiscount{
			DiscountID: app.DiscountID,
			Code:       app.Code,
			Type:       app.Type,
			Amount:     app.Amount,
		})
	}
	return order
}

func (s *service) currencyFor(c *models.Cart) string {
	if c != nil && c.Currency != "" {
		return c.Currency
	}
	return s.currency
}

// usedDiscounts picks the discounts whose used_count moves with this order.
func (s *service) usedDiscounts(eval discounts.Evaluation) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(eval.Applications))
	for _, app := range eval.Applications {
		// An exhausted discount is never counted past max_uses, whatever the policy.
		if app.Reason == discounts.ReasonExhausted {
			continue
		}
		if s.usage == enums.DiscountUsageAttached || app.Contributed() {
			ids = append(ids, app.DiscountID)
		}
	}
	return ids
}

func (s *service) emitCreated(ctx context.Context, tx *gorm.DB, input Input, order *models.Order, eval discounts.Evaluation, pricing *Pricing) error {
	codes := []string{}
	for _, app := range eval.Applications {
		if app.Contributed() {
			codes = append(codes, app.Code)
		}
	}
	actor := &outbox.ActorRef{UserID: input.UserID, Role: string(input.UserRole)}
	if input.UserID == nil {
		actor.Role = "guest"
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Email:       order.Email,
			Subtotal:    order.Subtotal.StringFixed(2),
			Discount:    order.Discount.StringFixed(2),
			Tax:         order.Tax.StringFixed(2),
			Shipping:    order.Shipping.StringFixed(2),
			Total:       order.Total.StringFixed(2),
			Currency:    order.Currency,
			ItemCount:   pricing.Units(),
			Discounts:   codes,
		},
	})
}
