package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
)

// Reasons a discount contributes nothing.
const (
	ReasonInactive    = "inactive"
	ReasonNotStarted  = "not_started"
	ReasonExpired     = "expired"
	ReasonMinPurchase = "min_purchase_not_met"
	ReasonExhausted   = "usage_limit_reached"
	ReasonUnknownType = "unknown_type"
)

var hundred = decimal.NewFromInt(100)

// Application is what one discount did to a selection.
type Application struct {
	DiscountID   uuid.UUID
	Code         string
	Type         enums.DiscountType
	Amount       decimal.Decimal
	Valid        bool
	FreeShipping bool
	Reason       string
}

// Contributed reports whether the discount changed the price or shipping.
func (a Application) Contributed() bool {
	return a.Valid && (a.Amount.IsPositive() || a.FreeShipping)
}

// Evaluation sums the applications. Total never exceeds the subtotal when
// capping is enabled.
type Evaluation struct {
	Applications []Application
	Total        decimal.Decimal
	FreeShipping bool
}

// Options tune stacking.
type Options struct {
	CapAtSubtotal bool
}

// Check reports whether d may apply to a selection worth subtotal at now.
func Check(now time.Time, subtotal decimal.Decimal, d models.Discount) (bool, string) {
	if !d.IsActive {
		return false, ReasonInactive
	}
	if d.StartsAt != nil && d.StartsAt.After(now) {
		return false, ReasonNotStarted
	}
	if d.EndsAt != nil && d.EndsAt.Before(now) {
		return false, ReasonExpired
	}
	if !d.MeetsMinimum(subtotal) {
		return false, ReasonMinPurchase
	}
	if d.Exhausted() {
		return false, ReasonExhausted
	}
	if !d.Type.IsValid() {
		return false, ReasonUnknownType
	}
	return true, ""
}

// Evaluate applies every discount to subtotal. Discounts stack additively;
// percentage discounts are all taken from the undiscounted subtotal. Amounts
// are rounded to cents.
func Evaluate(now time.Time, subtotal decimal.Decimal, rows []models.Discount, opts Options) Evaluation {
	eval := Evaluation{
		Applications: make([]Application, 0, len(rows)),
		Total:        decimal.Zero,
	}
	remaining := subtotal

	for _, d := range rows {
		app := Application{
			DiscountID: d.ID,
			Code:       d.Code,
			Type:       d.Type,
			Amount:     decimal.Zero,
		}
		ok, reason := Check(now, subtotal, d)
		if !ok {
			app.Reason = reason
			eval.Applications = append(eval.Applications, app)
			continue
		}
		app.Valid = true

		switch d.Type {
		case enums.DiscountTypePercentage:
			app.Amount = subtotal.Mul(d.Value).Div(hundred).Round(2)
		case enums.DiscountTypeFixedAmount:
			app.Amount = d.Value.Round(2)
		case enums.DiscountTypeFreeShipping:
			app.FreeShipping = true
			eval.FreeShipping = true
		}
		if app.Amount.IsNegative() {
			app.Amount = decimal.Zero
		}

		if opts.CapAtSubtotal {
			if app.Amount.GreaterThan(remaining) {
				app.Amount = remaining
			}
			remaining = remaining.Sub(app.Amount)
		}
		eval.Total = eval.Total.Add(app.Amount)
		eval.Applications = append(eval.Applications, app)
	}
	return eval
}
