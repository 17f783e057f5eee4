package checkout

import (
	"github.com/shopspring/decimal"
)

// TotalsPolicy carries the store-wide pricing constants.
type TotalsPolicy struct {
	TaxRate                decimal.Decimal
	Shipping               decimal.Decimal
	FreeShippingZeroesShip bool
}

// Totals is the money breakdown of an order. Every figure is rounded to
// cents and Total is their exact sum.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals applies tax to the discounted subtotal and adds shipping.
func ComputeTotals(subtotal, discount decimal.Decimal, freeShipping bool, policy TotalsPolicy) Totals {
	subtotal = subtotal.Round(2)
	discount = discount.Round(2)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := taxable.Mul(policy.TaxRate).Round(2)

	shipping := policy.Shipping.Round(2)
	if freeShipping && policy.FreeShippingZeroesShip {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping,
		Total:    taxable.Add(tax).Add(shipping),
	}
}
