package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wixandwax/storefront-backend/internal/inventory"
	product "github.com/wixandwax/storefront-backend/internal/products"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
)

// SelectedItem is one line of a partial checkout. A non-positive Quantity
// means the whole cart quantity.
type SelectedItem struct {
	VariantID uuid.UUID
	Quantity  int
}

// Line is a priced line ready to become an order item.
type Line struct {
	CartItemID   uuid.UUID
	CartQuantity int
	VariantID    uuid.UUID
	ProductName  string
	VariantName  string
	SKU          string
	UnitPrice    decimal.Decimal
	Quantity     int
	LineTotal    decimal.Decimal
}

// Pricing is the authoritative price of a selection.
type Pricing struct {
	Lines    []Line
	Subtotal decimal.Decimal
}

// Units is the number of items across all lines.
func (p *Pricing) Units() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}

// ResolvePricing checks the selection against the cart and prices it from the
// variant rows. An empty selection buys the whole cart. Cart price snapshots
// are never read.
func ResolvePricing(ctx context.Context, variants *product.Repository, cart *models.Cart, selection []SelectedItem) (*Pricing, error) {
	if cart == nil || len(cart.Items) == 0 {
		return nil, errCartEmpty()
	}
	wanted, err := selectQuantities(cart, selection)
	if err != nil {
		return nil, err
	}
	if len(wanted) == 0 {
		return nil, errNoItemsSelected()
	}

	ids := make([]uuid.UUID, 0, len(wanted))
	for _, item := range cart.Items {
		if _, ok := wanted[item.VariantID]; ok {
			ids = append(ids, item.VariantID)
		}
	}
	rows, err := variants.FindVariants(ctx, ids)
	if err != nil {
		return nil, err
	}

	pricing := &Pricing{Subtotal: decimal.Zero}
	for _, item := range cart.Items {
		qty, ok := wanted[item.VariantID]
		if !ok {
			continue
		}
		variant, found := rows[item.VariantID]
		if !found {
			return nil, errVariantGone(item.VariantID)
		}
		name := variant.Name
		if variant.Product != nil {
			name = variant.Product.Name
		}
		if variant.Product == nil || !variant.Product.Status.Purchasable() {
			return nil, errProductUnavailable(name)
		}
		if variant.Quantity < qty {
			return nil, inventory.InsufficientStock(name)
		}

		lineTotal := variant.Price.Mul(decimal.NewFromInt(int64(qty)))
		pricing.Lines = append(pricing.Lines, Line{
			CartItemID:   item.ID,
			CartQuantity: item.Quantity,
			VariantID:    variant.ID,
			ProductName:  name,
			VariantName:  variant.Name,
			SKU:          variant.SKU,
			UnitPrice:    variant.Price,
			Quantity:     qty,
			LineTotal:    lineTotal,
		})
		pricing.Subtotal = pricing.Subtotal.Add(lineTotal)
	}
	return pricing, nil
}

// selectQuantities maps variant ids to the quantity being bought. Repeated
// variants in the selection are summed before checking the cart.
func selectQuantities(cart *models.Cart, selection []SelectedItem) (map[uuid.UUID]int, error) {
	inCart := make(map[uuid.UUID]int, len(cart.Items))
	for _, item := range cart.Items {
		inCart[item.VariantID] += item.Quantity
	}

	wanted := make(map[uuid.UUID]int, len(cart.Items))
	if len(selection) == 0 {
		for id, qty := range inCart {
			wanted[id] = qty
		}
		return wanted, nil
	}

	for _, sel := range selection {
		cartQty, ok := inCart[sel.VariantID]
		if !ok {
			return nil, errItemNotInCart(sel.VariantID)
		}
		qty := sel.Quantity
		if qty <= 0 {
			qty = cartQty
		}
		wanted[sel.VariantID] += qty
	}
	for id, qty := range wanted {
		if qty > inCart[id] {
			return nil, errQuantityExceedsCart(id, qty, inCart[id])
		}
	}
	return wanted, nil
}
