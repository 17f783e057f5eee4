package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wixandwax/storefront-backend/internal/discounts"
	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
)

// CartDTO is the cart as the storefront renders it. Prices come from the
// variants, not from the item snapshots.
type CartDTO struct {
	ID               uuid.UUID         `json:"id"`
	Status           enums.CartStatus  `json:"status"`
	Currency         string            `json:"currency"`
	Items            []CartItemDTO     `json:"items"`
	Discounts        []CartDiscountDTO `json:"discounts"`
	ItemCount        int               `json:"itemCount"`
	Subtotal         string            `json:"subtotal"`
	DiscountEstimate string            `json:"discountEstimate"`
	FreeShipping     bool              `json:"freeShipping"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

type CartItemDTO struct {
	ID          uuid.UUID `json:"id"`
	VariantID   uuid.UUID `json:"variantId"`
	ProductName string    `json:"productName,omitempty"`
	VariantName string    `json:"variantName,omitempty"`
	SKU         string    `json:"sku,omitempty"`
	Price       string    `json:"price"`
	Quantity    int       `json:"quantity"`
	LineTotal   string    `json:"lineTotal"`
	InStock     int       `json:"inStock"`
	Available   bool      `json:"available"`
}

type CartDiscountDTO struct {
	DiscountID uuid.UUID          `json:"discountId"`
	Code       string             `json:"code"`
	Type       enums.DiscountType `json:"type"`
	Value      string             `json:"value"`
	Valid      bool               `json:"valid"`
	Reason     string             `json:"reason,omitempty"`
}

// LiveSubtotal prices the cart at current variant prices, falling back to
// the snapshot for lines whose variant was not loaded.
func LiveSubtotal(c *models.Cart) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.Items {
		price := item.Price
		if item.Variant != nil {
			price = item.Variant.Price
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

// ToDTO renders a cart loaded with contents. Discount figures are an
// estimate; checkout recomputes them.
func ToDTO(c *models.Cart, now time.Time) CartDTO {
	dto := CartDTO{
		ID:        c.ID,
		Status:    c.Status,
		Currency:  c.Currency,
		Items:     make([]CartItemDTO, 0, len(c.Items)),
		Discounts: make([]CartDiscountDTO, 0, len(c.Discounts)),
		UpdatedAt: c.UpdatedAt,
	}

	subtotal := decimal.Zero
	for _, item := range c.Items {
		line := CartItemDTO{
			ID:        item.ID,
			VariantID: item.VariantID,
			Price:     item.Price.StringFixed(2),
			Quantity:  item.Quantity,
		}
		price := item.Price
		if v := item.Variant; v != nil {
			price = v.Price
			line.Price = v.Price.StringFixed(2)
			line.VariantName = v.Name
			line.SKU = v.SKU
			line.InStock = v.Quantity
			line.Available = v.Quantity >= item.Quantity
			if v.Product != nil {
				line.ProductName = v.Product.Name
				line.Available = line.Available && v.Product.Status.Purchasable()
			}
		}
		lineTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		line.LineTotal = lineTotal.StringFixed(2)
		subtotal = subtotal.Add(lineTotal)
		dto.ItemCount += item.Quantity
		dto.Items = append(dto.Items, line)
	}

	rows := make([]models.Discount, 0, len(c.Discounts))
	for _, link := range c.Discounts {
		if link.Discount != nil {
			rows = append(rows, *link.Discount)
		}
	}
	eval := discounts.Evaluate(now, subtotal, rows, discounts.Options{CapAtSubtotal: true})
	for i, app := range eval.Applications {
		dto.Discounts = append(dto.Discounts, CartDiscountDTO{
			DiscountID: app.DiscountID,
			Code:       app.Code,
			Type:       app.Type,
			Value:      rows[i].Value.StringFixed(2),
			Valid:      app.Valid,
			Reason:     app.Reason,
		})
	}

	dto.Subtotal = subtotal.StringFixed(2)
	dto.DiscountEstimate = eval.Total.StringFixed(2)
	dto.FreeShipping = eval.FreeShipping
	return dto
}
