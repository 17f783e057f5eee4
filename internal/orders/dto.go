package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/pkg/db/models"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	"github.com/wixandwax/storefront-backend/pkg/pagination"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

// OrderDTO is the public shape of an order. Money is rendered with two
// decimals.
type OrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	OrderNumber       string                  `json:"orderNumber"`
	UserID            *uuid.UUID              `json:"userId,omitempty"`
	Email             string                  `json:"email"`
	Status            enums.OrderStatus       `json:"status"`
	PaymentStatus     enums.PaymentStatus     `json:"paymentStatus"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillmentStatus"`
	Subtotal          string                  `json:"subtotal"`
	Discount          string                  `json:"discount"`
	Tax               string                  `json:"tax"`
	Shipping          string                  `json:"shipping"`
	Total             string                  `json:"total"`
	Currency          string                  `json:"currency"`
	ShippingAddress   types.Address           `json:"shippingAddress"`
	BillingAddress    *types.Address          `json:"billingAddress,omitempty"`
	Notes             *string                 `json:"notes,omitempty"`
	PaymentReference  *string                 `json:"paymentReference,omitempty"`
	PaidAt            *time.Time              `json:"paidAt,omitempty"`
	Items             []OrderItemDTO          `json:"items"`
	Discounts         []OrderDiscountDTO      `json:"discounts"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

type OrderItemDTO struct {
	ID           uuid.UUID  `json:"id"`
	VariantID    *uuid.UUID `json:"variantId,omitempty"`
	ProductName  string     `json:"productName"`
	VariantName  string     `json:"variantName"`
	SKU          string     `json:"sku"`
	Price        string     `json:"price"`
	Quantity     int        `json:"quantity"`
	Total        string     `json:"total"`
	FulfilledQty int        `json:"fulfilledQty"`
}

type OrderDiscountDTO struct {
	DiscountID uuid.UUID          `json:"discountId"`
	Code       string             `json:"code"`
	Type       enums.DiscountType `json:"type"`
	Amount     string             `json:"amount"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO      `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// ToDTO renders an order loaded with its items and discounts.
func ToDTO(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		Email:             o.Email,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Subtotal:          o.Subtotal.StringFixed(2),
		Discount:          o.Discount.StringFixed(2),
		Tax:               o.Tax.StringFixed(2),
		Shipping:          o.Shipping.StringFixed(2),
		Total:             o.Total.StringFixed(2),
		Currency:          o.Currency,
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		Notes:             o.Notes,
		PaymentReference:  o.PaymentReference,
		PaidAt:            o.PaidAt,
		Items:             make([]OrderItemDTO, 0, len(o.Items)),
		Discounts:         make([]OrderDiscountDTO, 0, len(o.Discounts)),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:           item.ID,
			VariantID:    item.VariantID,
			ProductName:  item.ProductName,
			VariantName:  item.VariantName,
			SKU:          item.SKU,
			Price:        item.Price.StringFixed(2),
			Quantity:     item.Quantity,
			Total:        item.Total.StringFixed(2),
			FulfilledQty: item.FulfilledQty,
		})
	}
	for _, d := range o.Discounts {
		dto.Discounts = append(dto.Discounts, OrderDiscountDTO{
			DiscountID: d.DiscountID,
			Code:       d.Code,
			Type:       d.Type,
			Amount:     d.Amount.StringFixed(2),
		})
	}
	return dto
}
