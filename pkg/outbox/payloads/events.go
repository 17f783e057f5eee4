package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent is emitted when checkout commits a new order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID  `json:"orderId"`
	OrderNumber string     `json:"orderNumber"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	Email       string     `json:"email"`
	Subtotal    string     `json:"subtotal"`
	Discount    string     `json:"discount"`
	Tax         string     `json:"tax"`
	Shipping    string     `json:"shipping"`
	Total       string     `json:"total"`
	Currency    string     `json:"currency"`
	ItemCount   int        `json:"itemCount"`
	Discounts   []string   `json:"discountCodes,omitempty"`
}

// OrderPaidEvent is emitted once per order when the payment is confirmed.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"orderId"`
	OrderNumber      string    `json:"orderNumber"`
	Email            string    `json:"email"`
	Provider         string    `json:"provider"`
	PaymentReference string    `json:"paymentReference"`
	PaymentID        string    `json:"paymentId"`
	Total            string    `json:"total"`
	Currency         string    `json:"currency"`
	PaidAt           time.Time `json:"paidAt"`
	Source           string    `json:"source"`
}

// OrderExpiredEvent is emitted by the reaper when an unpaid order is released.
type OrderExpiredEvent struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	PaymentStatus string    `json:"paymentStatus"`
	ExpiredAt     time.Time `json:"expiredAt"`
	ReleasedUnits int       `json:"releasedUnits"`
}

// OrderCancelledEvent is emitted when an admin cancels an order.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	PreviousState string    `json:"previousStatus"`
	CancelledAt   time.Time `json:"cancelledAt"`
	StockReleased bool      `json:"stockReleased"`
}

// PaymentFailedEvent is emitted when the gateway reports a failed attempt.
type PaymentFailedEvent struct {
	OrderID          uuid.UUID `json:"orderId"`
	OrderNumber      string    `json:"orderNumber"`
	PaymentReference string    `json:"paymentReference"`
	PaymentID        string    `json:"paymentId,omitempty"`
	ErrorCode        string    `json:"errorCode,omitempty"`
	ErrorDescription string    `json:"errorDescription,omitempty"`
}
