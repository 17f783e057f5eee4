package payments

import (
	"context"

	"github.com/wixandwax/storefront-backend/pkg/razorpay"
)

// Gateway is the slice of the Razorpay client the payment flows use.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// EventGuard remembers webhook deliveries already handled.
type EventGuard interface {
	CheckAndMark(ctx context.Context, provider, eventID string) (bool, error)
	Release(ctx context.Context, provider, eventID string) error
}

var _ Gateway = (*razorpay.Client)(nil)
