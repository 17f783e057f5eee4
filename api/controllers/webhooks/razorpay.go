package webhooks

import (
	"io"
	"net/http"

	"github.com/wixandwax/storefront-backend/api/responses"
	"github.com/wixandwax/storefront-backend/internal/payments"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"
	maxWebhookBytes         = 1 << 20
)

type webhookAck struct {
	Event   string `json:"event,omitempty"`
	Outcome string `json:"outcome"`
}

// RazorpayWebhook applies payment lifecycle deliveries. The raw body is
// passed through untouched because the signature covers its exact bytes.
func RazorpayWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(razorpaySignatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "razorpay signature missing").
				WithReason(pkgerrors.ReasonInvalidSignature))
			return
		}

		result, err := svc.HandleWebhook(ctx, payments.WebhookInput{
			Body:      payload,
			Signature: sigHeader,
			EventID:   r.Header.Get(razorpayEventIDHeader),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, webhookAck{Event: result.Event, Outcome: result.Outcome})
	}
}
