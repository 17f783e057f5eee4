package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/api/responses"
	"github.com/wixandwax/storefront-backend/api/validators"
	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/internal/payments"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
)

type createPaymentRequest struct {
	OrderID string `json:"orderId" validate:"required,notblank"`
}

type createPaymentResponse struct {
	OrderID         uuid.UUID `json:"orderId"`
	OrderNumber     string    `json:"orderNumber"`
	RazorpayOrderID string    `json:"razorpayOrderId"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	KeyID           string    `json:"keyId"`
}

// CreatePaymentOrder registers a pending order with Razorpay and returns what
// the checkout widget needs.
func CreatePaymentOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUID(payload.OrderID, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreatePayment(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, createPaymentResponse{
			OrderID:         created.OrderID,
			OrderNumber:     created.OrderNumber,
			RazorpayOrderID: created.RazorpayOrderID,
			Amount:          created.Amount,
			Currency:        created.Currency,
			KeyID:           created.KeyID,
		})
	}
}

type verifyPaymentRequest struct {
	OrderID           string `json:"orderId" validate:"required,notblank"`
	RazorpayOrderID   string `json:"razorpayOrderId" validate:"required,notblank"`
	RazorpayPaymentID string `json:"razorpayPaymentId" validate:"required,notblank"`
	RazorpaySignature string `json:"razorpaySignature" validate:"required,notblank"`
}

type verifyPaymentResponse struct {
	Order orders.OrderDTO `json:"order"`
}

// VerifyPayment checks the checkout widget's signed callback and marks the
// order paid.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Missing payment verification data"))
			return
		}
		orderID, err := validators.ParseUUID(payload.OrderID, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyPayment(r.Context(), payments.VerifyInput{
			OrderID:           orderID,
			RazorpayOrderID:   payload.RazorpayOrderID,
			RazorpayPaymentID: payload.RazorpayPaymentID,
			RazorpaySignature: payload.RazorpaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, verifyPaymentResponse{Order: orders.ToDTO(order)})
	}
}
