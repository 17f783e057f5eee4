package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wixandwax/storefront-backend/api/middleware"
	"github.com/wixandwax/storefront-backend/api/responses"
	"github.com/wixandwax/storefront-backend/api/validators"
	internalorders "github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
)

// List returns the caller's orders; admins see every order.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			status = &parsed
		}

		list, err := svc.List(r.Context(), viewerFromRequest(r), params, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order the caller can see.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, viewerFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(order))
	}
}

// ByNumber looks an order up by its human-readable number. Guests must pass
// the order email as ?email=.
func ByNumber(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		number := validators.NormalizeOrderNumber(chi.URLParam(r, "orderNumber"))
		email := validators.NormalizeEmail(r.URL.Query().Get("email"))

		order, err := svc.GetByNumber(r.Context(), number, email, viewerFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(order))
	}
}

type adminUpdateRequest struct {
	Status            *string `json:"status" validate:"omitempty,oneof=pending confirmed processing shipped delivered cancelled"`
	PaymentStatus     *string `json:"paymentStatus" validate:"omitempty,oneof=pending paid refunded failed"`
	FulfillmentStatus *string `json:"fulfillmentStatus" validate:"omitempty,oneof=unfulfilled partial fulfilled"`
	Notes             *string `json:"notes" validate:"omitempty,max=1000"`
}

// AdminUpdate applies back-office status changes. Cancelling an unpaid order
// releases its stock.
func AdminUpdate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload adminUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.UpdateStatusInput{
			Notes: payload.Notes,
			Actor: &outbox.ActorRef{
				UserID: middleware.UserUUIDFromContext(r.Context()),
				Role:   middleware.RoleFromContext(r.Context()),
			},
		}
		if payload.Status != nil {
			status := enums.OrderStatus(*payload.Status)
			input.Status = &status
		}
		if payload.PaymentStatus != nil {
			status := enums.PaymentStatus(*payload.PaymentStatus)
			input.PaymentStatus = &status
		}
		if payload.FulfillmentStatus != nil {
			status := enums.FulfillmentStatus(*payload.FulfillmentStatus)
			input.FulfillmentStatus = &status
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(order))
	}
}

func viewerFromRequest(r *http.Request) internalorders.Viewer {
	return internalorders.Viewer{
		UserID: middleware.UserUUIDFromContext(r.Context()),
		Role:   enums.UserRole(middleware.RoleFromContext(r.Context())),
		Email:  middleware.EmailFromContext(r.Context()),
	}
}
