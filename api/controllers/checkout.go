package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/api/middleware"
	"github.com/wixandwax/storefront-backend/api/responses"
	"github.com/wixandwax/storefront-backend/api/validators"
	checkoutsvc "github.com/wixandwax/storefront-backend/internal/checkout"
	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/pkg/enums"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/types"
)

type checkoutRequest struct {
	SessionID       string              `json:"sessionId" validate:"omitempty,max=128"`
	Email           string              `json:"email" validate:"omitempty,email,max=255"`
	ShippingAddress *types.Address      `json:"shippingAddress"`
	BillingAddress  *types.Address      `json:"billingAddress"`
	Notes           *string             `json:"notes" validate:"omitempty,max=1000"`
	Items           []checkoutItemInput `json:"items" validate:"omitempty,dive"`
}

type checkoutItemInput struct {
	VariantID uuid.UUID `json:"variantId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,max=1000"`
}

type checkoutResponse struct {
	orders.OrderDTO
	CartConverted bool `json:"cartConverted"`
}

// Checkout turns the caller's active cart, or the selected part of it, into
// a pending order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.Input{
			UserID:          middleware.UserUUIDFromContext(r.Context()),
			UserRole:        enums.UserRole(middleware.RoleFromContext(r.Context())),
			UserEmail:       middleware.EmailFromContext(r.Context()),
			SessionID:       validators.SanitizeString(payload.SessionID, 128),
			Email:           payload.Email,
			ShippingAddress: payload.ShippingAddress,
			BillingAddress:  payload.BillingAddress,
			Notes:           payload.Notes,
		}
		// A missing or empty list buys the whole cart; an omitted quantity
		// buys the whole cart quantity of that line.
		if len(payload.Items) > 0 {
			input.Items = make([]checkoutsvc.SelectedItem, 0, len(payload.Items))
			for _, item := range payload.Items {
				input.Items = append(input.Items, checkoutsvc.SelectedItem{VariantID: item.VariantID, Quantity: item.Quantity})
			}
		}

		result, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderDTO:      orders.ToDTO(result.Order),
			CartConverted: result.CartConverted,
		})
	}
}
