package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wixandwax/storefront-backend/api/middleware"
	"github.com/wixandwax/storefront-backend/api/responses"
	"github.com/wixandwax/storefront-backend/api/validators"
	cartsvc "github.com/wixandwax/storefront-backend/internal/cart"
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
	"github.com/wixandwax/storefront-backend/pkg/logger"
)

const sessionHeader = "X-Session-Id"

type addItemRequest struct {
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=1000"`
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
}

type updateItemRequest struct {
	Quantity  int    `json:"quantity" validate:"min=0,max=1000"`
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
}

type applyDiscountRequest struct {
	Code      string `json:"code" validate:"required,max=64"`
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
}

// Fetch returns the caller's active cart, creating an empty one on first use.
func Fetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		owner, err := ownerFromRequest(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetCart(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// AddItem adds a variant to the active cart, merging with an existing line.
func AddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.ParseUUID(payload.VariantID, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := ownerFromRequest(r, payload.SessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddItem(r.Context(), owner, variantID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// UpdateItem sets a line's quantity; zero removes it.
func UpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, itemID, err := cartAndItemIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := ownerFromRequest(r, payload.SessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.UpdateItem(r.Context(), owner, cartID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func RemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, itemID, err := cartAndItemIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := ownerFromRequest(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveItem(r.Context(), owner, cartID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// ApplyDiscount attaches a discount code to the cart.
func ApplyDiscount(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := validators.ParseUUID(chi.URLParam(r, "cartId"), "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload applyDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := ownerFromRequest(r, payload.SessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.ApplyDiscount(r.Context(), owner, cartID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func RemoveDiscount(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID, err := validators.ParseUUID(chi.URLParam(r, "cartId"), "cartId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		discountID, err := validators.ParseUUID(chi.URLParam(r, "discountId"), "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := ownerFromRequest(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveDiscount(r.Context(), owner, cartID, discountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// ownerFromRequest combines the signed-in user with the guest session. The
// session id may arrive in the body, the ?sessionId= query or X-Session-Id.
func ownerFromRequest(r *http.Request, bodySession string) (cartsvc.Owner, error) {
	session := strings.TrimSpace(bodySession)
	if session == "" {
		session = strings.TrimSpace(r.URL.Query().Get("sessionId"))
	}
	if session == "" {
		session = strings.TrimSpace(r.Header.Get(sessionHeader))
	}
	owner := cartsvc.Owner{
		UserID:    middleware.UserUUIDFromContext(r.Context()),
		SessionID: validators.SanitizeString(session, 128),
	}
	if owner.Empty() {
		return owner, pkgerrors.New(pkgerrors.CodeValidation, "sessionId required for guest carts")
	}
	return owner, nil
}

func cartAndItemIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	cartID, err := validators.ParseUUID(chi.URLParam(r, "cartId"), "cartId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	itemID, err := validators.ParseUUID(chi.URLParam(r, "itemId"), "itemId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return cartID, itemID, nil
}
