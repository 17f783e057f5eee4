package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

func errCartEmpty() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty").WithReason(pkgerrors.ReasonCartEmpty)
}

func errNoItemsSelected() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "No items selected for checkout").WithReason(pkgerrors.ReasonNoItemsSelected)
}

func errItemNotInCart(variantID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "Selected item is not in the cart").
		WithReason(pkgerrors.ReasonItemNotInCart).
		WithDetails(map[string]any{"variantId": variantID.String()})
}

func errQuantityExceedsCart(variantID uuid.UUID, requested, inCart int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "Requested quantity exceeds cart quantity").
		WithReason(pkgerrors.ReasonQuantityExceedsCart).
		WithDetails(map[string]any{"variantId": variantID.String(), "requested": requested, "inCart": inCart})
}

func errVariantGone(variantID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "A product in your cart is no longer available").
		WithReason(pkgerrors.ReasonVariantGone).
		WithDetails(map[string]any{"variantId": variantID.String()})
}

func errProductUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is not available for purchase", name)).
		WithReason(pkgerrors.ReasonProductUnavailable)
}

func errCheckoutFailed(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Checkout failed")
}
