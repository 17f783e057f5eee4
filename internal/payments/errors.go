package payments

import (
	pkgerrors "github.com/wixandwax/storefront-backend/pkg/errors"
)

func errUnavailable() error {
	return pkgerrors.New(pkgerrors.CodePaymentUnavailable, "Payment gateway is not configured").
		WithReason(pkgerrors.ReasonPaymentUnavailable)
}

func errOrderNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "Order not found").WithReason(pkgerrors.ReasonOrderNotFound)
}

func errAlreadyPaid() error {
	return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "Order is already paid").WithReason(pkgerrors.ReasonAlreadyPaid)
}

func errOrderCancelled() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "Order has been cancelled")
}

func errInvalidSignature() error {
	return pkgerrors.New(pkgerrors.CodeInvalidSignature, "Payment verification failed").
		WithReason(pkgerrors.ReasonInvalidSignature)
}

func errCreateFailed(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodePaymentError, err, "Failed to create payment order")
}

func errVerificationFailed(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeVerification, err, "Verification failed")
}
