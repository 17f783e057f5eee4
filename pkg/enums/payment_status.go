package enums

// PaymentStatus tracks money movement for an order, independent of its
// fulfilment lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed,
}

func (p PaymentStatus) IsValid() bool { return member(p, paymentStatuses) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse("payment status", value, paymentStatuses)
}

// PaymentProvider names the gateway holding the remote payment reference.
type PaymentProvider string

const PaymentProviderRazorpay PaymentProvider = "razorpay"
