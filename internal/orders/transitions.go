package orders

import (
	"fmt"

	"github.com/wixandwax/storefront-backend/pkg/enums"
)

var orderProgression = map[enums.OrderStatus]int{
	enums.OrderStatusPending:    0,
	enums.OrderStatusConfirmed:  1,
	enums.OrderStatusProcessing: 2,
	enums.OrderStatusShipped:    3,
	enums.OrderStatusDelivered:  4,
}

// CanTransitionOrder allows forward moves along the fulfilment chain and
// cancellation of any order that is not yet terminal.
func CanTransitionOrder(from, to enums.OrderStatus) error {
	if from == to {
		return nil
	}
	if from.IsTerminal() {
		return fmt.Errorf("order is %s", from)
	}
	if to == enums.OrderStatusCancelled {
		return nil
	}
	fromRank, okFrom := orderProgression[from]
	toRank, okTo := orderProgression[to]
	if !okFrom || !okTo || toRank < fromRank {
		return fmt.Errorf("cannot move order from %s to %s", from, to)
	}
	return nil
}

var paymentTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {enums.PaymentStatusPaid, enums.PaymentStatusFailed},
	enums.PaymentStatusFailed:  {enums.PaymentStatusPending, enums.PaymentStatusPaid},
	enums.PaymentStatusPaid:    {enums.PaymentStatusRefunded},
}

func CanTransitionPayment(from, to enums.PaymentStatus) error {
	if from == to {
		return nil
	}
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("cannot move payment from %s to %s", from, to)
}

var fulfillmentRank = map[enums.FulfillmentStatus]int{
	enums.FulfillmentUnfulfilled: 0,
	enums.FulfillmentPartial:     1,
	enums.FulfillmentFulfilled:   2,
}

func CanTransitionFulfillment(from, to enums.FulfillmentStatus) error {
	if fulfillmentRank[to] < fulfillmentRank[from] {
		return fmt.Errorf("cannot move fulfillment from %s to %s", from, to)
	}
	return nil
}
