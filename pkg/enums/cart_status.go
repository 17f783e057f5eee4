package enums

// CartStatus tracks whether a cart is still shoppable. Carts are never
// deleted; they leave the active state instead.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
	CartStatusAbandoned CartStatus = "abandoned"
)

var cartStatuses = []CartStatus{CartStatusActive, CartStatusConverted, CartStatusAbandoned}

func (c CartStatus) IsValid() bool { return member(c, cartStatuses) }

// Shoppable carts accept item changes and checkout.
func (c CartStatus) Shoppable() bool { return c == CartStatusActive }

func ParseCartStatus(value string) (CartStatus, error) {
	return parse("cart status", value, cartStatuses)
}
