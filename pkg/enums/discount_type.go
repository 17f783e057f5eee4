package enums

// DiscountType selects how a discount's value is applied.
type DiscountType string

const (
	DiscountTypePercentage   DiscountType = "percentage"
	DiscountTypeFixedAmount  DiscountType = "fixed_amount"
	DiscountTypeFreeShipping DiscountType = "free_shipping"
)

var discountTypes = []DiscountType{
	DiscountTypePercentage,
	DiscountTypeFixedAmount,
	DiscountTypeFreeShipping,
}

func (d DiscountType) IsValid() bool { return member(d, discountTypes) }

func ParseDiscountType(value string) (DiscountType, error) {
	return parse("discount type", value, discountTypes)
}

// DiscountUsagePolicy decides which attached discounts count as used when an
// order is placed.
type DiscountUsagePolicy string

const (
	// DiscountUsageContributed counts only discounts that changed the price
	// or the shipping line.
	DiscountUsageContributed DiscountUsagePolicy = "contributed"
	// DiscountUsageAttached counts every discount attached to the cart.
	DiscountUsageAttached DiscountUsagePolicy = "attached"
)

var discountUsagePolicies = []DiscountUsagePolicy{DiscountUsageContributed, DiscountUsageAttached}

func ParseDiscountUsagePolicy(value string) (DiscountUsagePolicy, error) {
	return parse("discount usage policy", value, discountUsagePolicies)
}
