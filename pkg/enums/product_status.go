package enums

// ProductStatus gates whether a product can be purchased.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

var productStatuses = []ProductStatus{ProductStatusDraft, ProductStatusActive, ProductStatusArchived}

func (p ProductStatus) IsValid() bool { return member(p, productStatuses) }

// Purchasable reports whether items of this product may be sold.
func (p ProductStatus) Purchasable() bool {
	return p == ProductStatusActive
}

func ParseProductStatus(value string) (ProductStatus, error) {
	return parse("product status", value, productStatuses)
}
