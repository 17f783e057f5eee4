package enums

type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)

func (a AddressType) IsValid() bool {
	return a == AddressTypeShipping || a == AddressTypeBilling
}

func ParseAddressType(value string) (AddressType, error) {
	return parse("address type", value, []AddressType{AddressTypeShipping, AddressTypeBilling})
}
