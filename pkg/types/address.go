package types

import "strings"

// Address is the postal address snapshot stored on orders and saved
// addresses. Orders embed it as JSON; saved addresses flatten it into columns.
type Address struct {
	FirstName  string  `json:"firstName" gorm:"column:first_name" validate:"required,notblank,max=100"`
	LastName   string  `json:"lastName" gorm:"column:last_name" validate:"required,notblank,max=100"`
	Company    *string `json:"company,omitempty" gorm:"column:company" validate:"omitempty,max=200"`
	Address1   string  `json:"address1" gorm:"column:address1" validate:"required,notblank,max=255"`
	Address2   *string `json:"address2,omitempty" gorm:"column:address2" validate:"omitempty,max=255"`
	City       string  `json:"city" gorm:"column:city" validate:"required,notblank,max=100"`
	State      *string `json:"state,omitempty" gorm:"column:state" validate:"omitempty,max=100"`
	PostalCode string  `json:"postalCode" gorm:"column:postal_code" validate:"required,notblank,max=20"`
	Country    string  `json:"country" gorm:"column:country" validate:"required,notblank,max=100"`
	Phone      *string `json:"phone,omitempty" gorm:"column:phone" validate:"omitempty,max=30"`
}

// Normalized trims every field and drops optional fields that are blank.
func (a Address) Normalized() Address {
	out := Address{
		FirstName:  strings.TrimSpace(a.FirstName),
		LastName:   strings.TrimSpace(a.LastName),
		Address1:   strings.TrimSpace(a.Address1),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
	out.Company = trimOptional(a.Company)
	out.Address2 = trimOptional(a.Address2)
	out.State = trimOptional(a.State)
	out.Phone = trimOptional(a.Phone)
	return out
}

// IsComplete reports whether the required fields are present.
func (a Address) IsComplete() bool {
	n := a.Normalized()
	return n.FirstName != "" && n.LastName != "" && n.Address1 != "" &&
		n.City != "" && n.PostalCode != "" && n.Country != ""
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
