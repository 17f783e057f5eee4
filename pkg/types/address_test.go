package types

import "testing"

func TestAddressNormalized(t *testing.T) {
	blank := "  "
	phone := " +91 98765 43210 "
	addr := Address{
		FirstName:  " Asha ",
		LastName:   "Rao",
		Address1:   "12 MG Road ",
		Address2:   &blank,
		City:       "Bengaluru",
		PostalCode: "560001",
		Country:    "IN",
		Phone:      &phone,
	}

	got := addr.Normalized()
	if got.FirstName != "Asha" || got.Address1 != "12 MG Road" {
		t.Fatalf("expected trimmed fields, got %+v", got)
	}
	if got.Address2 != nil {
		t.Fatalf("expected blank address2 to be dropped")
	}
	if got.Phone == nil || *got.Phone != "+91 98765 43210" {
		t.Fatalf("unexpected phone %v", got.Phone)
	}
	if !addr.IsComplete() {
		t.Fatal("expected address to be complete")
	}
	if (Address{FirstName: "A"}).IsComplete() {
		t.Fatal("expected partial address to be incomplete")
	}
}
