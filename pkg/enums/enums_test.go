package enums

import "testing"

func TestParseRejectsUnknownValues(t *testing.T) {
	if _, err := ParseOrderStatus("lost"); err == nil {
		t.Fatal("expected error for unknown order status")
	}
	got, err := ParseOrderStatus("shipped")
	if err != nil || got != OrderStatusShipped {
		t.Fatalf("ParseOrderStatus(shipped) = %q, %v", got, err)
	}
	if _, err := ParseDiscountUsagePolicy("sometimes"); err == nil {
		t.Fatal("expected error for unknown usage policy")
	}
}

func TestStatusPredicates(t *testing.T) {
	if !CartStatusActive.Shoppable() || CartStatusConverted.Shoppable() {
		t.Fatal("only active carts are shoppable")
	}
	if !OrderStatusCancelled.IsTerminal() || OrderStatusShipped.IsTerminal() {
		t.Fatal("terminal order statuses misreported")
	}
	if ProductStatusDraft.Purchasable() {
		t.Fatal("draft products must not be purchasable")
	}
	if OutboxEventType("order_refunded").IsValid() {
		t.Fatal("unexpected event type accepted")
	}
}
