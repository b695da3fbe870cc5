package domain

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusDelivered, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusDelivered, OrderStatusCanceled, true},
		{OrderStatusCanceled, OrderStatusCanceled, false},
		{OrderStatusCanceled, OrderStatusPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("transition %s -> %s: expected allowed=%v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusCanceled.Terminal() {
		t.Fatal("CANCELED must be terminal")
	}
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered} {
		if status.Terminal() {
			t.Fatalf("%s must not be terminal", status)
		}
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, status := range OrderStatuses {
		if !status.Valid() {
			t.Fatalf("%s should be valid", status)
		}
	}
	if OrderStatus("REFUNDED").Valid() {
		t.Fatal("unknown status should be invalid")
	}
}
