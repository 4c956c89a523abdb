package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestComputeCharge(t *testing.T) {
	cases := []struct {
		price    string
		quantity int
		expected string
	}{
		{"50.00", 1000, "50.0000"},
		{"1.99", 1500, "2.9850"},
		{"0.333", 100, "0.0333"},
		{"1.00005", 100, "0.1000"},
	}
	for _, tc := range cases {
		got := ComputeCharge(dec(tc.price), tc.quantity)
		if got.StringFixed(ChargeScale) != tc.expected {
			t.Fatalf("price %s x %d: expected %s, got %s", tc.price, tc.quantity, tc.expected, got)
		}
	}
}

func TestRefundAmount(t *testing.T) {
	charge := dec("50.00")

	if got := RefundAmount(charge, 1000, 400, true); !got.Equal(dec("20.00")) {
		t.Fatalf("partial refund: expected 20.00, got %s", got)
	}
	if got := RefundAmount(charge, 1000, 0, true); !got.Equal(decimal.Zero) {
		t.Fatalf("fully delivered order must refund nothing, got %s", got)
	}
	if got := RefundAmount(charge, 1000, 1000, false); !got.Equal(charge) {
		t.Fatalf("never-activated order must refund the full charge, got %s", got)
	}
	if got := RefundAmount(charge, 1000, -5, true); !got.Equal(decimal.Zero) {
		t.Fatalf("negative remains must refund nothing, got %s", got)
	}
}

func TestRefundAmountIsMonotoneInRemains(t *testing.T) {
	charge := dec("37.73")
	previous := decimal.Zero
	for remains := 0; remains <= 1000; remains += 50 {
		refund := RefundAmount(charge, 1000, remains, true)
		if refund.LessThan(previous) {
			t.Fatalf("refund decreased at remains=%d: %s < %s", remains, refund, previous)
		}
		if refund.GreaterThan(charge) {
			t.Fatalf("refund exceeds charge at remains=%d: %s", remains, refund)
		}
		previous = refund
	}
}

func TestPublicStatusMappingIsTotal(t *testing.T) {
	cases := []struct {
		status   OrderStatus
		expected PublicStatus
	}{
		{OrderStatusPending, PublicStatusPending},
		{OrderStatusProcessing, PublicStatusInProgress},
		{OrderStatusActive, PublicStatusInProgress},
		{OrderStatusHolding, PublicStatusInProgress},
		{OrderStatusCompleted, PublicStatusCompleted},
		{OrderStatusCancelled, PublicStatusCanceled},
	}
	for _, tc := range cases {
		if got := PublicStatusFor(tc.status, 1000, 1000); got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.status, tc.expected, got)
		}
	}

	if got := PublicStatusFor(OrderStatusCancelled, 1000, 400); got != PublicStatusPartial {
		t.Fatalf("partially delivered cancellation must read Partial, got %s", got)
	}
	if got := PublicStatusFor(OrderStatus("UNKNOWN"), 0, 0); got != PublicStatusPending {
		t.Fatalf("unknown status must map somewhere, got %s", got)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusProcessing, OrderStatusActive},
		{OrderStatusActive, OrderStatusCompleted},
		{OrderStatusProcessing, OrderStatusHolding},
		{OrderStatusHolding, OrderStatusPending},
		{OrderStatusActive, OrderStatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
	denied := []struct{ from, to OrderStatus }{
		{OrderStatusCompleted, OrderStatusActive},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusPending, OrderStatusCompleted},
		{OrderStatusHolding, OrderStatusActive},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		link     string
		expected string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"  https://youtu.be/dQw4w9WgXcQ  ", "dQw4w9WgXcQ"},
		{"https://example.com/some-page", ""},
		{"not a link", ""},
	}
	for _, tc := range cases {
		if got := ExtractVideoID(tc.link); got != tc.expected {
			t.Fatalf("%q: expected %q, got %q", tc.link, tc.expected, got)
		}
	}
}
