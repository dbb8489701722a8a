package models

import (
	"testing"
	"time"
)

func TestGenerateBookingNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number := GenerateBookingNumber()
		if !ValidBookingNumber(number) {
			t.Fatalf("generated booking number %q does not match format", number)
		}
		seen[number] = true
	}

	// 100 draws from a million-value space should essentially never
	// collapse to a handful of values
	if len(seen) < 90 {
		t.Errorf("expected mostly unique booking numbers, got %d unique of 100", len(seen))
	}
}

func TestGenerateTicketNumber(t *testing.T) {
	number := GenerateTicketNumber()
	if !ValidTicketNumber(number) {
		t.Fatalf("generated ticket number %q does not match format", number)
	}
}

func TestBookingCreateRequestValidate(t *testing.T) {
	valid := func() *BookingCreateRequest {
		return &BookingCreateRequest{
			CustomerName:   "Jane Doe",
			CustomerEmail:  "jane@example.com",
			OriginalAmount: 5000,
			FinalAmount:    5000,
			Status:         BookingPaymentPending,
			Items: []*BookingItem{
				{TicketTypeID: 1, Quantity: 2, QuotedUnitPrice: 2500},
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("missing email", func(t *testing.T) {
		req := valid()
		req.CustomerEmail = ""
		if err := req.Validate(); err == nil {
			t.Error("Validate() expected error for missing email")
		}
	})

	t.Run("bad email", func(t *testing.T) {
		req := valid()
		req.CustomerEmail = "not-an-email"
		if err := req.Validate(); err == nil {
			t.Error("Validate() expected error for malformed email")
		}
	})

	t.Run("no items", func(t *testing.T) {
		req := valid()
		req.Items = nil
		if err := req.Validate(); err == nil {
			t.Error("Validate() expected error for empty selection")
		}
	})

	t.Run("zero quantity item", func(t *testing.T) {
		req := valid()
		req.Items[0].Quantity = 0
		if err := req.Validate(); err == nil {
			t.Error("Validate() expected error for zero quantity")
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		req := valid()
		req.Status = BookingStatus("unknown")
		if err := req.Validate(); err == nil {
			t.Error("Validate() expected error for invalid status")
		}
	})
}

func TestBookingPredicates(t *testing.T) {
	b := &Booking{Status: BookingPaymentPending, FinalAmount: 0, CreatedAt: time.Now().Add(-time.Hour)}

	if !b.IsAwaitingPayment() {
		t.Error("IsAwaitingPayment() = false, want true")
	}
	if !b.IsFree() {
		t.Error("IsFree() = false, want true")
	}
	if !b.CanBeCancelled() {
		t.Error("CanBeCancelled() = false, want true")
	}
	if !b.IsExpired(30 * time.Minute) {
		t.Error("IsExpired(30m) = false, want true for hour-old booking")
	}
	if b.IsExpired(2 * time.Hour) {
		t.Error("IsExpired(2h) = true, want false")
	}

	b.Status = BookingCompleted
	if b.CanBeCancelled() {
		t.Error("CanBeCancelled() = true for completed booking")
	}
	if b.IsExpired(time.Nanosecond) {
		t.Error("IsExpired() = true for completed booking")
	}
}

func TestTotalQuantity(t *testing.T) {
	b := &Booking{Items: []*BookingItem{{Quantity: 2}, {Quantity: 3}}}
	if got := b.TotalQuantity(); got != 5 {
		t.Errorf("TotalQuantity() = %d, want 5", got)
	}
}
