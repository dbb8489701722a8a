package repositories

import (
	"errors"
	"testing"

	"ticketing-engine/internal/models"
)

func TestBookingCreateReservesAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	plentyID := createTestTicketType(t, db, 10)
	scarceID := createTestTicketType(t, db, 1)

	bookings := NewBookingRepository(db)
	inventory := NewInventoryRepository(db)

	// Second selection exceeds stock, so the whole booking must fail
	// and the first selection's hold must not survive.
	_, err := bookings.Create(&models.BookingCreateRequest{
		CustomerName:   "Jane Doe",
		CustomerEmail:  "jane@example.com",
		OriginalAmount: 7000,
		FinalAmount:    7000,
		Status:         models.BookingPaymentPending,
		Items: []*models.BookingItem{
			{TicketTypeID: plentyID, Quantity: 4, QuotedUnitPrice: 1000},
			{TicketTypeID: scarceID, Quantity: 3, QuotedUnitPrice: 1000},
		},
	})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("Create() error = %v, want ErrInsufficientStock", err)
	}

	assertCounters(t, inventory, plentyID, 10, 0, 0)
	assertCounters(t, inventory, scarceID, 1, 0, 0)
}

func TestBookingCreateAndCancelRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id := createTestTicketType(t, db, 10)
	bookings := NewBookingRepository(db)
	inventory := NewInventoryRepository(db)

	booking, err := bookings.Create(&models.BookingCreateRequest{
		CustomerName:   "Jane Doe",
		CustomerEmail:  "jane@example.com",
		OriginalAmount: 3000,
		FinalAmount:    3000,
		Status:         models.BookingPaymentPending,
		Items: []*models.BookingItem{
			{TicketTypeID: id, Quantity: 3, QuotedUnitPrice: 1000},
		},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM bookings WHERE id = $1", booking.ID)
	})

	if !models.ValidBookingNumber(booking.BookingNumber) {
		t.Errorf("booking number %q does not match format", booking.BookingNumber)
	}
	assertCounters(t, inventory, id, 7, 3, 0)

	if err := bookings.CancelWithRelease(booking.ID, models.BookingCancelled); err != nil {
		t.Fatalf("CancelWithRelease() error: %v", err)
	}
	assertCounters(t, inventory, id, 10, 0, 0)

	// Cancelling again is a no-op
	if err := bookings.CancelWithRelease(booking.ID, models.BookingCancelled); err != nil {
		t.Fatalf("CancelWithRelease() second call error: %v", err)
	}
	assertCounters(t, inventory, id, 10, 0, 0)

	got, err := bookings.GetByID(booking.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Status != models.BookingCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 3 {
		t.Errorf("items = %+v, want the original selection", got.Items)
	}
}

func TestBookingGetByNumber(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	id := createTestTicketType(t, db, 5)
	bookings := NewBookingRepository(db)

	booking, err := bookings.Create(&models.BookingCreateRequest{
		CustomerName:   "Jane Doe",
		CustomerEmail:  "jane@example.com",
		OriginalAmount: 1000,
		FinalAmount:    1000,
		Status:         models.BookingPaymentPending,
		Items: []*models.BookingItem{
			{TicketTypeID: id, Quantity: 1, QuotedUnitPrice: 1000},
		},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM bookings WHERE id = $1", booking.ID)
	})

	got, err := bookings.GetByNumber(booking.BookingNumber)
	if err != nil {
		t.Fatalf("GetByNumber() error: %v", err)
	}
	if got.ID != booking.ID {
		t.Errorf("GetByNumber() id = %d, want %d", got.ID, booking.ID)
	}

	if _, err := bookings.GetByNumber("BKG-19700101-000000"); !errors.Is(err, models.ErrBookingNotFound) {
		t.Errorf("GetByNumber(unknown) error = %v, want ErrBookingNotFound", err)
	}
}
