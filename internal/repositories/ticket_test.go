package repositories

import (
	"sync"
	"testing"
	"time"

	"ticketing-engine/internal/models"
)

func TestIssueForBookingExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	typeID := createTestTicketType(t, db, 10)
	bookings := NewBookingRepository(db)
	payments := NewPaymentRepository(db)
	tickets := NewTicketRepository(db)
	inventory := NewInventoryRepository(db)

	booking, err := bookings.Create(&models.BookingCreateRequest{
		CustomerName:   "Jane Doe",
		CustomerEmail:  "jane@example.com",
		OriginalAmount: 2000,
		FinalAmount:    2000,
		Status:         models.BookingPaymentPending,
		Items: []*models.BookingItem{
			{TicketTypeID: typeID, Quantity: 2, QuotedUnitPrice: 1000},
		},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM bookings WHERE id = $1", booking.ID)
	})

	payment, err := payments.Create(&models.Payment{
		BookingID: booking.ID,
		SessionID: "cs_test_" + booking.BookingNumber,
		Amount:    2000,
	})
	if err != nil {
		t.Fatalf("payment Create() error: %v", err)
	}

	now := time.Now()
	params := IssueParams{
		SessionID: payment.SessionID,
		PaidAt:    &now,
		Lines: []IssueLine{
			{TicketTypeID: typeID, Quantity: 2, UnitPrice: 1000},
		},
	}

	issued, err := tickets.IssueForBooking(booking.ID, params)
	if err != nil {
		t.Fatalf("IssueForBooking() error: %v", err)
	}
	if len(issued) != 2 {
		t.Fatalf("issued %d tickets, want 2", len(issued))
	}
	for i, ticket := range issued {
		if !models.ValidTicketNumber(ticket.TicketNumber) {
			t.Errorf("ticket number %q does not match format", ticket.TicketNumber)
		}
		if ticket.Sequence != i+1 {
			t.Errorf("ticket sequence = %d, want %d", ticket.Sequence, i+1)
		}
	}

	assertCounters(t, inventory, typeID, 8, 0, 2)

	got, err := bookings.GetByID(booking.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Status != models.BookingCompleted {
		t.Errorf("booking status = %q, want completed", got.Status)
	}

	settled, err := payments.GetBySessionID(payment.SessionID)
	if err != nil {
		t.Fatalf("GetBySessionID() error: %v", err)
	}
	if settled.Status != models.PaymentSucceeded {
		t.Errorf("payment status = %q, want succeeded", settled.Status)
	}

	// Second attempt returns the same set and moves no stock.
	again, err := tickets.IssueForBooking(booking.ID, params)
	if err != models.ErrAlreadyIssued {
		t.Fatalf("second IssueForBooking() error = %v, want ErrAlreadyIssued", err)
	}
	if len(again) != 2 || again[0].TicketNumber != issued[0].TicketNumber {
		t.Errorf("second issuance returned a different ticket set")
	}
	assertCounters(t, inventory, typeID, 8, 0, 2)
}

func TestIssueForBookingConcurrentAttempts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	typeID := createTestTicketType(t, db, 10)
	bookings := NewBookingRepository(db)
	payments := NewPaymentRepository(db)
	ticketRepo := NewTicketRepository(db)
	inventory := NewInventoryRepository(db)

	booking, err := bookings.Create(&models.BookingCreateRequest{
		CustomerName:   "Jane Doe",
		CustomerEmail:  "jane@example.com",
		OriginalAmount: 2000,
		FinalAmount:    2000,
		Status:         models.BookingPaymentPending,
		Items: []*models.BookingItem{
			{TicketTypeID: typeID, Quantity: 2, QuotedUnitPrice: 1000},
		},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM bookings WHERE id = $1", booking.ID)
	})

	payment, err := payments.Create(&models.Payment{
		BookingID: booking.ID,
		SessionID: "cs_race_" + booking.BookingNumber,
		Amount:    2000,
	})
	if err != nil {
		t.Fatalf("payment Create() error: %v", err)
	}

	now := time.Now()
	params := IssueParams{
		SessionID: payment.SessionID,
		PaidAt:    &now,
		Lines: []IssueLine{
			{TicketTypeID: typeID, Quantity: 2, UnitPrice: 1000},
		},
	}

	// Two simultaneous attempts serialize on the booking row lock; the
	// loser must observe the winner's set, never mint a second one.
	type attempt struct {
		tickets []*models.Ticket
		err     error
	}
	results := make(chan attempt, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issued, err := ticketRepo.IssueForBooking(booking.ID, params)
			results <- attempt{tickets: issued, err: err}
		}()
	}
	wg.Wait()
	close(results)

	minted, replayed := 0, 0
	var sets [][]*models.Ticket
	for res := range results {
		switch res.err {
		case nil:
			minted++
		case models.ErrAlreadyIssued:
			replayed++
		default:
			t.Fatalf("IssueForBooking() unexpected error: %v", res.err)
		}
		sets = append(sets, res.tickets)
	}

	if minted != 1 || replayed != 1 {
		t.Fatalf("attempts = %d minted / %d replayed, want 1/1", minted, replayed)
	}
	if len(sets[0]) != 2 || len(sets[1]) != 2 {
		t.Fatalf("ticket sets sized %d and %d, want 2 and 2", len(sets[0]), len(sets[1]))
	}
	for i := range sets[0] {
		if sets[0][i].TicketNumber != sets[1][i].TicketNumber {
			t.Errorf("attempts observed different ticket sets")
		}
	}

	assertCounters(t, inventory, typeID, 8, 0, 2)
}

func TestTicketCheckIn(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	typeID := createTestTicketType(t, db, 5)
	bookings := NewBookingRepository(db)
	tickets := NewTicketRepository(db)

	booking, err := bookings.Create(&models.BookingCreateRequest{
		CustomerName:   "Jane Doe",
		CustomerEmail:  "jane@example.com",
		OriginalAmount: 0,
		FinalAmount:    0,
		Status:         models.BookingPending,
		Items: []*models.BookingItem{
			{TicketTypeID: typeID, Quantity: 1, QuotedUnitPrice: 0},
		},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM bookings WHERE id = $1", booking.ID)
	})

	issued, err := tickets.IssueForBooking(booking.ID, IssueParams{
		Actor: "ops@example.com",
		Lines: []IssueLine{{TicketTypeID: typeID, Quantity: 1, UnitPrice: 0}},
	})
	if err != nil {
		t.Fatalf("IssueForBooking() error: %v", err)
	}

	ticket, err := tickets.CheckIn(issued[0].TicketNumber)
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if ticket.Status != models.TicketUsed {
		t.Errorf("ticket status = %q, want used", ticket.Status)
	}

	// A used ticket cannot be redeemed twice.
	if _, err := tickets.CheckIn(issued[0].TicketNumber); err != models.ErrTicketNotFound {
		t.Errorf("second CheckIn() error = %v, want ErrTicketNotFound", err)
	}
}
