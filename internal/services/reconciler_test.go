package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"ticketing-engine/internal/models"
)

type mockPaymentStore struct {
	payments map[string]*models.Payment
}

func (m *mockPaymentStore) GetBySessionID(sessionID string) (*models.Payment, error) {
	payment, ok := m.payments[sessionID]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	return payment, nil
}

func (m *mockPaymentStore) Settle(sessionID string, status models.PaymentStatus, paidAt *time.Time) (bool, error) {
	payment, ok := m.payments[sessionID]
	if !ok || payment.Status != models.PaymentPending {
		return false, nil
	}
	payment.Status = status
	payment.PaidAt = paidAt
	return true, nil
}

const reconcilerSecret = "webhook-secret"

func newReconcilerFixture() (*PaymentReconciler, *mockPaymentStore, *mockBookingStore, *mockTicketStore) {
	booking := &models.Booking{
		ID:            7,
		BookingNumber: "BKG-20260828-000007",
		CustomerEmail: "jane@example.com",
		Status:        models.BookingPaymentPending,
		FinalAmount:   5000,
		Items: []*models.BookingItem{
			{TicketTypeID: 1, Quantity: 2, QuotedUnitPrice: 2500},
		},
	}

	bookings := &mockBookingStore{bookings: map[int]*models.Booking{7: booking}}
	types := &mockTicketTypeStore{types: map[int]*models.TicketType{
		1: {ID: 1, UnitPrice: 2500, PricingMode: models.PricingFlat, Active: true},
	}}
	tickets := &mockTicketStore{}
	issuer := newTestIssuer(bookings, types, tickets)

	payments := &mockPaymentStore{payments: map[string]*models.Payment{
		"cs_7": {ID: 1, BookingID: 7, SessionID: "cs_7", Amount: 5000, Status: models.PaymentPending},
	}}
	gateway := NewMockCheckoutGateway(reconcilerSecret, 30*time.Minute)
	reconciler := NewPaymentReconciler(gateway, payments, issuer, testLogger())

	return reconciler, payments, bookings, tickets
}

func signedPayload(event, sessionID string, amount int) ([]byte, string) {
	payload := []byte(fmt.Sprintf(`{"event":%q,"data":{"session_id":%q,"amount":%d}}`, event, sessionID, amount))
	return payload, SignPayload(reconcilerSecret, payload)
}

func TestHandleNotificationRejectsBadSignature(t *testing.T) {
	reconciler, payments, _, tickets := newReconcilerFixture()

	payload, _ := signedPayload(EventCheckoutCompleted, "cs_7", 5000)

	err := reconciler.HandleNotification(payload, "deadbeef")
	if !errors.Is(err, models.ErrInvalidSignature) {
		t.Fatalf("HandleNotification() error = %v, want ErrInvalidSignature", err)
	}
	if payments.payments["cs_7"].Status != models.PaymentPending {
		t.Error("payment state changed despite rejected signature")
	}
	if tickets.calls != 0 {
		t.Error("issuance attempted despite rejected signature")
	}
}

func TestHandleNotificationCompleted(t *testing.T) {
	reconciler, _, _, tickets := newReconcilerFixture()

	payload, signature := signedPayload(EventCheckoutCompleted, "cs_7", 5000)

	if err := reconciler.HandleNotification(payload, signature); err != nil {
		t.Fatalf("HandleNotification() error: %v", err)
	}
	if len(tickets.issued[7]) != 2 {
		t.Errorf("issued %d tickets, want 2", len(tickets.issued[7]))
	}
}

func TestHandleNotificationReplayIsNoOp(t *testing.T) {
	reconciler, payments, _, tickets := newReconcilerFixture()
	payments.payments["cs_7"].Status = models.PaymentSucceeded

	payload, signature := signedPayload(EventCheckoutCompleted, "cs_7", 5000)

	if err := reconciler.HandleNotification(payload, signature); err != nil {
		t.Fatalf("HandleNotification() replay error: %v", err)
	}
	if tickets.calls != 0 {
		t.Error("replayed notification attempted issuance")
	}
}

func TestHandleNotificationConflictingLateEventIsNoOp(t *testing.T) {
	reconciler, payments, _, _ := newReconcilerFixture()
	payments.payments["cs_7"].Status = models.PaymentSucceeded

	payload, signature := signedPayload(EventCheckoutExpired, "cs_7", 0)

	if err := reconciler.HandleNotification(payload, signature); err != nil {
		t.Fatalf("HandleNotification() error: %v", err)
	}
	if payments.payments["cs_7"].Status != models.PaymentSucceeded {
		t.Error("late expiry overwrote a settled payment")
	}
}

func TestHandleNotificationExpired(t *testing.T) {
	reconciler, payments, bookings, _ := newReconcilerFixture()

	payload, signature := signedPayload(EventCheckoutExpired, "cs_7", 0)

	if err := reconciler.HandleNotification(payload, signature); err != nil {
		t.Fatalf("HandleNotification() error: %v", err)
	}
	if payments.payments["cs_7"].Status != models.PaymentCancelled {
		t.Errorf("payment status = %q, want cancelled", payments.payments["cs_7"].Status)
	}
	// Reservation reclaim belongs to the expiry sweep, not the webhook.
	if bookings.bookings[7].Status != models.BookingPaymentPending {
		t.Errorf("booking status = %q, want payment_pending", bookings.bookings[7].Status)
	}
}

func TestHandleNotificationFailed(t *testing.T) {
	reconciler, payments, bookings, _ := newReconcilerFixture()

	payload, signature := signedPayload(EventPaymentFailed, "cs_7", 0)

	if err := reconciler.HandleNotification(payload, signature); err != nil {
		t.Fatalf("HandleNotification() error: %v", err)
	}
	if payments.payments["cs_7"].Status != models.PaymentFailed {
		t.Errorf("payment status = %q, want failed", payments.payments["cs_7"].Status)
	}
	if bookings.bookings[7].Status != models.BookingPaymentPending {
		t.Errorf("booking status = %q, want payment_pending", bookings.bookings[7].Status)
	}
}

func TestHandleNotificationAmountMismatch(t *testing.T) {
	reconciler, payments, _, tickets := newReconcilerFixture()

	payload, signature := signedPayload(EventCheckoutCompleted, "cs_7", 4999)

	// The delivery is acknowledged (redelivery cannot fix the amount)
	// but nothing is issued and the payment stays pending.
	if err := reconciler.HandleNotification(payload, signature); err != nil {
		t.Fatalf("HandleNotification() error = %v, want acknowledged mismatch", err)
	}
	if tickets.calls != 0 {
		t.Error("issuance attempted despite amount mismatch")
	}
	if payments.payments["cs_7"].Status != models.PaymentPending {
		t.Errorf("payment status = %q, want pending for operator review", payments.payments["cs_7"].Status)
	}
}

func TestHandleNotificationUnknownSession(t *testing.T) {
	reconciler, _, _, _ := newReconcilerFixture()

	payload, signature := signedPayload(EventCheckoutCompleted, "cs_missing", 5000)

	if err := reconciler.HandleNotification(payload, signature); !errors.Is(err, models.ErrPaymentNotFound) {
		t.Errorf("HandleNotification() error = %v, want ErrPaymentNotFound", err)
	}
}

func TestHandleNotificationUnknownEventIgnored(t *testing.T) {
	reconciler, payments, _, _ := newReconcilerFixture()

	payload, signature := signedPayload("checkout.noise", "cs_7", 0)

	if err := reconciler.HandleNotification(payload, signature); err != nil {
		t.Fatalf("HandleNotification() error: %v", err)
	}
	if payments.payments["cs_7"].Status != models.PaymentPending {
		t.Error("unrecognized event changed payment state")
	}
}
