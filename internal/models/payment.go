package models

import (
	"errors"
	"time"
)

// PaymentStatus represents the status of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Payment is one-to-one with a booking on the paid path. The external
// gateway session id is the idempotency key webhook notifications are
// reconciled by.
type Payment struct {
	ID        int           `json:"id" db:"id"`
	BookingID int           `json:"booking_id" db:"booking_id"`
	SessionID string        `json:"session_id" db:"session_id"`
	Amount    int           `json:"amount" db:"amount"` // Minor currency units
	Status    PaymentStatus `json:"status" db:"status"`
	PaidAt    *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// Validate validates payment data before persistence.
func (p *Payment) Validate() error {
	if p.BookingID <= 0 {
		return errors.New("payment requires a booking")
	}

	if p.SessionID == "" {
		return errors.New("payment session id is required")
	}

	if p.Amount <= 0 {
		return errors.New("payment amount must be greater than 0")
	}

	switch p.Status {
	case PaymentPending, PaymentSucceeded, PaymentFailed, PaymentCancelled:
		return nil
	default:
		return errors.New("invalid payment status")
	}
}

// IsSucceeded returns true if the payment settled.
func (p *Payment) IsSucceeded() bool {
	return p.Status == PaymentSucceeded
}

// IsSettled returns true if the payment reached any terminal state.
func (p *Payment) IsSettled() bool {
	return p.Status != PaymentPending
}
