package models

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrTicketNotFound     = errors.New("ticket not found")

	ErrInvalidQuantity   = errors.New("quantity outside the allowed range")
	ErrInsufficientStock = errors.New("insufficient ticket stock")

	// ErrNotEligible means the booking cannot have tickets issued yet.
	// Recoverable: the caller may retry once payment settles.
	ErrNotEligible = errors.New("booking is not eligible for ticket issuance")

	// ErrAlreadyIssued is not a failure. Callers receive the existing
	// ticket set alongside it and must treat the call as a success.
	ErrAlreadyIssued = errors.New("tickets already issued for booking")

	// ErrDuplicateTicketNumber is retried internally with fresh numbers;
	// it escalates only after the retry attempts run out.
	ErrDuplicateTicketNumber = errors.New("duplicate ticket number")

	// ErrInvalidSignature rejects a gateway notification before any
	// state is touched.
	ErrInvalidSignature = errors.New("notification signature verification failed")

	ErrInvalidToken = errors.New("invalid or expired verification token")
)

// Coupon rejection reason codes
const (
	CouponReasonInactive      = "inactive"
	CouponReasonNotStarted    = "not_started"
	CouponReasonExpired       = "expired"
	CouponReasonMinOrder      = "below_min_order"
	CouponReasonMaxUses       = "max_uses_reached"
	CouponReasonMaxUsesByUser = "max_uses_per_user_reached"
)

// CouponRejectedError carries the first failed validation check.
type CouponRejectedError struct {
	Code   string
	Reason string
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("coupon rejected (%s): %s", e.Code, e.Reason)
}

// IsCouponRejected reports whether err is a coupon rejection.
func IsCouponRejected(err error) bool {
	var cre *CouponRejectedError
	return errors.As(err, &cre)
}

// InvariantViolationError signals desynchronized stock counters. It is
// a bug, not a user error: it must surface to operators and is never
// silently corrected.
type InvariantViolationError struct {
	TicketTypeID int
	Detail       string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("stock invariant violated for ticket type %d: %s", e.TicketTypeID, e.Detail)
}

// IsInvariantViolation reports whether err is a ledger invariant breach.
func IsInvariantViolation(err error) bool {
	var ive *InvariantViolationError
	return errors.As(err, &ive)
}
