package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// BookingStatus represents the status of a booking.
type BookingStatus string

const (
	BookingPending        BookingStatus = "pending"
	BookingVerified       BookingStatus = "verified"
	BookingPaymentPending BookingStatus = "payment_pending"
	BookingCompleted      BookingStatus = "completed"
	BookingRejected       BookingStatus = "rejected"
	BookingCancelled      BookingStatus = "cancelled"
)

// Booking represents a customer's request for ticket-type units. Its
// lifecycle is independent of ticket minting: stock is held from
// creation, tickets are minted later by the issuer.
type Booking struct {
	ID             int           `json:"id" db:"id"`
	BookingNumber  string        `json:"booking_number" db:"booking_number"`
	CustomerName   string        `json:"customer_name" db:"customer_name"`
	CustomerEmail  string        `json:"customer_email" db:"customer_email"`
	CustomerPhone  string        `json:"customer_phone" db:"customer_phone"`
	OriginalAmount int           `json:"original_amount" db:"original_amount"` // Minor currency units
	DiscountAmount int           `json:"discount_amount" db:"discount_amount"`
	FinalAmount    int           `json:"final_amount" db:"final_amount"`
	CouponID       *int          `json:"coupon_id,omitempty" db:"coupon_id"`
	Status         BookingStatus `json:"status" db:"status"`
	IssuedBy       string        `json:"issued_by,omitempty" db:"issued_by"` // Actor for admin-override issuance
	Items          []*BookingItem `json:"items,omitempty"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// BookingItem is the selection snapshot captured at booking time. The
// quoted unit price is frozen here so later price changes never affect
// an existing order; the issuer still recomputes the authoritative
// price for paid flows.
type BookingItem struct {
	ID              int  `json:"id" db:"id"`
	BookingID       int  `json:"booking_id" db:"booking_id"`
	TicketTypeID    int  `json:"ticket_type_id" db:"ticket_type_id"`
	Quantity        int  `json:"quantity" db:"quantity"`
	QuotedUnitPrice int  `json:"quoted_unit_price" db:"quoted_unit_price"`
	PricingTierID   *int `json:"pricing_tier_id,omitempty" db:"pricing_tier_id"`
}

// BookingCreateRequest represents the data needed to persist a booking.
type BookingCreateRequest struct {
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	OriginalAmount int
	DiscountAmount int
	FinalAmount    int
	CouponID       *int
	Status         BookingStatus
	Items          []*BookingItem
}

var (
	// Booking number format: BKG-YYYYMMDD-XXXXXX
	bookingNumberRegex = regexp.MustCompile(`^BKG-\d{8}-\d{6}$`)
	// Email validation regex for bookings
	bookingEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Validate validates booking creation data.
func (req *BookingCreateRequest) Validate() error {
	if err := validateCustomer(req.CustomerName, req.CustomerEmail); err != nil {
		return err
	}

	if len(req.Items) == 0 {
		return errors.New("booking requires at least one selection")
	}

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return errors.New("selection quantity must be greater than 0")
		}
		if item.QuotedUnitPrice < 0 {
			return errors.New("quoted unit price cannot be negative")
		}
	}

	if req.OriginalAmount < 0 || req.DiscountAmount < 0 || req.FinalAmount < 0 {
		return errors.New("amounts cannot be negative")
	}

	if err := validateBookingStatus(req.Status); err != nil {
		return err
	}

	return nil
}

// validateCustomer validates customer identity fields.
func validateCustomer(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("customer name is required")
	}

	if len(name) > 255 {
		return errors.New("customer name must be less than 255 characters")
	}

	if email == "" {
		return errors.New("customer email is required")
	}

	if len(email) > 255 {
		return errors.New("customer email must be less than 255 characters")
	}

	if !bookingEmailRegex.MatchString(email) {
		return errors.New("customer email format is invalid")
	}

	return nil
}

// validateBookingStatus validates a booking status value.
func validateBookingStatus(status BookingStatus) error {
	switch status {
	case BookingPending, BookingVerified, BookingPaymentPending,
		BookingCompleted, BookingRejected, BookingCancelled:
		return nil
	default:
		return errors.New("invalid booking status")
	}
}

// ValidBookingNumber reports whether s matches the booking number format.
func ValidBookingNumber(s string) bool {
	return bookingNumberRegex.MatchString(s)
}

// GenerateBookingNumber generates a unique booking number.
func GenerateBookingNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	max := big.NewInt(1000000)
	randomNum, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fallback to timestamp-based generation if crypto/rand fails
		return fmt.Sprintf("BKG-%s-%06d", dateStr, now.UnixNano()%1000000)
	}

	return fmt.Sprintf("BKG-%s-%06d", dateStr, randomNum.Int64())
}

// IsCompleted returns true if the booking reached its terminal paid state.
func (b *Booking) IsCompleted() bool {
	return b.Status == BookingCompleted
}

// IsAwaitingPayment returns true if the booking holds a reservation
// pending payment.
func (b *Booking) IsAwaitingPayment() bool {
	return b.Status == BookingPaymentPending
}

// IsFree returns true if the booking requires no payment.
func (b *Booking) IsFree() bool {
	return b.FinalAmount == 0
}

// CanBeCancelled returns true if the booking still holds a releasable
// reservation.
func (b *Booking) CanBeCancelled() bool {
	switch b.Status {
	case BookingPending, BookingVerified, BookingPaymentPending:
		return true
	default:
		return false
	}
}

// IsExpired returns true if a payment-pending booking has outlived the
// payment-session TTL.
func (b *Booking) IsExpired(ttl time.Duration) bool {
	if b.Status != BookingPaymentPending {
		return false
	}

	return time.Since(b.CreatedAt) > ttl
}

// TotalQuantity sums the units across all selections.
func (b *Booking) TotalQuantity() int {
	total := 0
	for _, item := range b.Items {
		total += item.Quantity
	}
	return total
}
