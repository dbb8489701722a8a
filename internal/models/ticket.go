package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

// TicketStatus represents the status of an issued ticket.
type TicketStatus string

const (
	TicketGenerated TicketStatus = "generated"
	TicketSent      TicketStatus = "sent"
	TicketCollected TicketStatus = "collected"
	TicketUsed      TicketStatus = "used"
	TicketExpired   TicketStatus = "expired"
	TicketCancelled TicketStatus = "cancelled"
)

// Ticket is one admission unit minted for a booking. Its unit price is
// the authoritative per-unit price recomputed at issuance time, not the
// quote captured when the booking was created.
type Ticket struct {
	ID              int          `json:"id" db:"id"`
	BookingID       int          `json:"booking_id" db:"booking_id"`
	TicketTypeID    int          `json:"ticket_type_id" db:"ticket_type_id"`
	PricingTierID   *int         `json:"pricing_tier_id,omitempty" db:"pricing_tier_id"`
	TicketNumber    string       `json:"ticket_number" db:"ticket_number"`
	VerificationURL string       `json:"verification_url" db:"verification_url"`
	UnitPrice       int          `json:"unit_price" db:"unit_price"` // Minor currency units
	Sequence        int          `json:"sequence" db:"sequence"`     // 1-based position within the booking
	Status          TicketStatus `json:"status" db:"status"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// Ticket number format: TKT-YYYYMMDD-XXXXXX
var ticketNumberRegex = regexp.MustCompile(`^TKT-\d{8}-\d{6}$`)

// Validate validates ticket data before persistence.
func (t *Ticket) Validate() error {
	if t.BookingID <= 0 {
		return errors.New("ticket requires a booking")
	}

	if t.TicketTypeID <= 0 {
		return errors.New("ticket requires a ticket type")
	}

	if !ticketNumberRegex.MatchString(t.TicketNumber) {
		return errors.New("ticket number format is invalid")
	}

	if t.UnitPrice < 0 {
		return errors.New("ticket unit price cannot be negative")
	}

	if t.Sequence < 1 {
		return errors.New("ticket sequence must be at least 1")
	}

	return validateTicketStatus(t.Status)
}

// validateTicketStatus validates a ticket status value.
func validateTicketStatus(status TicketStatus) error {
	switch status {
	case TicketGenerated, TicketSent, TicketCollected,
		TicketUsed, TicketExpired, TicketCancelled:
		return nil
	default:
		return errors.New("invalid ticket status")
	}
}

// ValidTicketNumber reports whether s matches the ticket number format.
func ValidTicketNumber(s string) bool {
	return ticketNumberRegex.MatchString(s)
}

// GenerateTicketNumber generates a candidate ticket number. Uniqueness
// is enforced by the database; collisions are retried by the issuer.
func GenerateTicketNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	max := big.NewInt(1000000)
	randomNum, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fallback to timestamp-based generation if crypto/rand fails
		return fmt.Sprintf("TKT-%s-%06d", dateStr, now.UnixNano()%1000000)
	}

	return fmt.Sprintf("TKT-%s-%06d", dateStr, randomNum.Int64())
}

// IsActive returns true if the ticket still grants admission.
func (t *Ticket) IsActive() bool {
	switch t.Status {
	case TicketGenerated, TicketSent, TicketCollected:
		return true
	default:
		return false
	}
}

// CanCheckIn returns true if the ticket can be redeemed at the door.
func (t *Ticket) CanCheckIn() bool {
	return t.IsActive()
}
