package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ticketing-engine/internal/models"
	"ticketing-engine/internal/repositories"
)

// issuerBookingRepository defines the booking operations the issuer needs
type issuerBookingRepository interface {
	GetByID(id int) (*models.Booking, error)
}

// issuerTicketTypeRepository defines the ticket type operations the issuer needs
type issuerTicketTypeRepository interface {
	GetByID(id int) (*models.TicketType, error)
}

// issuerTicketRepository defines the ticket operations the issuer needs
type issuerTicketRepository interface {
	IssueForBooking(bookingID int, params repositories.IssueParams) ([]*models.Ticket, error)
	GetByBooking(bookingID int) ([]*models.Ticket, error)
}

// maxIssueAttempts bounds the ticket number collision retries. Each
// retry is a whole fresh transaction because Postgres aborts the
// current one on a unique violation.
const maxIssueAttempts = 5

// TicketIssuer mints tickets for eligible bookings exactly once. It is
// the only component that moves reserved stock to sold.
type TicketIssuer struct {
	bookings     issuerBookingRepository
	ticketTypes  issuerTicketTypeRepository
	tickets      issuerTicketRepository
	pricing      *PricingService
	coupons      *CouponService
	verification *VerificationService
	notifier     NotificationDispatcher
	log          *logrus.Logger
}

// NewTicketIssuer creates a new ticket issuer
func NewTicketIssuer(
	bookings issuerBookingRepository,
	ticketTypes issuerTicketTypeRepository,
	tickets issuerTicketRepository,
	pricing *PricingService,
	coupons *CouponService,
	verification *VerificationService,
	notifier NotificationDispatcher,
	log *logrus.Logger,
) *TicketIssuer {
	return &TicketIssuer{
		bookings:     bookings,
		ticketTypes:  ticketTypes,
		tickets:      tickets,
		pricing:      pricing,
		coupons:      coupons,
		verification: verification,
		notifier:     notifier,
		log:          log,
	}
}

// IssueRequest identifies the booking to issue for and the evidence
// that allows it.
type IssueRequest struct {
	BookingID int

	// SessionID and PaidAt carry settlement evidence from the payment
	// reconciler.
	SessionID string
	PaidAt    *time.Time

	// Actor records who forced issuance outside the payment flow.
	Actor string
}

// Issue mints the tickets for a booking. Calling it again for an
// already-completed booking returns the existing tickets and no error,
// so callers can retry freely.
func (s *TicketIssuer) Issue(req *IssueRequest) ([]*models.Ticket, error) {
	booking, err := s.bookings.GetByID(req.BookingID)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case models.BookingRejected, models.BookingCancelled:
		return nil, models.ErrNotEligible
	case models.BookingCompleted:
		return s.tickets.GetByBooking(booking.ID)
	}

	// A paid booking needs either settlement evidence or an explicit
	// operator override.
	if !booking.IsFree() && req.SessionID == "" && req.Actor == "" {
		return nil, models.ErrNotEligible
	}

	lines, err := s.buildLines(booking)
	if err != nil {
		return nil, err
	}

	params := repositories.IssueParams{
		Actor:           req.Actor,
		SessionID:       req.SessionID,
		PaidAt:          req.PaidAt,
		Lines:           lines,
		VerificationURL: s.verification.VerificationURL,
		CouponRecheck: func(coupon *models.Coupon, usesGlobal, usesByEmail int) error {
			return s.coupons.Validate(coupon, booking.OriginalAmount, usesGlobal, usesByEmail, time.Now())
		},
	}

	var tickets []*models.Ticket
	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		tickets, err = s.tickets.IssueForBooking(booking.ID, params)
		if err == nil {
			break
		}

		if err == models.ErrAlreadyIssued {
			// Someone else won the race; their tickets are the result.
			return tickets, nil
		}

		if err == models.ErrDuplicateTicketNumber {
			s.log.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"attempt":    attempt,
			}).Warn("ticket number collision, retrying issuance")
			continue
		}

		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("ticket number generation exhausted after %d attempts: %w", maxIssueAttempts, err)
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"tickets":        len(tickets),
	}).Info("tickets issued")

	if s.notifier != nil {
		if notifyErr := s.notifier.SendTicketsIssued(booking, tickets); notifyErr != nil {
			s.log.WithError(notifyErr).WithField("booking_id", booking.ID).
				Warn("failed to send ticket notification")
		}
	}

	return tickets, nil
}

// buildLines recomputes the authoritative price for every selection.
// The quote captured at booking time is ignored here: pricing
// configuration current at issuance is what the tickets record.
func (s *TicketIssuer) buildLines(booking *models.Booking) ([]repositories.IssueLine, error) {
	lines := make([]repositories.IssueLine, 0, len(booking.Items))

	for _, item := range booking.Items {
		tt, err := s.ticketTypes.GetByID(item.TicketTypeID)
		if err != nil {
			return nil, err
		}

		quote, err := s.pricing.ComputePrice(tt, item.Quantity)
		if err != nil {
			return nil, err
		}

		line := repositories.IssueLine{
			TicketTypeID: item.TicketTypeID,
			Quantity:     item.Quantity,
			UnitPrice:    quote.UnitPrice,
		}
		if quote.AppliedTier != nil {
			tierID := quote.AppliedTier.ID
			line.PricingTierID = &tierID
		}

		lines = append(lines, line)
	}

	return lines, nil
}
