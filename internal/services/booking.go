package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ticketing-engine/internal/models"
)

// bookingRepository defines the booking operations the workflow needs
type bookingRepository interface {
	Create(req *models.BookingCreateRequest) (*models.Booking, error)
	GetByID(id int) (*models.Booking, error)
	GetByNumber(bookingNumber string) (*models.Booking, error)
	CountCompletedByCoupon(couponID, excludeBookingID int) (int, error)
	CountCompletedByCouponAndEmail(couponID int, email string, excludeBookingID int) (int, error)
	CancelWithRelease(id int, status models.BookingStatus) error
}

// bookingTicketTypeRepository defines the ticket type lookups the workflow needs
type bookingTicketTypeRepository interface {
	GetByID(id int) (*models.TicketType, error)
}

// bookingCouponRepository defines the coupon lookups the workflow needs
type bookingCouponRepository interface {
	GetByCode(code string) (*models.Coupon, error)
}

// bookingPaymentRepository defines the payment operations the workflow needs
type bookingPaymentRepository interface {
	Create(payment *models.Payment) (*models.Payment, error)
	GetByBookingID(bookingID int) (*models.Payment, error)
	Settle(sessionID string, status models.PaymentStatus, paidAt *time.Time) (bool, error)
}

// bookingTicketRepository defines the ticket lookups the workflow needs
type bookingTicketRepository interface {
	GetByBooking(bookingID int) ([]*models.Ticket, error)
}

// BookingService runs the booking workflow: quote the selections,
// apply the coupon, hold the stock, and either issue immediately (free
// bookings) or open a checkout session (paid bookings).
type BookingService struct {
	bookings    bookingRepository
	ticketTypes bookingTicketTypeRepository
	couponRepo  bookingCouponRepository
	payments    bookingPaymentRepository
	ticketRepo  bookingTicketRepository
	pricing     *PricingService
	coupons     *CouponService
	issuer      *TicketIssuer
	gateway     CheckoutGateway
	notifier    NotificationDispatcher
	callbackURL string
	log         *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings bookingRepository,
	ticketTypes bookingTicketTypeRepository,
	couponRepo bookingCouponRepository,
	payments bookingPaymentRepository,
	ticketRepo bookingTicketRepository,
	pricing *PricingService,
	coupons *CouponService,
	issuer *TicketIssuer,
	gateway CheckoutGateway,
	notifier NotificationDispatcher,
	callbackURL string,
	log *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		ticketTypes: ticketTypes,
		couponRepo:  couponRepo,
		payments:    payments,
		ticketRepo:  ticketRepo,
		pricing:     pricing,
		coupons:     coupons,
		issuer:      issuer,
		gateway:     gateway,
		notifier:    notifier,
		callbackURL: callbackURL,
		log:         log,
	}
}

// Selection is one requested ticket type and quantity.
type Selection struct {
	TicketTypeID int `json:"ticket_type_id"`
	Quantity     int `json:"quantity"`
}

// CreateBookingRequest is the customer-facing booking input.
type CreateBookingRequest struct {
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone string      `json:"customer_phone"`
	CouponCode    string      `json:"coupon_code"`
	Selections    []Selection `json:"selections"`
}

// BookingResult is the outcome of a booking attempt. Free bookings
// carry their issued tickets; paid bookings carry the checkout URL the
// customer must complete.
type BookingResult struct {
	Booking     *models.Booking  `json:"booking"`
	Tickets     []*models.Ticket `json:"tickets,omitempty"`
	Payment     *models.Payment  `json:"payment,omitempty"`
	CheckoutURL string           `json:"checkout_url,omitempty"`
}

// CreateBooking creates a booking, reserving stock for every selection
// all-or-nothing.
func (s *BookingService) CreateBooking(req *CreateBookingRequest) (*BookingResult, error) {
	if len(req.Selections) == 0 {
		return nil, models.ErrInvalidQuantity
	}

	originalAmount := 0
	items := make([]*models.BookingItem, 0, len(req.Selections))

	for _, sel := range req.Selections {
		tt, err := s.ticketTypes.GetByID(sel.TicketTypeID)
		if err != nil {
			return nil, err
		}

		quote, err := s.pricing.QuoteSelection(tt, sel.Quantity)
		if err != nil {
			return nil, err
		}

		item := &models.BookingItem{
			TicketTypeID:    sel.TicketTypeID,
			Quantity:        sel.Quantity,
			QuotedUnitPrice: quote.UnitPrice,
		}
		if quote.AppliedTier != nil {
			tierID := quote.AppliedTier.ID
			item.PricingTierID = &tierID
		}

		originalAmount += quote.TotalPrice
		items = append(items, item)
	}

	discountAmount := 0
	var couponID *int
	if req.CouponCode != "" {
		coupon, err := s.couponRepo.GetByCode(req.CouponCode)
		if err != nil {
			return nil, err
		}

		usesGlobal, err := s.bookings.CountCompletedByCoupon(coupon.ID, 0)
		if err != nil {
			return nil, err
		}
		usesByEmail, err := s.bookings.CountCompletedByCouponAndEmail(coupon.ID, req.CustomerEmail, 0)
		if err != nil {
			return nil, err
		}

		if err := s.coupons.Validate(coupon, originalAmount, usesGlobal, usesByEmail, time.Now()); err != nil {
			return nil, err
		}

		discountAmount = s.coupons.Discount(coupon, originalAmount)
		couponID = &coupon.ID
	}

	finalAmount := originalAmount - discountAmount

	status := models.BookingPaymentPending
	if finalAmount == 0 {
		status = models.BookingPending
	}

	booking, err := s.bookings.Create(&models.BookingCreateRequest{
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		OriginalAmount: originalAmount,
		DiscountAmount: discountAmount,
		FinalAmount:    finalAmount,
		CouponID:       couponID,
		Status:         status,
		Items:          items,
	})
	if err != nil {
		return nil, err
	}

	if booking.IsFree() {
		tickets, err := s.issuer.Issue(&IssueRequest{BookingID: booking.ID})
		if err != nil {
			// A pending free booking is outside the sweep's reach, so a
			// failed issuance must hand its stock back here.
			if cancelErr := s.bookings.CancelWithRelease(booking.ID, models.BookingCancelled); cancelErr != nil {
				s.log.WithError(cancelErr).WithField("booking_id", booking.ID).
					Error("failed to cancel booking after issuance failure")
			}
			return nil, err
		}
		booking.Status = models.BookingCompleted
		return &BookingResult{Booking: booking, Tickets: tickets}, nil
	}

	session, err := s.gateway.CreateSession(&CheckoutSessionRequest{
		Reference:     booking.BookingNumber,
		Amount:        booking.FinalAmount,
		CustomerEmail: booking.CustomerEmail,
		CallbackURL:   s.callbackURL,
	})
	if err != nil {
		// Without a checkout session the reservation can never settle;
		// give the stock back immediately.
		if cancelErr := s.bookings.CancelWithRelease(booking.ID, models.BookingCancelled); cancelErr != nil {
			s.log.WithError(cancelErr).WithField("booking_id", booking.ID).
				Error("failed to cancel booking after checkout failure")
		}
		return nil, fmt.Errorf("failed to open checkout session: %w", err)
	}

	if _, err := s.payments.Create(&models.Payment{
		BookingID: booking.ID,
		SessionID: session.SessionID,
		Amount:    booking.FinalAmount,
	}); err != nil {
		if cancelErr := s.bookings.CancelWithRelease(booking.ID, models.BookingCancelled); cancelErr != nil {
			s.log.WithError(cancelErr).WithField("booking_id", booking.ID).
				Error("failed to cancel booking after payment creation failure")
		}
		return nil, err
	}

	if s.notifier != nil {
		if notifyErr := s.notifier.SendBookingCreated(booking, session.CheckoutURL); notifyErr != nil {
			s.log.WithError(notifyErr).WithField("booking_id", booking.ID).
				Warn("failed to send booking confirmation")
		}
	}

	return &BookingResult{Booking: booking, CheckoutURL: session.CheckoutURL}, nil
}

// GetBooking retrieves a booking by number with any issued tickets.
func (s *BookingService) GetBooking(bookingNumber string) (*BookingResult, error) {
	booking, err := s.bookings.GetByNumber(bookingNumber)
	if err != nil {
		return nil, err
	}

	result := &BookingResult{Booking: booking}
	if booking.IsCompleted() {
		tickets, err := s.ticketRepo.GetByBooking(booking.ID)
		if err != nil {
			return nil, err
		}
		result.Tickets = tickets
	}

	if payment, err := s.payments.GetByBookingID(booking.ID); err == nil {
		result.Payment = payment
	} else if err != models.ErrPaymentNotFound {
		return nil, err
	}

	return result, nil
}

// CancelBooking cancels a booking that still holds a reservation and
// returns its stock. Any open payment is cancelled alongside.
func (s *BookingService) CancelBooking(bookingNumber string) error {
	booking, err := s.bookings.GetByNumber(bookingNumber)
	if err != nil {
		return err
	}

	if !booking.CanBeCancelled() {
		return models.ErrNotEligible
	}

	if err := s.bookings.CancelWithRelease(booking.ID, models.BookingCancelled); err != nil {
		return err
	}

	if payment, err := s.payments.GetByBookingID(booking.ID); err == nil {
		if _, err := s.payments.Settle(payment.SessionID, models.PaymentCancelled, nil); err != nil {
			s.log.WithError(err).WithField("booking_id", booking.ID).
				Warn("failed to cancel payment for cancelled booking")
		}
	}

	return nil
}
