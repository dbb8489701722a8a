package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"ticketing-engine/internal/models"
)

// sweeperBookingRepository defines the booking operations the sweeper needs
type sweeperBookingRepository interface {
	GetExpiredPaymentPending(ttl time.Duration) ([]*models.Booking, error)
	CancelWithRelease(id int, status models.BookingStatus) error
}

// sweeperPaymentRepository defines the payment operations the sweeper needs
type sweeperPaymentRepository interface {
	GetByBookingID(bookingID int) (*models.Payment, error)
	Settle(sessionID string, status models.PaymentStatus, paidAt *time.Time) (bool, error)
}

// ExpirySweeper returns stock held by bookings whose checkout session
// outlived its TTL without a completion notification. It is the safety
// net behind the checkout.expired webhook: either path may run first,
// both are idempotent.
type ExpirySweeper struct {
	bookings sweeperBookingRepository
	payments sweeperPaymentRepository
	notifier NotificationDispatcher
	ttl      time.Duration
	interval time.Duration
	log      *logrus.Logger
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(
	bookings sweeperBookingRepository,
	payments sweeperPaymentRepository,
	notifier NotificationDispatcher,
	ttl, interval time.Duration,
	log *logrus.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		bookings: bookings,
		payments: payments,
		notifier: notifier,
		ttl:      ttl,
		interval: interval,
		log:      log,
	}
}

// SweepOnce expires every overdue payment-pending booking and returns
// how many were expired. One failing booking does not stop the sweep.
func (s *ExpirySweeper) SweepOnce() (int, error) {
	expired, err := s.bookings.GetExpiredPaymentPending(s.ttl)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, booking := range expired {
		if err := s.expireBooking(booking); err != nil {
			s.log.WithError(err).WithField("booking_id", booking.ID).
				Error("failed to expire booking")
			continue
		}
		swept++
	}

	return swept, nil
}

func (s *ExpirySweeper) expireBooking(booking *models.Booking) error {
	if err := s.bookings.CancelWithRelease(booking.ID, models.BookingCancelled); err != nil {
		return err
	}

	if payment, err := s.payments.GetByBookingID(booking.ID); err == nil {
		if _, err := s.payments.Settle(payment.SessionID, models.PaymentCancelled, nil); err != nil {
			s.log.WithError(err).WithField("booking_id", booking.ID).
				Warn("failed to cancel payment for expired booking")
		}
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
	}).Info("expired booking released")

	if s.notifier != nil {
		if err := s.notifier.SendBookingExpired(booking); err != nil {
			s.log.WithError(err).WithField("booking_id", booking.ID).
				Warn("failed to send expiry notification")
		}
	}

	return nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithFields(logrus.Fields{
		"ttl":      s.ttl.String(),
		"interval": s.interval.String(),
	}).Info("expiry sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(); err != nil {
				s.log.WithError(err).Error("expiry sweep failed")
			}
		}
	}
}
