package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ticketing-engine/internal/models"
)

// reconcilerPaymentRepository defines the payment operations the reconciler needs
type reconcilerPaymentRepository interface {
	GetBySessionID(sessionID string) (*models.Payment, error)
	Settle(sessionID string, status models.PaymentStatus, paidAt *time.Time) (bool, error)
}

// Webhook event names sent by the checkout gateway.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutExpired   = "checkout.expired"
	EventPaymentFailed     = "payment.failed"
)

// WebhookEvent is a parsed gateway notification.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		SessionID string     `json:"session_id"`
		Amount    int        `json:"amount"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

// PaymentReconciler applies gateway notifications to payments and
// bookings. Notifications arrive at least once and in no particular
// order, so every path must be idempotent: the first event to settle a
// payment wins and every later event for the same session is a no-op.
type PaymentReconciler struct {
	gateway  CheckoutGateway
	payments reconcilerPaymentRepository
	issuer   *TicketIssuer
	log      *logrus.Logger
}

// NewPaymentReconciler creates a new payment reconciler
func NewPaymentReconciler(
	gateway CheckoutGateway,
	payments reconcilerPaymentRepository,
	issuer *TicketIssuer,
	log *logrus.Logger,
) *PaymentReconciler {
	return &PaymentReconciler{
		gateway:  gateway,
		payments: payments,
		issuer:   issuer,
		log:      log,
	}
}

// HandleNotification verifies and applies one raw webhook delivery.
// The signature is checked against the raw payload before anything is
// parsed or touched.
func (s *PaymentReconciler) HandleNotification(payload []byte, signature string) error {
	if !s.gateway.VerifySignature(payload, signature) {
		return models.ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	if event.Data.SessionID == "" {
		return fmt.Errorf("webhook payload missing session id")
	}

	payment, err := s.payments.GetBySessionID(event.Data.SessionID)
	if err != nil {
		return err
	}

	log := s.log.WithFields(logrus.Fields{
		"event":      event.Event,
		"session_id": event.Data.SessionID,
		"booking_id": payment.BookingID,
	})

	if payment.IsSettled() {
		// Replay or conflicting late event; the first settlement won.
		log.WithField("status", payment.Status).Info("payment already settled, ignoring notification")
		return nil
	}

	switch event.Event {
	case EventCheckoutCompleted:
		return s.handleCompleted(payment, &event, log)
	case EventCheckoutExpired:
		return s.handleUnsettled(payment, models.PaymentCancelled, log)
	case EventPaymentFailed:
		return s.handleUnsettled(payment, models.PaymentFailed, log)
	default:
		log.Info("ignoring unrecognized webhook event")
		return nil
	}
}

// handleCompleted turns a successful checkout into issued tickets. The
// issuance transaction settles the payment, so a crash between the two
// can never leave a succeeded payment without tickets.
func (s *PaymentReconciler) handleCompleted(payment *models.Payment, event *WebhookEvent, log *logrus.Entry) error {
	if event.Data.Amount != 0 && event.Data.Amount != payment.Amount {
		// Redelivery cannot heal a wrong amount. Acknowledge the
		// delivery and leave the payment pending for an operator.
		log.WithFields(logrus.Fields{
			"notified_amount": event.Data.Amount,
			"payment_amount":  payment.Amount,
		}).Error("notification amount does not match payment, refusing issuance")
		return nil
	}

	paidAt := event.Data.PaidAt
	if paidAt == nil {
		now := time.Now()
		paidAt = &now
	}

	_, err := s.issuer.Issue(&IssueRequest{
		BookingID: payment.BookingID,
		SessionID: payment.SessionID,
		PaidAt:    paidAt,
	})
	if err != nil {
		return err
	}

	log.Info("checkout completed, tickets issued")
	return nil
}

// handleUnsettled records a terminal failure for a still-pending
// payment. The booking keeps its reservation and stays payment_pending:
// the customer may retry, and the expiry sweep reclaims the stock once
// the session TTL runs out.
func (s *PaymentReconciler) handleUnsettled(payment *models.Payment, status models.PaymentStatus, log *logrus.Entry) error {
	settled, err := s.payments.Settle(payment.SessionID, status, nil)
	if err != nil {
		return err
	}
	if !settled {
		// Lost a race against another delivery; nothing left to do.
		return nil
	}

	log.WithField("status", status).Info("payment closed")
	return nil
}
