package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"ticketing-engine/internal/models"
)

// PaymentRepository handles payment data operations
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create persists a pending payment for a booking.
func (r *PaymentRepository) Create(payment *models.Payment) (*models.Payment, error) {
	if payment.Status == "" {
		payment.Status = models.PaymentPending
	}

	if err := payment.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO payments (booking_id, session_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, booking_id, session_id, amount, status, paid_at, created_at, updated_at`

	created := &models.Payment{}
	err := r.db.QueryRow(
		query,
		payment.BookingID,
		payment.SessionID,
		payment.Amount,
		payment.Status,
		time.Now(),
	).Scan(
		&created.ID,
		&created.BookingID,
		&created.SessionID,
		&created.Amount,
		&created.Status,
		&created.PaidAt,
		&created.CreatedAt,
		&created.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	return created, nil
}

// GetBySessionID retrieves a payment by its checkout session id.
func (r *PaymentRepository) GetBySessionID(sessionID string) (*models.Payment, error) {
	return r.getPayment("session_id = $1", sessionID)
}

// GetByBookingID retrieves the payment attached to a booking.
func (r *PaymentRepository) GetByBookingID(bookingID int) (*models.Payment, error) {
	return r.getPayment("booking_id = $1", bookingID)
}

func (r *PaymentRepository) getPayment(where string, arg interface{}) (*models.Payment, error) {
	query := `
		SELECT id, booking_id, session_id, amount, status, paid_at, created_at, updated_at
		FROM payments
		WHERE ` + where

	payment := &models.Payment{}
	err := r.db.QueryRow(query, arg).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.SessionID,
		&payment.Amount,
		&payment.Status,
		&payment.PaidAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// Settle transitions a pending payment into a terminal state. Already
// settled payments match no row and report false, which is how replayed
// notifications are recognized.
func (r *PaymentRepository) Settle(sessionID string, status models.PaymentStatus, paidAt *time.Time) (bool, error) {
	switch status {
	case models.PaymentSucceeded, models.PaymentFailed, models.PaymentCancelled:
	default:
		return false, fmt.Errorf("invalid terminal payment status %q", status)
	}

	result, err := r.db.Exec(`
		UPDATE payments
		SET status = $2, paid_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE session_id = $1 AND status = 'pending'`,
		sessionID, status, paidAt)
	if err != nil {
		return false, fmt.Errorf("failed to settle payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check settlement result: %w", err)
	}

	return rows > 0, nil
}
