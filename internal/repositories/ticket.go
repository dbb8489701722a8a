package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ticketing-engine/internal/models"
)

// TicketRepository handles ticket data operations
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// IssueLine is one selection to mint tickets for, with the authoritative
// per-unit price already recomputed by the caller.
type IssueLine struct {
	TicketTypeID  int
	Quantity      int
	UnitPrice     int
	PricingTierID *int
}

// IssueParams carries everything one issuance attempt needs. The two
// callbacks let the caller keep token minting and coupon policy out of
// the storage layer while still running them inside the transaction.
type IssueParams struct {
	Actor     string
	SessionID string // Settle this payment when non-empty
	PaidAt    *time.Time
	Lines     []IssueLine

	// VerificationURL mints the verification link for a ticket number.
	VerificationURL func(ticketNumber string) string

	// CouponRecheck re-validates the booking's coupon against derived
	// usage counts while the coupon row is locked. Returning a
	// CouponRejectedError rejects the booking.
	CouponRecheck func(coupon *models.Coupon, usesGlobal, usesByEmail int) error
}

// IssueForBooking runs one issuance attempt as a single transaction:
// lock the booking, recheck the coupon, mint the tickets, move reserved
// stock to sold, settle the payment, and complete the booking. Either
// every effect lands or none do.
//
// If tickets already exist the existing set is returned together with
// ErrAlreadyIssued. A ticket number collision aborts the transaction
// with ErrDuplicateTicketNumber; the caller retries with a fresh
// attempt.
func (r *TicketRepository) IssueForBooking(bookingID int, params IssueParams) ([]*models.Ticket, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the booking row. Concurrent issuance attempts for the same
	// booking serialize here.
	var status models.BookingStatus
	var couponID *int
	var customerEmail string
	err = tx.QueryRow(`
		SELECT status, coupon_id, customer_email
		FROM bookings
		WHERE id = $1
		FOR UPDATE`,
		bookingID).Scan(&status, &couponID, &customerEmail)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}

	switch status {
	case models.BookingRejected, models.BookingCancelled:
		return nil, models.ErrNotEligible
	}

	// A completed booking, or any booking that already has tickets,
	// returns the existing set unchanged.
	existing, err := getTicketsTx(tx, bookingID)
	if err != nil {
		return nil, err
	}
	if status == models.BookingCompleted || len(existing) > 0 {
		return existing, models.ErrAlreadyIssued
	}

	if couponID != nil && params.CouponRecheck != nil {
		if err := r.recheckCouponTx(tx, *couponID, bookingID, customerEmail, params); err != nil {
			if models.IsCouponRejected(err) {
				// Persist the rejection and free the stock before
				// surfacing the error.
				if rejErr := rejectBookingTx(tx, bookingID, params.Lines); rejErr != nil {
					return nil, rejErr
				}
				if commitErr := tx.Commit(); commitErr != nil {
					return nil, fmt.Errorf("failed to commit booking rejection: %w", commitErr)
				}
			}
			return nil, err
		}
	}

	tickets, err := insertTicketsTx(tx, bookingID, params)
	if err != nil {
		return nil, err
	}

	// Convert the reservation into sales
	for _, line := range params.Lines {
		if err := commitStockTx(tx, line.TicketTypeID, line.Quantity); err != nil {
			return nil, err
		}
	}

	if params.SessionID != "" {
		_, err = tx.Exec(`
			UPDATE payments
			SET status = 'succeeded', paid_at = $2, updated_at = CURRENT_TIMESTAMP
			WHERE session_id = $1 AND status = 'pending'`,
			params.SessionID, params.PaidAt)
		if err != nil {
			return nil, fmt.Errorf("failed to settle payment: %w", err)
		}
	}

	_, err = tx.Exec(`
		UPDATE bookings
		SET status = 'completed', issued_by = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		bookingID, params.Actor)
	if err != nil {
		return nil, fmt.Errorf("failed to complete booking: %w", err)
	}

	if couponID != nil {
		// Cached display counter; the derived count stays authoritative.
		_, err = tx.Exec("UPDATE coupons SET current_uses = current_uses + 1 WHERE id = $1", *couponID)
		if err != nil {
			return nil, fmt.Errorf("failed to update coupon usage counter: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ticket issuance: %w", err)
	}

	return tickets, nil
}

// recheckCouponTx locks the coupon row and replays validation against
// usage counts derived from completed bookings, excluding the booking
// being issued.
func (r *TicketRepository) recheckCouponTx(tx *sql.Tx, couponID, bookingID int, customerEmail string, params IssueParams) error {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

	coupon := &models.Coupon{}
	err := tx.QueryRow(query, couponID).Scan(couponScanTargets(coupon)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ErrCouponNotFound
		}
		return fmt.Errorf("failed to lock coupon: %w", err)
	}

	var usesGlobal int
	err = tx.QueryRow(`
		SELECT COUNT(*)
		FROM bookings
		WHERE coupon_id = $1 AND status = 'completed' AND id != $2`,
		couponID, bookingID).Scan(&usesGlobal)
	if err != nil {
		return fmt.Errorf("failed to count coupon uses: %w", err)
	}

	var usesByEmail int
	err = tx.QueryRow(`
		SELECT COUNT(*)
		FROM bookings
		WHERE coupon_id = $1 AND customer_email = $2 AND status = 'completed' AND id != $3`,
		couponID, customerEmail, bookingID).Scan(&usesByEmail)
	if err != nil {
		return fmt.Errorf("failed to count coupon uses by email: %w", err)
	}

	return params.CouponRecheck(coupon, usesGlobal, usesByEmail)
}

// rejectBookingTx marks the booking rejected and returns its held stock.
func rejectBookingTx(tx *sql.Tx, bookingID int, lines []IssueLine) error {
	for _, line := range lines {
		if err := releaseStockTx(tx, line.TicketTypeID, line.Quantity); err != nil {
			return err
		}
	}

	_, err := tx.Exec(`
		UPDATE bookings
		SET status = 'rejected', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		bookingID)
	if err != nil {
		return fmt.Errorf("failed to reject booking: %w", err)
	}

	return nil
}

// insertTicketsTx mints one ticket row per unit across all lines.
func insertTicketsTx(tx *sql.Tx, bookingID int, params IssueParams) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	sequence := 0
	now := time.Now()

	for _, line := range params.Lines {
		for i := 0; i < line.Quantity; i++ {
			sequence++

			ticketNumber := models.GenerateTicketNumber()
			verificationURL := ""
			if params.VerificationURL != nil {
				verificationURL = params.VerificationURL(ticketNumber)
			}

			ticket := &models.Ticket{}
			err := tx.QueryRow(`
				INSERT INTO tickets (booking_id, ticket_type_id, pricing_tier_id, ticket_number, verification_url, unit_price, sequence, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
				RETURNING id, booking_id, ticket_type_id, pricing_tier_id, ticket_number, verification_url, unit_price, sequence, status, created_at, updated_at`,
				bookingID,
				line.TicketTypeID,
				line.PricingTierID,
				ticketNumber,
				verificationURL,
				line.UnitPrice,
				sequence,
				models.TicketGenerated,
				now,
			).Scan(
				&ticket.ID,
				&ticket.BookingID,
				&ticket.TicketTypeID,
				&ticket.PricingTierID,
				&ticket.TicketNumber,
				&ticket.VerificationURL,
				&ticket.UnitPrice,
				&ticket.Sequence,
				&ticket.Status,
				&ticket.CreatedAt,
				&ticket.UpdatedAt,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return nil, models.ErrDuplicateTicketNumber
				}
				return nil, fmt.Errorf("failed to create ticket: %w", err)
			}

			tickets = append(tickets, ticket)
		}
	}

	return tickets, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

const ticketColumns = `id, booking_id, ticket_type_id, pricing_tier_id, ticket_number, verification_url, unit_price, sequence, status, created_at, updated_at`

// GetByNumber retrieves a ticket by its ticket number.
func (r *TicketRepository) GetByNumber(ticketNumber string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number = $1`

	ticket := &models.Ticket{}
	err := r.db.QueryRow(query, ticketNumber).Scan(ticketScanTargets(ticket)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return ticket, nil
}

// GetByBooking retrieves all tickets minted for a booking.
func (r *TicketRepository) GetByBooking(bookingID int) ([]*models.Ticket, error) {
	return getTickets(r.db, bookingID)
}

func getTicketsTx(tx *sql.Tx, bookingID int) ([]*models.Ticket, error) {
	return getTickets(tx, bookingID)
}

func getTickets(q rowQuerier, bookingID int) ([]*models.Ticket, error) {
	rows, err := q.Query(`
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE booking_id = $1
		ORDER BY sequence`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket := &models.Ticket{}
		if err := rows.Scan(ticketScanTargets(ticket)...); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

// CheckIn marks an admissible ticket as used. Redeeming an already used
// or cancelled ticket matches no row.
func (r *TicketRepository) CheckIn(ticketNumber string) (*models.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = 'used', updated_at = CURRENT_TIMESTAMP
		WHERE ticket_number = $1 AND status IN ('generated', 'sent', 'collected')
		RETURNING ` + ticketColumns

	ticket := &models.Ticket{}
	err := r.db.QueryRow(query, ticketNumber).Scan(ticketScanTargets(ticket)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to check in ticket: %w", err)
	}

	return ticket, nil
}

func ticketScanTargets(t *models.Ticket) []interface{} {
	return []interface{}{
		&t.ID,
		&t.BookingID,
		&t.TicketTypeID,
		&t.PricingTierID,
		&t.TicketNumber,
		&t.VerificationURL,
		&t.UnitPrice,
		&t.Sequence,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}
