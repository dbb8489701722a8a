package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"ticketing-engine/internal/models"
)

// BookingRepository handles booking data operations
type BookingRepository struct {
	db *sql.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create persists a booking with its selections and reserves stock for
// every selection in the same transaction. If any reservation fails the
// whole booking rolls back, so a partial hold can never survive.
func (r *BookingRepository) Create(req *models.BookingCreateRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Generate unique booking number
	bookingNumber := models.GenerateBookingNumber()

	// Ensure booking number is unique (retry if collision)
	for i := 0; i < 5; i++ {
		var exists bool
		err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_number = $1)", bookingNumber).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check booking number uniqueness: %w", err)
		}
		if !exists {
			break
		}
		bookingNumber = models.GenerateBookingNumber()
	}

	query := `
		INSERT INTO bookings (booking_number, customer_name, customer_email, customer_phone, original_amount, discount_amount, final_amount, coupon_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, booking_number, customer_name, customer_email, customer_phone, original_amount, discount_amount, final_amount, coupon_id, status, issued_by, created_at, updated_at`

	now := time.Now()
	booking := &models.Booking{}

	err = tx.QueryRow(
		query,
		bookingNumber,
		req.CustomerName,
		req.CustomerEmail,
		req.CustomerPhone,
		req.OriginalAmount,
		req.DiscountAmount,
		req.FinalAmount,
		req.CouponID,
		req.Status,
		now,
	).Scan(
		&booking.ID,
		&booking.BookingNumber,
		&booking.CustomerName,
		&booking.CustomerEmail,
		&booking.CustomerPhone,
		&booking.OriginalAmount,
		&booking.DiscountAmount,
		&booking.FinalAmount,
		&booking.CouponID,
		&booking.Status,
		&booking.IssuedBy,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	for _, item := range req.Items {
		// Hold the stock before recording the selection
		if err := reserveStockTx(tx, item.TicketTypeID, item.Quantity); err != nil {
			return nil, err
		}

		created := &models.BookingItem{}
		err = tx.QueryRow(`
			INSERT INTO booking_items (booking_id, ticket_type_id, quantity, quoted_unit_price, pricing_tier_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, booking_id, ticket_type_id, quantity, quoted_unit_price, pricing_tier_id`,
			booking.ID, item.TicketTypeID, item.Quantity, item.QuotedUnitPrice, item.PricingTierID,
		).Scan(
			&created.ID,
			&created.BookingID,
			&created.TicketTypeID,
			&created.Quantity,
			&created.QuotedUnitPrice,
			&created.PricingTierID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create booking item: %w", err)
		}
		booking.Items = append(booking.Items, created)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking creation: %w", err)
	}

	return booking, nil
}

// GetByID retrieves a booking with its selections.
func (r *BookingRepository) GetByID(id int) (*models.Booking, error) {
	booking, err := r.getBooking("id = $1", id)
	if err != nil {
		return nil, err
	}

	items, err := getBookingItems(r.db, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Items = items

	return booking, nil
}

// GetByNumber retrieves a booking by booking number with its selections.
func (r *BookingRepository) GetByNumber(bookingNumber string) (*models.Booking, error) {
	booking, err := r.getBooking("booking_number = $1", bookingNumber)
	if err != nil {
		return nil, err
	}

	items, err := getBookingItems(r.db, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Items = items

	return booking, nil
}

func (r *BookingRepository) getBooking(where string, arg interface{}) (*models.Booking, error) {
	query := `
		SELECT id, booking_number, customer_name, customer_email, customer_phone, original_amount, discount_amount, final_amount, coupon_id, status, issued_by, created_at, updated_at
		FROM bookings
		WHERE ` + where

	booking := &models.Booking{}
	err := r.db.QueryRow(query, arg).Scan(
		&booking.ID,
		&booking.BookingNumber,
		&booking.CustomerName,
		&booking.CustomerEmail,
		&booking.CustomerPhone,
		&booking.OriginalAmount,
		&booking.DiscountAmount,
		&booking.FinalAmount,
		&booking.CouponID,
		&booking.Status,
		&booking.IssuedBy,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return booking, nil
}

type rowQuerier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// getBookingItems loads the selections for a booking. It accepts either
// the pool or a transaction so the issuance path can reuse it.
func getBookingItems(q rowQuerier, bookingID int) ([]*models.BookingItem, error) {
	rows, err := q.Query(`
		SELECT id, booking_id, ticket_type_id, quantity, quoted_unit_price, pricing_tier_id
		FROM booking_items
		WHERE booking_id = $1
		ORDER BY id`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking items: %w", err)
	}
	defer rows.Close()

	var items []*models.BookingItem
	for rows.Next() {
		item := &models.BookingItem{}
		err := rows.Scan(
			&item.ID,
			&item.BookingID,
			&item.TicketTypeID,
			&item.Quantity,
			&item.QuotedUnitPrice,
			&item.PricingTierID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// CountCompletedByCoupon counts completed bookings that consumed a
// coupon, excluding one booking id (zero to exclude none). Usage is
// derived from bookings rather than read from a counter so concurrent
// completions cannot double-spend a coupon.
func (r *BookingRepository) CountCompletedByCoupon(couponID, excludeBookingID int) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM bookings
		WHERE coupon_id = $1 AND status = 'completed' AND id != $2`,
		couponID, excludeBookingID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count coupon uses: %w", err)
	}
	return count, nil
}

// CountCompletedByCouponAndEmail counts completed bookings for a coupon
// by a single customer email, excluding one booking id.
func (r *BookingRepository) CountCompletedByCouponAndEmail(couponID int, email string, excludeBookingID int) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM bookings
		WHERE coupon_id = $1 AND customer_email = $2 AND status = 'completed' AND id != $3`,
		couponID, email, excludeBookingID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count coupon uses by email: %w", err)
	}
	return count, nil
}

// GetExpiredPaymentPending retrieves payment-pending bookings older than
// the checkout session TTL, with their selections.
func (r *BookingRepository) GetExpiredPaymentPending(ttl time.Duration) ([]*models.Booking, error) {
	cutoff := time.Now().Add(-ttl)

	rows, err := r.db.Query(`
		SELECT id, booking_number, customer_name, customer_email, customer_phone, original_amount, discount_amount, final_amount, coupon_id, status, issued_by, created_at, updated_at
		FROM bookings
		WHERE status = 'payment_pending' AND created_at < $1
		ORDER BY created_at`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking := &models.Booking{}
		err := rows.Scan(
			&booking.ID,
			&booking.BookingNumber,
			&booking.CustomerName,
			&booking.CustomerEmail,
			&booking.CustomerPhone,
			&booking.OriginalAmount,
			&booking.DiscountAmount,
			&booking.FinalAmount,
			&booking.CouponID,
			&booking.Status,
			&booking.IssuedBy,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}

	for _, booking := range bookings {
		items, err := getBookingItems(r.db, booking.ID)
		if err != nil {
			return nil, err
		}
		booking.Items = items
	}

	return bookings, nil
}

// CancelWithRelease cancels a booking and returns its reserved stock in
// one transaction. The status guard makes it idempotent: a booking that
// already left the reservation-holding states is left untouched.
func (r *BookingRepository) CancelWithRelease(id int, status models.BookingStatus) error {
	if status != models.BookingCancelled && status != models.BookingRejected {
		return fmt.Errorf("invalid terminal status %q for cancellation", status)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the booking row so a concurrent completion cannot race the
	// stock release.
	var current models.BookingStatus
	err = tx.QueryRow("SELECT status FROM bookings WHERE id = $1 FOR UPDATE", id).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ErrBookingNotFound
		}
		return fmt.Errorf("failed to lock booking: %w", err)
	}

	switch current {
	case models.BookingPending, models.BookingVerified, models.BookingPaymentPending:
		// Still holds a reservation
	default:
		return nil
	}

	items, err := getBookingItems(tx, id)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := releaseStockTx(tx, item.TicketTypeID, item.Quantity); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`
		UPDATE bookings
		SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking cancellation: %w", err)
	}

	return nil
}
