package repositories

import (
	"database/sql"
	"fmt"

	"ticketing-engine/internal/models"
)

// InventoryRepository handles stock counter operations on ticket types.
// Every transition is a single conditional UPDATE so concurrent movements
// can never drive a counter negative.
type InventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Reserve moves qty units from available to reserved.
func (r *InventoryRepository) Reserve(ticketTypeID, qty int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := reserveStockTx(tx, ticketTypeID, qty); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	return nil
}

// Release moves qty units from reserved back to available.
func (r *InventoryRepository) Release(ticketTypeID, qty int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := releaseStockTx(tx, ticketTypeID, qty); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit release: %w", err)
	}

	return nil
}

// CommitSale moves qty units from reserved to sold.
func (r *InventoryRepository) CommitSale(ticketTypeID, qty int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := commitStockTx(tx, ticketTypeID, qty); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}

	return nil
}

// GetCounters retrieves the current stock counters for a ticket type.
func (r *InventoryRepository) GetCounters(ticketTypeID int) (*models.TicketType, error) {
	query := `
		SELECT id, name, total_stock, available, reserved, sold
		FROM ticket_types
		WHERE id = $1`

	tt := &models.TicketType{}
	err := r.db.QueryRow(query, ticketTypeID).Scan(
		&tt.ID,
		&tt.Name,
		&tt.TotalStock,
		&tt.Available,
		&tt.Reserved,
		&tt.Sold,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to get stock counters: %w", err)
	}

	return tt, nil
}

// VerifyConservation checks that available + reserved + sold still equals
// total stock for a ticket type.
func (r *InventoryRepository) VerifyConservation(ticketTypeID int) error {
	tt, err := r.GetCounters(ticketTypeID)
	if err != nil {
		return err
	}

	return tt.CheckConservation()
}

// reserveStockTx moves units from available to reserved within tx. The
// availability guard lives in the WHERE clause, so a concurrent reserve
// can never oversell.
func reserveStockTx(tx *sql.Tx, ticketTypeID, qty int) error {
	if qty <= 0 {
		return models.ErrInvalidQuantity
	}

	result, err := tx.Exec(`
		UPDATE ticket_types
		SET available = available - $2, reserved = reserved + $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND active = true AND available >= $2`,
		ticketTypeID, qty)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check reservation result: %w", err)
	}

	if rows == 0 {
		return classifyReserveFailure(tx, ticketTypeID)
	}

	return nil
}

// classifyReserveFailure distinguishes the reasons a guarded reserve
// matched no row.
func classifyReserveFailure(tx *sql.Tx, ticketTypeID int) error {
	var active bool
	err := tx.QueryRow("SELECT active FROM ticket_types WHERE id = $1", ticketTypeID).Scan(&active)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ErrTicketTypeNotFound
		}
		return fmt.Errorf("failed to inspect ticket type: %w", err)
	}

	if !active {
		return models.ErrNotEligible
	}

	return models.ErrInsufficientStock
}

// releaseStockTx moves units from reserved back to available within tx.
// Releasing more than is reserved means the counters are already
// desynchronized, which is fatal.
func releaseStockTx(tx *sql.Tx, ticketTypeID, qty int) error {
	if qty <= 0 {
		return models.ErrInvalidQuantity
	}

	result, err := tx.Exec(`
		UPDATE ticket_types
		SET reserved = reserved - $2, available = available + $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND reserved >= $2`,
		ticketTypeID, qty)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check release result: %w", err)
	}

	if rows == 0 {
		return &models.InvariantViolationError{
			TicketTypeID: ticketTypeID,
			Detail:       fmt.Sprintf("cannot release %d units: reserved count too low", qty),
		}
	}

	return nil
}

// commitStockTx moves units from reserved to sold within tx. The booking
// holding the reservation guarantees reserved >= qty; anything else is a
// ledger bug.
func commitStockTx(tx *sql.Tx, ticketTypeID, qty int) error {
	if qty <= 0 {
		return models.ErrInvalidQuantity
	}

	result, err := tx.Exec(`
		UPDATE ticket_types
		SET reserved = reserved - $2, sold = sold + $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND reserved >= $2`,
		ticketTypeID, qty)
	if err != nil {
		return fmt.Errorf("failed to commit stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check commit result: %w", err)
	}

	if rows == 0 {
		return &models.InvariantViolationError{
			TicketTypeID: ticketTypeID,
			Detail:       fmt.Sprintf("cannot commit %d units: reserved count too low", qty),
		}
	}

	return nil
}
