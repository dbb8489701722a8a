package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"ticketing-engine/internal/models"
)

// TicketTypeRepository handles ticket type data operations
type TicketTypeRepository struct {
	db *sql.DB
}

// NewTicketTypeRepository creates a new ticket type repository
func NewTicketTypeRepository(db *sql.DB) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

// Create creates a ticket type together with its pricing tiers in one
// transaction. The stock counters start fully available.
func (r *TicketTypeRepository) Create(req *models.TicketTypeCreateRequest) (*models.TicketType, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO ticket_types (name, unit_price, pricing_mode, total_stock, available, reserved, sold, min_per_order, max_per_order, active, audience, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, 0, 0, $5, $6, true, $7, $8, $8)
		RETURNING id, name, unit_price, pricing_mode, total_stock, available, reserved, sold, min_per_order, max_per_order, active, audience, created_at, updated_at`

	now := time.Now()
	tt := &models.TicketType{}

	err = tx.QueryRow(
		query,
		req.Name,
		req.UnitPrice,
		req.PricingMode,
		req.TotalStock,
		req.MinPerOrder,
		req.MaxPerOrder,
		req.Audience,
		now,
	).Scan(
		&tt.ID,
		&tt.Name,
		&tt.UnitPrice,
		&tt.PricingMode,
		&tt.TotalStock,
		&tt.Available,
		&tt.Reserved,
		&tt.Sold,
		&tt.MinPerOrder,
		&tt.MaxPerOrder,
		&tt.Active,
		&tt.Audience,
		&tt.CreatedAt,
		&tt.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}

	for _, tierReq := range req.Tiers {
		tier := &models.PricingTier{}
		err = tx.QueryRow(`
			INSERT INTO pricing_tiers (ticket_type_id, name, size, bundle_price, sort_order)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, ticket_type_id, name, size, bundle_price, sort_order`,
			tt.ID, tierReq.Name, tierReq.Size, tierReq.BundlePrice, tierReq.SortOrder,
		).Scan(
			&tier.ID,
			&tier.TicketTypeID,
			&tier.Name,
			&tier.Size,
			&tier.BundlePrice,
			&tier.SortOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create pricing tier: %w", err)
		}
		tt.Tiers = append(tt.Tiers, tier)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ticket type creation: %w", err)
	}

	return tt, nil
}

// GetByID retrieves a ticket type with its pricing tiers.
func (r *TicketTypeRepository) GetByID(id int) (*models.TicketType, error) {
	query := `
		SELECT id, name, unit_price, pricing_mode, total_stock, available, reserved, sold, min_per_order, max_per_order, active, audience, created_at, updated_at
		FROM ticket_types
		WHERE id = $1`

	tt := &models.TicketType{}
	err := r.db.QueryRow(query, id).Scan(
		&tt.ID,
		&tt.Name,
		&tt.UnitPrice,
		&tt.PricingMode,
		&tt.TotalStock,
		&tt.Available,
		&tt.Reserved,
		&tt.Sold,
		&tt.MinPerOrder,
		&tt.MaxPerOrder,
		&tt.Active,
		&tt.Audience,
		&tt.CreatedAt,
		&tt.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}

	tiers, err := r.getTiers(id)
	if err != nil {
		return nil, err
	}
	tt.Tiers = tiers

	return tt, nil
}

// List retrieves ticket types, optionally restricted to active ones.
func (r *TicketTypeRepository) List(activeOnly bool) ([]*models.TicketType, error) {
	query := `
		SELECT id, name, unit_price, pricing_mode, total_stock, available, reserved, sold, min_per_order, max_per_order, active, audience, created_at, updated_at
		FROM ticket_types`
	if activeOnly {
		query += " WHERE active = true"
	}
	query += " ORDER BY id"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	defer rows.Close()

	var ticketTypes []*models.TicketType
	for rows.Next() {
		tt := &models.TicketType{}
		err := rows.Scan(
			&tt.ID,
			&tt.Name,
			&tt.UnitPrice,
			&tt.PricingMode,
			&tt.TotalStock,
			&tt.Available,
			&tt.Reserved,
			&tt.Sold,
			&tt.MinPerOrder,
			&tt.MaxPerOrder,
			&tt.Active,
			&tt.Audience,
			&tt.CreatedAt,
			&tt.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		ticketTypes = append(ticketTypes, tt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket types: %w", err)
	}

	for _, tt := range ticketTypes {
		tiers, err := r.getTiers(tt.ID)
		if err != nil {
			return nil, err
		}
		tt.Tiers = tiers
	}

	return ticketTypes, nil
}

// SetActive toggles whether a ticket type can be booked.
func (r *TicketTypeRepository) SetActive(id int, active bool) error {
	result, err := r.db.Exec(`
		UPDATE ticket_types
		SET active = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("failed to update ticket type: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if rows == 0 {
		return models.ErrTicketTypeNotFound
	}

	return nil
}

// getTiers loads the pricing tiers for a ticket type.
func (r *TicketTypeRepository) getTiers(ticketTypeID int) ([]*models.PricingTier, error) {
	rows, err := r.db.Query(`
		SELECT id, ticket_type_id, name, size, bundle_price, sort_order
		FROM pricing_tiers
		WHERE ticket_type_id = $1
		ORDER BY sort_order, size`,
		ticketTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing tiers: %w", err)
	}
	defer rows.Close()

	var tiers []*models.PricingTier
	for rows.Next() {
		tier := &models.PricingTier{}
		err := rows.Scan(
			&tier.ID,
			&tier.TicketTypeID,
			&tier.Name,
			&tier.Size,
			&tier.BundlePrice,
			&tier.SortOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pricing tier: %w", err)
		}
		tiers = append(tiers, tier)
	}

	return tiers, rows.Err()
}
