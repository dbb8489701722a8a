package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ticketing-engine/internal/models"
)

// CouponRepository handles coupon data operations
type CouponRepository struct {
	db *sql.DB
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

const couponColumns = `id, code, kind, value, min_order_amount, max_uses, max_uses_per_user, valid_from, valid_to, audience, active, current_uses, created_at`

// Create persists a new coupon. The code is stored normalized.
func (r *CouponRepository) Create(req *models.CouponCreateRequest) (*models.Coupon, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO coupons (code, kind, value, min_order_amount, max_uses, max_uses_per_user, valid_from, valid_to, audience, active, current_uses, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, 0, $10)
		RETURNING ` + couponColumns

	coupon := &models.Coupon{}
	err := r.db.QueryRow(
		query,
		models.NormalizeCouponCode(req.Code),
		req.Kind,
		req.Value,
		req.MinOrderAmount,
		req.MaxUses,
		req.MaxUsesPerUser,
		req.ValidFrom,
		req.ValidTo,
		req.Audience,
		time.Now(),
	).Scan(couponScanTargets(coupon)...)

	if err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	return coupon, nil
}

// GetByCode retrieves a coupon by its normalized code.
func (r *CouponRepository) GetByCode(code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon := &models.Coupon{}
	err := r.db.QueryRow(query, models.NormalizeCouponCode(code)).Scan(couponScanTargets(coupon)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	return coupon, nil
}

// GetByID retrieves a coupon by id.
func (r *CouponRepository) GetByID(id int) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	coupon := &models.Coupon{}
	err := r.db.QueryRow(query, id).Scan(couponScanTargets(coupon)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	return coupon, nil
}

// List retrieves all coupons.
func (r *CouponRepository) List() ([]*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*models.Coupon
	for rows.Next() {
		coupon := &models.Coupon{}
		if err := rows.Scan(couponScanTargets(coupon)...); err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}

	return coupons, rows.Err()
}

// SetActive toggles whether a coupon can be redeemed.
func (r *CouponRepository) SetActive(id int, active bool) error {
	result, err := r.db.Exec("UPDATE coupons SET active = $2 WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("failed to update coupon: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if rows == 0 {
		return models.ErrCouponNotFound
	}

	return nil
}

// CouponUsage pairs a coupon with its derived consumption count.
type CouponUsage struct {
	Coupon        *models.Coupon `json:"coupon"`
	CompletedUses int            `json:"completed_uses"`
}

// UsageReport returns each coupon with the number of completed bookings
// that consumed it. The derived count, not the cached one, is the
// authoritative figure.
func (r *CouponRepository) UsageReport() ([]*CouponUsage, error) {
	query := `
		SELECT ` + prefixColumns("c", couponColumns) + `, COUNT(b.id) AS completed_uses
		FROM coupons c
		LEFT JOIN bookings b ON b.coupon_id = c.id AND b.status = 'completed'
		GROUP BY c.id
		ORDER BY c.id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to build coupon usage report: %w", err)
	}
	defer rows.Close()

	var report []*CouponUsage
	for rows.Next() {
		usage := &CouponUsage{Coupon: &models.Coupon{}}
		targets := append(couponScanTargets(usage.Coupon), &usage.CompletedUses)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan coupon usage: %w", err)
		}
		report = append(report, usage)
	}

	return report, rows.Err()
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}

func couponScanTargets(c *models.Coupon) []interface{} {
	return []interface{}{
		&c.ID,
		&c.Code,
		&c.Kind,
		&c.Value,
		&c.MinOrderAmount,
		&c.MaxUses,
		&c.MaxUsesPerUser,
		&c.ValidFrom,
		&c.ValidTo,
		&c.Audience,
		&c.Active,
		&c.CurrentUses,
		&c.CreatedAt,
	}
}
