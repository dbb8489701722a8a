package models

import (
	"errors"
	"strings"
	"time"
)

// DiscountKind is percentage or fixed amount.
type DiscountKind string

const (
	DiscountPercentage  DiscountKind = "percentage"
	DiscountFixedAmount DiscountKind = "fixed_amount"
)

// Coupon is an admin-created discount code. Actual usage is derived
// from completed bookings referencing the coupon; CurrentUses is a
// cached display hint and is never used as an enforcement gate.
type Coupon struct {
	ID             int          `json:"id" db:"id"`
	Code           string       `json:"code" db:"code"`
	Kind           DiscountKind `json:"kind" db:"kind"`
	Value          int          `json:"value" db:"value"` // Percent or minor units depending on kind
	MinOrderAmount *int         `json:"min_order_amount,omitempty" db:"min_order_amount"`
	MaxUses        *int         `json:"max_uses,omitempty" db:"max_uses"`
	MaxUsesPerUser *int         `json:"max_uses_per_user,omitempty" db:"max_uses_per_user"`
	ValidFrom      time.Time    `json:"valid_from" db:"valid_from"`
	ValidTo        *time.Time   `json:"valid_to,omitempty" db:"valid_to"`
	Audience       string       `json:"audience,omitempty" db:"audience"`
	Active         bool         `json:"active" db:"active"`
	CurrentUses    int          `json:"current_uses" db:"current_uses"` // Display hint only
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

// CouponCreateRequest represents the data needed to create a coupon.
type CouponCreateRequest struct {
	Code           string       `json:"code"`
	Kind           DiscountKind `json:"kind"`
	Value          int          `json:"value"`
	MinOrderAmount *int         `json:"min_order_amount"`
	MaxUses        *int         `json:"max_uses"`
	MaxUsesPerUser *int         `json:"max_uses_per_user"`
	ValidFrom      time.Time    `json:"valid_from"`
	ValidTo        *time.Time   `json:"valid_to"`
	Audience       string       `json:"audience"`
}

// NormalizeCouponCode case-normalizes a coupon code for lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate validates coupon creation data.
func (req *CouponCreateRequest) Validate() error {
	if NormalizeCouponCode(req.Code) == "" {
		return errors.New("coupon code is required")
	}

	if len(req.Code) > 64 {
		return errors.New("coupon code must be less than 64 characters")
	}

	switch req.Kind {
	case DiscountPercentage:
		if req.Value < 1 || req.Value > 100 {
			return errors.New("percentage discount must be between 1 and 100")
		}
	case DiscountFixedAmount:
		if req.Value <= 0 {
			return errors.New("fixed discount must be greater than 0")
		}
	default:
		return errors.New("invalid discount kind")
	}

	if req.MinOrderAmount != nil && *req.MinOrderAmount < 0 {
		return errors.New("minimum order amount cannot be negative")
	}

	if req.MaxUses != nil && *req.MaxUses < 1 {
		return errors.New("max uses must be at least 1")
	}

	if req.MaxUsesPerUser != nil && *req.MaxUsesPerUser < 1 {
		return errors.New("max uses per user must be at least 1")
	}

	if req.ValidFrom.IsZero() {
		return errors.New("valid from date is required")
	}

	if req.ValidTo != nil && req.ValidTo.Before(req.ValidFrom) {
		return errors.New("valid to date must be after valid from date")
	}

	return nil
}

// WithinWindow reports whether now falls inside the validity window.
func (c *Coupon) WithinWindow(now time.Time) bool {
	if now.Before(c.ValidFrom) {
		return false
	}

	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return false
	}

	return true
}
