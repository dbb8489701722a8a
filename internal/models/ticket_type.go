package models

import (
	"errors"
	"strings"
	"time"
)

// PricingMode determines how a ticket type is priced.
type PricingMode string

const (
	PricingFlat   PricingMode = "flat"
	PricingTiered PricingMode = "tiered"
)

// TicketType represents a purchasable ticket category with tiered-priced
// finite stock. Stock is tracked as three counters that must always sum
// to the total.
type TicketType struct {
	ID          int         `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	UnitPrice   int         `json:"unit_price" db:"unit_price"` // Minor currency units
	PricingMode PricingMode `json:"pricing_mode" db:"pricing_mode"`
	TotalStock  int         `json:"total_stock" db:"total_stock"`
	Available   int         `json:"available" db:"available"`
	Reserved    int         `json:"reserved" db:"reserved"`
	Sold        int         `json:"sold" db:"sold"`
	MinPerOrder int         `json:"min_per_order" db:"min_per_order"`
	MaxPerOrder int         `json:"max_per_order" db:"max_per_order"`
	Active      bool        `json:"active" db:"active"`
	Audience    string      `json:"audience,omitempty" db:"audience"` // Empty means unrestricted
	Tiers       []*PricingTier `json:"tiers,omitempty"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// PricingTier is a fixed bundle size/price pairing for a TIERED ticket
// type. Tiers are immutable once an issued ticket references them.
type PricingTier struct {
	ID           int    `json:"id" db:"id"`
	TicketTypeID int    `json:"ticket_type_id" db:"ticket_type_id"`
	Name         string `json:"name" db:"name"`
	Size         int    `json:"size" db:"size"` // Ticket count per bundle
	BundlePrice  int    `json:"bundle_price" db:"bundle_price"`
	SortOrder    int    `json:"sort_order" db:"sort_order"`
}

// TicketTypeCreateRequest represents the data needed to create a ticket type.
type TicketTypeCreateRequest struct {
	Name        string                     `json:"name"`
	UnitPrice   int                        `json:"unit_price"`
	PricingMode PricingMode                `json:"pricing_mode"`
	TotalStock  int                        `json:"total_stock"`
	MinPerOrder int                        `json:"min_per_order"`
	MaxPerOrder int                        `json:"max_per_order"`
	Audience    string                     `json:"audience"`
	Tiers       []PricingTierCreateRequest `json:"tiers"`
}

// PricingTierCreateRequest represents a tier within a ticket type creation.
type PricingTierCreateRequest struct {
	Name        string `json:"name"`
	Size        int    `json:"size"`
	BundlePrice int    `json:"bundle_price"`
	SortOrder   int    `json:"sort_order"`
}

// Validate validates ticket type creation data.
func (req *TicketTypeCreateRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("ticket type name is required")
	}

	if len(req.Name) > 100 {
		return errors.New("ticket type name must be less than 100 characters")
	}

	if req.UnitPrice < 0 {
		return errors.New("unit price cannot be negative")
	}

	if req.TotalStock <= 0 {
		return errors.New("total stock must be greater than 0")
	}

	if req.MinPerOrder < 1 {
		return errors.New("min per order must be at least 1")
	}

	if req.MaxPerOrder < req.MinPerOrder {
		return errors.New("max per order cannot be less than min per order")
	}

	switch req.PricingMode {
	case PricingFlat:
		if len(req.Tiers) > 0 {
			return errors.New("flat pricing cannot declare tiers")
		}
	case PricingTiered:
		if len(req.Tiers) == 0 {
			return errors.New("tiered pricing requires at least one tier")
		}
		for _, tier := range req.Tiers {
			if err := tier.Validate(); err != nil {
				return err
			}
		}
	default:
		return errors.New("invalid pricing mode")
	}

	return nil
}

// Validate validates a pricing tier.
func (req *PricingTierCreateRequest) Validate() error {
	if req.Size < 2 {
		return errors.New("tier size must be at least 2")
	}

	if req.BundlePrice < 0 {
		return errors.New("tier bundle price cannot be negative")
	}

	return nil
}

// CheckConservation verifies available + reserved + sold == total with
// all counters non-negative. A failure here is an InvariantViolationError.
func (tt *TicketType) CheckConservation() error {
	if tt.Available < 0 || tt.Reserved < 0 || tt.Sold < 0 {
		return &InvariantViolationError{
			TicketTypeID: tt.ID,
			Detail:       "negative stock counter",
		}
	}

	if tt.Available+tt.Reserved+tt.Sold != tt.TotalStock {
		return &InvariantViolationError{
			TicketTypeID: tt.ID,
			Detail:       "available + reserved + sold does not equal total",
		}
	}

	return nil
}

// IsTiered returns true if the ticket type uses bundle pricing.
func (tt *TicketType) IsTiered() bool {
	return tt.PricingMode == PricingTiered && len(tt.Tiers) > 0
}

// IsSoldOut returns true if no stock remains available.
func (tt *TicketType) IsSoldOut() bool {
	return tt.Available <= 0
}

// QuantityAllowed returns true if qty falls within the per-order limits.
func (tt *TicketType) QuantityAllowed(qty int) bool {
	return qty >= tt.MinPerOrder && qty <= tt.MaxPerOrder
}
