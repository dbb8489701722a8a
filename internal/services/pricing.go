package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"ticketing-engine/internal/models"
)

// PricingService computes authoritative prices for ticket selections.
// All amounts are integer minor currency units.
type PricingService struct{}

// NewPricingService creates a new pricing service
func NewPricingService() *PricingService {
	return &PricingService{}
}

// PriceQuote is the result of pricing a quantity of one ticket type.
type PriceQuote struct {
	Quantity    int                 `json:"quantity"`
	UnitPrice   int                 `json:"unit_price"`
	TotalPrice  int                 `json:"total_price"`
	AppliedTier *models.PricingTier `json:"applied_tier,omitempty"`
}

// ComputePrice prices qty units of a ticket type without consulting
// stock or per-order limits. This is the issuance-time recompute: the
// reservation already holds the stock, so only the price matters.
//
// Tiered types evaluate each tier the quantity can fill: complete
// bundles at the bundle price, any remainder at the flat unit price.
// Exactly one tier is applied, the one yielding the cheapest derived
// unit price; when no tier beats the flat price the whole quantity is
// priced flat. The derived unit price is the total divided by the
// quantity, rounded half up.
func (s *PricingService) ComputePrice(tt *models.TicketType, qty int) (*PriceQuote, error) {
	if qty <= 0 {
		return nil, models.ErrInvalidQuantity
	}

	quote := &PriceQuote{
		Quantity:   qty,
		UnitPrice:  tt.UnitPrice,
		TotalPrice: tt.UnitPrice * qty,
	}

	if !tt.IsTiered() {
		return quote, nil
	}

	tiers := make([]*models.PricingTier, len(tt.Tiers))
	copy(tiers, tt.Tiers)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].Size > tiers[j].Size
	})

	for _, tier := range tiers {
		if qty < tier.Size {
			continue
		}

		bundles := qty / tier.Size
		remainder := qty % tier.Size
		total := bundles*tier.BundlePrice + remainder*tt.UnitPrice
		unit := roundedUnitPrice(total, qty)

		if unit < quote.UnitPrice {
			quote.UnitPrice = unit
			quote.TotalPrice = total
			quote.AppliedTier = tier
		}
	}

	return quote, nil
}

// QuoteSelection prices qty units for a new booking: the ticket type
// must be active, the quantity within its per-order limits, and enough
// stock available. The availability read here is advisory; the guarded
// reservation is what actually prevents overselling.
func (s *PricingService) QuoteSelection(tt *models.TicketType, qty int) (*PriceQuote, error) {
	if !tt.Active {
		return nil, models.ErrNotEligible
	}

	if !tt.QuantityAllowed(qty) {
		return nil, models.ErrInvalidQuantity
	}

	if tt.Available < qty {
		return nil, models.ErrInsufficientStock
	}

	return s.ComputePrice(tt, qty)
}

// roundedUnitPrice divides total by qty in minor units, rounding half
// up. 6000 / 7 is 857.14..., so the derived unit price is 857; the
// stored total, not unit x qty, stays the billable amount.
func roundedUnitPrice(total, qty int) int {
	unit := decimal.NewFromInt(int64(total)).
		DivRound(decimal.NewFromInt(int64(qty)), 0)
	return int(unit.IntPart())
}
