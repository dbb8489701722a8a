package services

import (
	"time"

	"github.com/shopspring/decimal"

	"ticketing-engine/internal/models"
)

// CouponService validates coupons and computes discounts.
type CouponService struct{}

// NewCouponService creates a new coupon service
func NewCouponService() *CouponService {
	return &CouponService{}
}

// Validate runs the rejection checks in a fixed order and stops at the
// first failure: active flag, validity window start, validity window
// end, minimum order amount, global usage cap, per-customer usage cap.
// The usage counts must be derived from completed bookings by the
// caller; this function never trusts the cached counter.
func (s *CouponService) Validate(coupon *models.Coupon, orderAmount, usesGlobal, usesByEmail int, now time.Time) error {
	if !coupon.Active {
		return &models.CouponRejectedError{Code: coupon.Code, Reason: models.CouponReasonInactive}
	}

	if now.Before(coupon.ValidFrom) {
		return &models.CouponRejectedError{Code: coupon.Code, Reason: models.CouponReasonNotStarted}
	}

	if coupon.ValidTo != nil && now.After(*coupon.ValidTo) {
		return &models.CouponRejectedError{Code: coupon.Code, Reason: models.CouponReasonExpired}
	}

	if coupon.MinOrderAmount != nil && orderAmount < *coupon.MinOrderAmount {
		return &models.CouponRejectedError{Code: coupon.Code, Reason: models.CouponReasonMinOrder}
	}

	if coupon.MaxUses != nil && usesGlobal >= *coupon.MaxUses {
		return &models.CouponRejectedError{Code: coupon.Code, Reason: models.CouponReasonMaxUses}
	}

	if coupon.MaxUsesPerUser != nil && usesByEmail >= *coupon.MaxUsesPerUser {
		return &models.CouponRejectedError{Code: coupon.Code, Reason: models.CouponReasonMaxUsesByUser}
	}

	return nil
}

// Discount computes the discount a coupon takes off an order amount in
// minor units. Percentage discounts round half up; the result is capped
// at the order amount so the final total never goes negative.
func (s *CouponService) Discount(coupon *models.Coupon, orderAmount int) int {
	var discount int

	switch coupon.Kind {
	case models.DiscountPercentage:
		d := decimal.NewFromInt(int64(orderAmount)).
			Mul(decimal.NewFromInt(int64(coupon.Value))).
			DivRound(decimal.NewFromInt(100), 0)
		discount = int(d.IntPart())
	case models.DiscountFixedAmount:
		discount = coupon.Value
	}

	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}

	return discount
}
