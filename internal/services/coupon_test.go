package services

import (
	"errors"
	"testing"
	"time"

	"ticketing-engine/internal/models"
)

func testCoupon() *models.Coupon {
	return &models.Coupon{
		ID:        1,
		Code:      "LAUNCH20",
		Kind:      models.DiscountPercentage,
		Value:     20,
		ValidFrom: time.Now().Add(-time.Hour),
		Active:    true,
	}
}

func rejectionReason(t *testing.T, err error) string {
	t.Helper()
	var rejected *models.CouponRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected CouponRejectedError, got %v", err)
	}
	return rejected.Reason
}

func TestCouponValidate(t *testing.T) {
	s := NewCouponService()
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		if err := s.Validate(testCoupon(), 5000, 0, 0, now); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	t.Run("inactive", func(t *testing.T) {
		c := testCoupon()
		c.Active = false
		err := s.Validate(c, 5000, 0, 0, now)
		if got := rejectionReason(t, err); got != models.CouponReasonInactive {
			t.Errorf("reason = %q, want %q", got, models.CouponReasonInactive)
		}
	})

	t.Run("not started", func(t *testing.T) {
		c := testCoupon()
		c.ValidFrom = now.Add(time.Hour)
		err := s.Validate(c, 5000, 0, 0, now)
		if got := rejectionReason(t, err); got != models.CouponReasonNotStarted {
			t.Errorf("reason = %q, want %q", got, models.CouponReasonNotStarted)
		}
	})

	t.Run("expired", func(t *testing.T) {
		c := testCoupon()
		end := now.Add(-time.Minute)
		c.ValidTo = &end
		err := s.Validate(c, 5000, 0, 0, now)
		if got := rejectionReason(t, err); got != models.CouponReasonExpired {
			t.Errorf("reason = %q, want %q", got, models.CouponReasonExpired)
		}
	})

	t.Run("below min order", func(t *testing.T) {
		c := testCoupon()
		min := 10000
		c.MinOrderAmount = &min
		err := s.Validate(c, 5000, 0, 0, now)
		if got := rejectionReason(t, err); got != models.CouponReasonMinOrder {
			t.Errorf("reason = %q, want %q", got, models.CouponReasonMinOrder)
		}
	})

	t.Run("max uses reached", func(t *testing.T) {
		c := testCoupon()
		max := 1
		c.MaxUses = &max
		err := s.Validate(c, 5000, 1, 0, now)
		if got := rejectionReason(t, err); got != models.CouponReasonMaxUses {
			t.Errorf("reason = %q, want %q", got, models.CouponReasonMaxUses)
		}
	})

	t.Run("max uses per user reached", func(t *testing.T) {
		c := testCoupon()
		max := 2
		c.MaxUsesPerUser = &max
		err := s.Validate(c, 5000, 0, 2, now)
		if got := rejectionReason(t, err); got != models.CouponReasonMaxUsesByUser {
			t.Errorf("reason = %q, want %q", got, models.CouponReasonMaxUsesByUser)
		}
	})

	t.Run("first failing check wins", func(t *testing.T) {
		// Inactive and expired: the active check runs first
		c := testCoupon()
		c.Active = false
		end := now.Add(-time.Minute)
		c.ValidTo = &end
		err := s.Validate(c, 5000, 0, 0, now)
		if got := rejectionReason(t, err); got != models.CouponReasonInactive {
			t.Errorf("reason = %q, want %q", got, models.CouponReasonInactive)
		}
	})
}

func TestCouponDiscount(t *testing.T) {
	s := NewCouponService()

	tests := []struct {
		name        string
		kind        models.DiscountKind
		value       int
		orderAmount int
		want        int
	}{
		{"percentage", models.DiscountPercentage, 20, 5000, 1000},
		{"percentage rounds half up", models.DiscountPercentage, 15, 99, 15}, // 14.85 -> 15
		{"fixed", models.DiscountFixedAmount, 500, 5000, 500},
		{"fixed capped at order amount", models.DiscountFixedAmount, 9000, 5000, 5000},
		{"full percentage", models.DiscountPercentage, 100, 5000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Coupon{Kind: tt.kind, Value: tt.value}
			if got := s.Discount(c, tt.orderAmount); got != tt.want {
				t.Errorf("Discount() = %d, want %d", got, tt.want)
			}
		})
	}
}
