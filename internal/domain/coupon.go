package domain

import "time"

// Coupon is a redeemable discount code. Used is a monotonically increasing
// counter bounded by UsageLimit; it is incremented only by a successful order
// redemption.
type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue int64
	ExpiresAt     time.Time
	UsageLimit    int64
	Used          int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DiscountType enumerates the supported coupon discount kinds.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Valid reports whether the discount type is one of the supported kinds.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// Expired reports whether the coupon's expiration timestamp has passed.
func (c Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

// Exhausted reports whether the usage counter has reached its limit.
func (c Coupon) Exhausted() bool {
	return c.Used >= c.UsageLimit
}

// Discount returns the discount in minor units for the given amount.
// Percentage discounts truncate towards zero; fixed discounts are capped at
// the amount so a discounted total never goes negative.
func (c Coupon) Discount(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	switch c.DiscountType {
	case DiscountPercentage:
		return amount * c.DiscountValue / 100
	case DiscountFixedAmount:
		if c.DiscountValue > amount {
			return amount
		}
		return c.DiscountValue
	default:
		return 0
	}
}
