package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RuleApplier is the default Applier. It evaluates a coupon's eligibility
// constraints (expiry, minimum spend, minimum item count) against the cart
// state and computes the discount for the coupon's type.
type RuleApplier struct {
	now func() time.Time
}

// NewRuleApplier creates a RuleApplier using the real clock.
func NewRuleApplier() *RuleApplier {
	return &RuleApplier{now: time.Now}
}

// Apply returns the discount for the given coupon, or nil when the cart does
// not satisfy the coupon's constraints.
func (a *RuleApplier) Apply(_ context.Context, c Coupon, state CartState, _ int64) (*Discount, error) {
	if c.ExpiresAt != nil && a.now().After(*c.ExpiresAt) {
		return nil, nil
	}
	if c.MinItems > 0 && state.TotalQuantity < c.MinItems {
		return nil, nil
	}
	if c.MinSpend.IsPositive() && state.TotalPrice.LessThan(c.MinSpend) {
		return nil, nil
	}

	switch c.Type {
	case DiscountPercentage:
		amount := state.TotalPrice.Mul(c.Value).Div(hundred).Round(2)
		return &Discount{Value: floorAtZero(amount)}, nil
	case DiscountFixed:
		amount := decimal.Min(c.Value, state.TotalPrice)
		return &Discount{Value: floorAtZero(amount).Round(2)}, nil
	case DiscountShipping:
		amount := decimal.Min(c.Value, state.ShippingFee)
		return &Discount{ShippingValue: floorAtZero(amount).Round(2)}, nil
	default:
		return nil, errors.Errorf("unsupported discount type: %q", c.Type)
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
