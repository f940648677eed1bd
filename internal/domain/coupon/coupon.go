package coupon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage reduces the products price by a percentage.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed reduces the products price by a fixed amount, capped at
	// the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountShipping reduces the shipping fee, capped at the fee itself.
	DiscountShipping DiscountType = "shipping"
)

// Coupon is a discount code. ShopID is nil for platform-wide coupons and set
// for coupons that only apply to a single shop's sub-order.
type Coupon struct {
	ID          int64
	Code        string
	ShopID      *int64
	Type        DiscountType
	Value       decimal.Decimal
	MinSpend    decimal.Decimal
	MinItems    int
	Description string
	ExpiresAt   *time.Time
}

// CartState summarizes the part of the cart a coupon is evaluated against:
// the whole cart for platform-wide coupons, a single shop group otherwise.
type CartState struct {
	TotalPrice    decimal.Decimal
	ShippingFee   decimal.Decimal
	TotalQuantity int
}

// Discount is the outcome of applying a coupon: a products-price reduction
// and/or a shipping-fee reduction.
type Discount struct {
	Value         decimal.Decimal
	ShippingValue decimal.Decimal
}

// Repository provides coupon lookup and per-user usage tracking. Usage rows
// are unique per (user, coupon) so that marking stays idempotent against
// double submission.
type Repository interface {
	FindByCodes(ctx context.Context, codes []string) ([]Coupon, error)
	HasUserUsed(ctx context.Context, userID, couponID int64) (bool, error)
	MarkUsed(ctx context.Context, userID, couponID int64) error
}

// Applier computes the discount a coupon yields for a given cart state.
// A nil Discount (with nil error) means the coupon does not apply.
type Applier interface {
	Apply(ctx context.Context, c Coupon, state CartState, userID int64) (*Discount, error)
}
