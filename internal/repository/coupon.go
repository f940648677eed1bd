package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/coupon"
)

const (
	findCouponsByCodesSQL = `SELECT id, code, shop_id, discount_type, value, min_spend,
		min_items, description, expires_at
		FROM coupons WHERE UPPER(code) = ANY($1) AND active = TRUE`

	hasUserUsedCouponSQL = `SELECT EXISTS (
		SELECT 1 FROM user_coupons WHERE user_id = $1 AND coupon_id = $2)`

	markCouponUsedSQL = `INSERT INTO user_coupons (user_id, coupon_id, used_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, coupon_id) DO NOTHING`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCodes bulk-loads active coupons by code (case-insensitive). Unknown
// codes are simply absent from the result.
func (r *CouponRepository) FindByCodes(ctx context.Context, codes []string) ([]coupon.Coupon, error) {
	upper := make([]string, len(codes))
	for i, c := range codes {
		upper[i] = strings.ToUpper(c)
	}

	rows, err := dbFrom(ctx, r.pool).Query(ctx, findCouponsByCodesSQL, upper)
	if err != nil {
		return nil, fmt.Errorf("finding coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("finding coupons: %w", err)
	}
	return coupons, nil
}

// HasUserUsed reports whether the user already consumed the coupon.
func (r *CouponRepository) HasUserUsed(ctx context.Context, userID, couponID int64) (bool, error) {
	var used bool
	err := dbFrom(ctx, r.pool).QueryRow(ctx, hasUserUsedCouponSQL, userID, couponID).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("checking coupon usage: %w", err)
	}
	return used, nil
}

// MarkUsed records the usage. The (user, coupon) pair is unique, so a replay
// of the same checkout is a no-op.
func (r *CouponRepository) MarkUsed(ctx context.Context, userID, couponID int64) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, markCouponUsedSQL, userID, couponID, time.Now())
	if err != nil {
		return fmt.Errorf("marking coupon used: %w", err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		minItems     int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.ShopID, &discountType, &c.Value, &c.MinSpend,
		&minItems, &c.Description, &c.ExpiresAt,
	)
	c.Type = coupon.DiscountType(discountType)
	c.MinItems = int(minItems)
	return c, err
}
