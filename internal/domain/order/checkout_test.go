package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/catalog"
	"github.com/treocaynho01629/ring-bookstore/internal/domain/coupon"
)

func TestCheckout_Success(t *testing.T) {
	env := newTestEnv()
	env.catalog.shops = []catalog.Shop{testShop()}
	env.catalog.books = []catalog.Book{testBook()}

	view, err := env.svc.Checkout(context.Background(), testCheckoutRequest(), testRequestContext(), testBuyer)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, 1, env.captcha.calls)
	assert.Equal(t, 1, env.addresses.calls)
	assert.Equal(t, 1, env.receipts.saveCalls)
	assert.Equal(t, 1, env.payments.saveCalls)
	assert.Equal(t, 1, env.tx.calls)

	require.NotNil(t, env.receipts.saved)
	assert.Equal(t, testBuyer.ID, env.receipts.saved.UserID)
	assert.Equal(t, "test@example.com", env.receipts.saved.Email)
	assert.False(t, env.receipts.saved.LastModified.IsZero())

	require.NotNil(t, env.payments.saved)
	assert.Equal(t, PaymentCash, env.payments.saved.Type)
	assert.Equal(t, PaymentPending, env.payments.saved.Status)
	assert.True(t, env.receipts.saved.Total.Equal(env.payments.saved.Amount))

	require.Len(t, env.events.published, 1)
	e := env.events.published[0]
	assert.Equal(t, EventOrderCreated, e.Type)
	assert.Equal(t, env.receipts.saved.ID, e.ReceiptID)
	assert.Equal(t, testBuyer.ID, e.BuyerID)
	assert.NotEmpty(t, e.ID)
}

func TestCheckout_CaptchaFailure(t *testing.T) {
	env := newTestEnv()
	env.captcha.err = ErrInvalidCaptcha

	_, err := env.svc.Checkout(context.Background(), testCheckoutRequest(), testRequestContext(), testBuyer)
	require.ErrorIs(t, err, ErrInvalidCaptcha)

	assert.Zero(t, env.catalog.shopCalls, "captcha fails fast")
	assert.Zero(t, env.addresses.calls)
	assert.Zero(t, env.receipts.saveCalls)
}

func TestCheckout_ShopNotFound(t *testing.T) {
	env := newTestEnv()
	env.catalog.books = []catalog.Book{testBook()}

	_, err := env.svc.Checkout(context.Background(), testCheckoutRequest(), testRequestContext(), testBuyer)
	require.ErrorIs(t, err, ErrShopNotFound)

	assert.Equal(t, 1, env.captcha.calls)
	assert.Zero(t, env.addresses.calls, "catalog validation precedes the address save")
	assert.Zero(t, env.receipts.saveCalls)
	assert.Empty(t, env.events.published)
}

func TestCheckout_OutOfStock(t *testing.T) {
	env := newTestEnv()
	book := testBook()
	book.Amount = 0
	env.catalog.shops = []catalog.Shop{testShop()}
	env.catalog.books = []catalog.Book{book}

	_, err := env.svc.Checkout(context.Background(), testCheckoutRequest(), testRequestContext(), testBuyer)
	require.ErrorIs(t, err, ErrOutOfStock)

	assert.Zero(t, env.addresses.calls)
	assert.Zero(t, env.coupons.findCall, "stock guard precedes coupon validation")
	assert.Zero(t, env.receipts.saveCalls)
}

func TestCheckout_UsedCoupon(t *testing.T) {
	env := newTestEnv()
	env.catalog.shops = []catalog.Shop{testShop()}
	env.catalog.books = []catalog.Book{testBook()}
	env.coupons.coupons = []coupon.Coupon{{ID: 1, Code: "TEST"}}
	env.coupons.used[1] = true

	req := testCheckoutRequest()
	req.Coupon = "TEST"

	_, err := env.svc.Checkout(context.Background(), req, testRequestContext(), testBuyer)
	require.ErrorIs(t, err, ErrCouponExpired)

	// The address save is the documented partial commit: it happens exactly
	// once even though the coupon check aborts the checkout.
	assert.Equal(t, 1, env.addresses.calls)
	assert.Zero(t, env.receipts.saveCalls)
	assert.Empty(t, env.coupons.marked)
	assert.Empty(t, env.events.published)
}

func TestCheckout_InvalidCoupon(t *testing.T) {
	env := newTestEnv()
	env.catalog.shops = []catalog.Shop{testShop()}
	env.catalog.books = []catalog.Book{testBook()}
	env.coupons.coupons = []coupon.Coupon{{ID: 1, Code: "TEST"}}
	env.applier.discount = nil

	req := testCheckoutRequest()
	req.Coupon = "TEST"

	_, err := env.svc.Checkout(context.Background(), req, testRequestContext(), testBuyer)
	require.ErrorIs(t, err, ErrInvalidCoupon)

	assert.Equal(t, 1, env.addresses.calls)
	assert.Equal(t, 1, env.applier.calls)
	assert.Zero(t, env.receipts.saveCalls)
	assert.Empty(t, env.events.published)
}

func TestCheckout_MarksCouponUsed(t *testing.T) {
	env := newTestEnv()
	env.catalog.shops = []catalog.Shop{testShop()}
	env.catalog.books = []catalog.Book{testBook()}
	env.coupons.coupons = []coupon.Coupon{{ID: 7, Code: "SAVE5"}}
	env.applier.discount = &coupon.Discount{Value: dec("5")}

	req := testCheckoutRequest()
	req.Coupon = "SAVE5"

	_, err := env.svc.Checkout(context.Background(), req, testRequestContext(), testBuyer)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, env.coupons.marked)
}

func TestCheckout_ReceiptSaveErrorAbortsEverything(t *testing.T) {
	env := newTestEnv()
	env.catalog.shops = []catalog.Shop{testShop()}
	env.catalog.books = []catalog.Book{testBook()}
	env.receipts.saveErr = errors.New("db write failed")

	_, err := env.svc.Checkout(context.Background(), testCheckoutRequest(), testRequestContext(), testBuyer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save receipt")

	assert.Zero(t, env.payments.saveCalls)
	assert.Empty(t, env.coupons.marked)
	assert.Empty(t, env.events.published)
}
