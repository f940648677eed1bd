package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancel_Success(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusPending)

	err := env.svc.Cancel(context.Background(), 1, "Test reason", testBuyer)
	require.NoError(t, err)

	require.NotNil(t, env.details.saved)
	assert.Equal(t, StatusCancelled, env.details.saved.Status)
	assert.Equal(t, "Test reason", env.details.saved.Note)
	assert.Equal(t, []int64{1}, env.receipts.touched)

	require.Len(t, env.events.published, 1)
	assert.Equal(t, EventOrderCancelled, env.events.published[0].Type)
}

func TestCancel_NotFound(t *testing.T) {
	env := newTestEnv()

	err := env.svc.Cancel(context.Background(), 1, "Test reason", testBuyer)
	require.ErrorIs(t, err, ErrDetailNotFound)
	assert.Zero(t, env.details.saveCalls)
	assert.Zero(t, env.receipts.touchCalls)
}

func TestCancel_SomeoneElseOrder(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusPending)

	err := env.svc.Cancel(context.Background(), 1, "Test reason", testSeller)
	require.ErrorIs(t, err, ErrInvalidUser)
	assert.Zero(t, env.details.saveCalls)
}

func TestCancel_InvalidStatus(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusCompleted)

	err := env.svc.Cancel(context.Background(), 1, "Test reason", testBuyer)
	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.Zero(t, env.details.saveCalls)
	assert.Zero(t, env.receipts.touchCalls)
}

func TestCancel_LoadedSnapshotNotMutated(t *testing.T) {
	env := newTestEnv()
	snap := testSnapshot(StatusPending)
	env.details.snapshot = snap

	err := env.svc.Cancel(context.Background(), 1, "Test reason", testBuyer)
	require.NoError(t, err)

	// Transitions return a new state; the loaded snapshot keeps its status.
	assert.Equal(t, StatusPending, snap.Status)
}

func TestRefund_Success(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusCompleted)

	err := env.svc.Refund(context.Background(), 1, "Test reason", testBuyer)
	require.NoError(t, err)

	require.NotNil(t, env.details.saved)
	assert.Equal(t, StatusRefunded, env.details.saved.Status)
	// Refund persists the detail only; the receipt timestamp stays anchored.
	assert.Zero(t, env.receipts.touchCalls)

	require.Len(t, env.events.published, 1)
	assert.Equal(t, EventOrderRefunded, env.events.published[0].Type)
}

func TestRefund_NotFound(t *testing.T) {
	env := newTestEnv()

	err := env.svc.Refund(context.Background(), 1, "Test reason", testBuyer)
	require.ErrorIs(t, err, ErrDetailNotFound)
	assert.Zero(t, env.details.saveCalls)
}

func TestRefund_SomeoneElseOrder(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusCompleted)

	err := env.svc.Refund(context.Background(), 1, "Test reason", testSeller)
	require.ErrorIs(t, err, ErrInvalidUser)
	assert.Zero(t, env.details.saveCalls)
}

func TestRefund_InvalidStatus(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusPending)

	err := env.svc.Refund(context.Background(), 1, "Test reason", testBuyer)
	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.Zero(t, env.details.saveCalls)
}

func TestRefund_PastWindow(t *testing.T) {
	env := newTestEnv()
	snap := testSnapshot(StatusCompleted)
	snap.ReceiptLastModified = time.Now().Add(-31 * 24 * time.Hour)
	env.details.snapshot = snap

	err := env.svc.Refund(context.Background(), 1, "Test reason", testBuyer)
	require.ErrorIs(t, err, ErrInvalidDate)
	assert.Zero(t, env.details.saveCalls)
}

func TestRefund_FutureTimestamp(t *testing.T) {
	env := newTestEnv()
	snap := testSnapshot(StatusCompleted)
	snap.ReceiptLastModified = time.Now().Add(24 * time.Hour)
	env.details.snapshot = snap

	err := env.svc.Refund(context.Background(), 1, "Test reason", testBuyer)
	require.ErrorIs(t, err, ErrInvalidDate)
	assert.Zero(t, env.details.saveCalls)
}

func TestRefund_ConfiguredWindow(t *testing.T) {
	env := newTestEnv()
	env.svc.refundWindow = time.Hour
	snap := testSnapshot(StatusCompleted)
	snap.ReceiptLastModified = time.Now().Add(-2 * time.Hour)
	env.details.snapshot = snap

	err := env.svc.Refund(context.Background(), 1, "Test reason", testBuyer)
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestConfirm_Success(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusShipping)
	env.payments.payment = &PaymentInfo{ID: 1, ReceiptID: 1, Type: PaymentOnline, Status: PaymentPaid}

	err := env.svc.Confirm(context.Background(), 1, testBuyer)
	require.NoError(t, err)

	assert.Equal(t, 1, env.payments.findCalls)
	require.NotNil(t, env.details.saved)
	assert.Equal(t, StatusCompleted, env.details.saved.Status)

	require.Len(t, env.events.published, 1)
	assert.Equal(t, EventOrderCompleted, env.events.published[0].Type)
}

func TestConfirm_NotFound(t *testing.T) {
	env := newTestEnv()

	err := env.svc.Confirm(context.Background(), 1, testBuyer)
	require.ErrorIs(t, err, ErrDetailNotFound)
	assert.Zero(t, env.payments.findCalls)
	assert.Zero(t, env.details.saveCalls)
}

func TestConfirm_SomeoneElseOrder(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusShipping)
	env.payments.payment = &PaymentInfo{ID: 1, ReceiptID: 1, Status: PaymentPaid}

	err := env.svc.Confirm(context.Background(), 1, testSeller)
	require.ErrorIs(t, err, ErrInvalidUser)

	// The payment lookup happens before the ownership guard.
	assert.Equal(t, 1, env.payments.findCalls)
	assert.Zero(t, env.details.saveCalls)
}

func TestConfirm_InvalidStatus(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusPending)

	err := env.svc.Confirm(context.Background(), 1, testBuyer)
	require.ErrorIs(t, err, ErrInvalidStatus)

	// The status guard short-circuits before any payment lookup.
	assert.Zero(t, env.payments.findCalls)
	assert.Zero(t, env.details.saveCalls)
}

func TestConfirm_InvalidPaymentStatus(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusShipping)
	env.payments.payment = &PaymentInfo{ID: 1, ReceiptID: 1, Status: PaymentPending}

	err := env.svc.Confirm(context.Background(), 1, testBuyer)
	require.ErrorIs(t, err, ErrInvalidPaymentStatus)
	assert.Equal(t, 1, env.payments.findCalls)
	assert.Zero(t, env.details.saveCalls)
}

func TestChangeStatus_Success(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusPending)

	err := env.svc.ChangeStatus(context.Background(), 1, StatusShipping, testBuyer)
	require.NoError(t, err)

	require.NotNil(t, env.details.saved)
	assert.Equal(t, StatusShipping, env.details.saved.Status)
	assert.Equal(t, []int64{1}, env.receipts.touched)

	require.Len(t, env.events.published, 1)
	assert.Equal(t, EventOrderStatusChanged, env.events.published[0].Type)
}

func TestChangeStatus_NotFound(t *testing.T) {
	env := newTestEnv()

	err := env.svc.ChangeStatus(context.Background(), 1, StatusShipping, testBuyer)
	require.ErrorIs(t, err, ErrDetailNotFound)
	assert.Zero(t, env.details.saveCalls)
}

func TestChangeStatus_OtherShopOrder(t *testing.T) {
	env := newTestEnv()
	env.details.snapshot = testSnapshot(StatusPending)

	// The seller does not own the shop on this detail: shop-owned guard, not
	// the buyer one.
	err := env.svc.ChangeStatus(context.Background(), 1, StatusShipping, testSeller)
	require.ErrorIs(t, err, ErrInvalidOwnership)
	assert.Zero(t, env.details.saveCalls)
	assert.Zero(t, env.receipts.touchCalls)
}
