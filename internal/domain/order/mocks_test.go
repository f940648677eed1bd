package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/catalog"
	"github.com/treocaynho01629/ring-bookstore/internal/domain/coupon"
)

// --- Mock implementations ---

type mockCatalog struct {
	shops []catalog.Shop
	books []catalog.Book

	shopCalls int
	bookCalls int
}

func (m *mockCatalog) FindShopsByIDs(_ context.Context, _ []int64) ([]catalog.Shop, error) {
	m.shopCalls++
	return m.shops, nil
}

func (m *mockCatalog) FindBooksByIDs(_ context.Context, _ []int64) ([]catalog.Book, error) {
	m.bookCalls++
	return m.books, nil
}

type mockCouponRepo struct {
	coupons  []coupon.Coupon
	used     map[int64]bool // couponID -> already used by the buyer
	findErr  error
	usedErr  error
	markErr  error
	findCall int
	usedCall int
	marked   []int64
}

func (m *mockCouponRepo) FindByCodes(_ context.Context, _ []string) ([]coupon.Coupon, error) {
	m.findCall++
	return m.coupons, m.findErr
}

func (m *mockCouponRepo) HasUserUsed(_ context.Context, _, couponID int64) (bool, error) {
	m.usedCall++
	if m.usedErr != nil {
		return false, m.usedErr
	}
	return m.used[couponID], nil
}

func (m *mockCouponRepo) MarkUsed(_ context.Context, _, couponID int64) error {
	m.marked = append(m.marked, couponID)
	return m.markErr
}

type mockApplier struct {
	discount *coupon.Discount
	err      error
	calls    int
}

func (m *mockApplier) Apply(_ context.Context, _ coupon.Coupon, _ coupon.CartState, _ int64) (*coupon.Discount, error) {
	m.calls++
	return m.discount, m.err
}

type mockCaptcha struct {
	err   error
	calls int
}

func (m *mockCaptcha) Verify(_ context.Context, _, _, _ string) error {
	m.calls++
	return m.err
}

type mockReceiptRepo struct {
	saved      *Receipt
	saveErr    error
	touched    []int64
	byID       *Receipt
	page       []Receipt
	pageTotal  int64
	summaries  []ReceiptSummary
	sumTotal   int64
	chart      []ChartPoint
	saveCalls  int
	touchCalls int
}

func (m *mockReceiptRepo) Save(_ context.Context, r *Receipt) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	r.ID = 1
	for i := range r.Details {
		r.Details[i].ID = int64(i + 1)
		r.Details[i].ReceiptID = r.ID
	}
	m.saved = r
	return nil
}

func (m *mockReceiptRepo) Touch(_ context.Context, receiptID int64, _ time.Time) error {
	m.touchCalls++
	m.touched = append(m.touched, receiptID)
	return nil
}

func (m *mockReceiptRepo) FindByID(_ context.Context, _ int64) (*Receipt, error) {
	return m.byID, nil
}

func (m *mockReceiptRepo) FindPage(_ context.Context, _ ReceiptFilter, _ PageRequest) ([]Receipt, int64, error) {
	return m.page, m.pageTotal, nil
}

func (m *mockReceiptRepo) FindSummaryPage(_ context.Context, _ SummaryFilter, _ PageRequest) ([]ReceiptSummary, int64, error) {
	return m.summaries, m.sumTotal, nil
}

func (m *mockReceiptRepo) MonthlySales(_ context.Context, _, _ *int64, _ int) ([]ChartPoint, error) {
	return m.chart, nil
}

type mockDetailRepo struct {
	snapshot  *DetailSnapshot
	saved     *Detail
	saveCalls int
	findCalls int
	byReceipt []Detail
	page      []Detail
	pageTotal int64
	view      *DetailView
	stat      *SalesStat
}

func (m *mockDetailRepo) FindByID(_ context.Context, _ int64) (*DetailSnapshot, error) {
	m.findCalls++
	return m.snapshot, nil
}

func (m *mockDetailRepo) Save(_ context.Context, d *Detail) error {
	m.saveCalls++
	m.saved = d
	return nil
}

func (m *mockDetailRepo) FindAllByReceiptIDs(_ context.Context, _ []int64) ([]Detail, error) {
	return m.byReceipt, nil
}

func (m *mockDetailRepo) FindPageByBookID(_ context.Context, _ int64, _ PageRequest) ([]Detail, int64, error) {
	return m.page, m.pageTotal, nil
}

func (m *mockDetailRepo) FindPageByUser(_ context.Context, _ int64, _ *Status, _ string, _ PageRequest) ([]Detail, int64, error) {
	return m.page, m.pageTotal, nil
}

func (m *mockDetailRepo) FindView(_ context.Context, _ int64, _ *int64) (*DetailView, error) {
	return m.view, nil
}

func (m *mockDetailRepo) SalesAnalytics(_ context.Context, _, _ *int64) (*SalesStat, error) {
	return m.stat, nil
}

type mockItemRepo struct {
	items []Item
	calls int
}

func (m *mockItemRepo) FindAllByDetailIDs(_ context.Context, _ []int64) ([]Item, error) {
	m.calls++
	return m.items, nil
}

type mockAddressRepo struct {
	saved *Address
	err   error
	calls int
}

func (m *mockAddressRepo) Save(_ context.Context, a *Address) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	a.ID = 1
	m.saved = a
	return nil
}

type mockPaymentRepo struct {
	payment   *PaymentInfo
	saved     *PaymentInfo
	findCalls int
	saveCalls int
}

func (m *mockPaymentRepo) Save(_ context.Context, p *PaymentInfo) error {
	m.saveCalls++
	m.saved = p
	return nil
}

func (m *mockPaymentRepo) FindByReceipt(_ context.Context, _ int64) (*PaymentInfo, error) {
	m.findCalls++
	return m.payment, nil
}

type mockEvents struct {
	published []Event
	err       error
}

func (m *mockEvents) Publish(_ context.Context, e Event) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, e)
	return nil
}

// mockTx runs the function inline; repository mocks are transaction-agnostic.
type mockTx struct {
	calls int
}

func (m *mockTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// --- Fixtures and helpers ---

type testEnv struct {
	catalog   *mockCatalog
	coupons   *mockCouponRepo
	applier   *mockApplier
	captcha   *mockCaptcha
	receipts  *mockReceiptRepo
	details   *mockDetailRepo
	items     *mockItemRepo
	addresses *mockAddressRepo
	payments  *mockPaymentRepo
	events    *mockEvents
	tx        *mockTx
	svc       *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		catalog:   &mockCatalog{},
		coupons:   &mockCouponRepo{used: map[int64]bool{}},
		applier:   &mockApplier{},
		captcha:   &mockCaptcha{},
		receipts:  &mockReceiptRepo{},
		details:   &mockDetailRepo{},
		items:     &mockItemRepo{},
		addresses: &mockAddressRepo{},
		payments:  &mockPaymentRepo{},
		events:    &mockEvents{},
		tx:        &mockTx{},
	}
	env.svc = NewService(Deps{
		Catalog:   env.catalog,
		Coupons:   env.coupons,
		Applier:   env.applier,
		Captcha:   env.captcha,
		Receipts:  env.receipts,
		Details:   env.details,
		Items:     env.items,
		Addresses: env.addresses,
		Payments:  env.payments,
		Events:    env.events,
		Tx:        env.tx,
	})
	return env
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	testBuyer = Account{
		ID:       1,
		Username: "test",
		Email:    "test@example.com",
		Roles:    []Role{RoleAdmin},
	}
	testSeller = Account{
		ID:    2,
		Roles: []Role{RoleSeller},
	}
)

func testShop() catalog.Shop {
	return catalog.Shop{ID: 1, Name: "Test Shop", OwnerID: 1}
}

func testBook() catalog.Book {
	return catalog.Book{
		ID:       1,
		ShopID:   1,
		Title:    "Test Book",
		Price:    dec("100"),
		Discount: dec("0.1"),
		Amount:   10,
	}
}

func testCart() []CartGroupRequest {
	return []CartGroupRequest{{
		ShopID:       1,
		Items:        []CartItemRequest{{BookID: 1, Quantity: 1}},
		ShippingType: ShippingStandard,
		Note:         "Test message",
	}}
}

func testCalculateRequest() CalculateRequest {
	return CalculateRequest{
		Cart: testCart(),
		Address: AddressRequest{
			Name:        "Test Address",
			CompanyName: "Test Company",
			Phone:       "0123456789",
			City:        "Test City",
			Address:     "Test Street",
		},
	}
}

func testCheckoutRequest() CheckoutRequest {
	return CheckoutRequest{
		CalculateRequest: testCalculateRequest(),
		PaymentMethod:    PaymentCash,
	}
}

func testRequestContext() RequestContext {
	return RequestContext{
		CaptchaToken:  "valid-token",
		CaptchaSource: "web",
		RemoteIP:      "127.0.0.1",
	}
}

func testSnapshot(status Status) *DetailSnapshot {
	return &DetailSnapshot{
		Detail: Detail{
			ID:               1,
			ReceiptID:        1,
			ShopID:           1,
			Status:           status,
			TotalPrice:       dec("100"),
			ShippingFee:      dec("10"),
			Discount:         dec("10"),
			ShippingDiscount: dec("1"),
			TotalQuantity:    1,
			ShippingType:     ShippingStandard,
		},
		BuyerID:             1,
		ShopOwnerID:         1,
		ReceiptLastModified: time.Now().Add(-24 * time.Hour),
	}
}
