package order

import (
	"time"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/catalog"
	"github.com/treocaynho01629/ring-bookstore/internal/domain/coupon"
)

// DefaultRefundWindow bounds how long after the last receipt update a
// completed sub-order may still be refunded.
const DefaultRefundWindow = 30 * 24 * time.Hour

// Deps bundles the collaborators the order service needs.
type Deps struct {
	Catalog   catalog.Repository
	Coupons   coupon.Repository
	Applier   coupon.Applier
	Captcha   CaptchaVerifier
	Receipts  ReceiptRepository
	Details   DetailRepository
	Items     ItemRepository
	Addresses AddressRepository
	Payments  PaymentRepository
	Events    EventPublisher
	Tx        TxRunner

	// RefundWindow overrides DefaultRefundWindow when positive.
	RefundWindow time.Duration
}

// Service implements cart calculation, checkout, the order lifecycle state
// machine, and the order query surface.
type Service struct {
	catalog   catalog.Repository
	coupons   coupon.Repository
	applier   coupon.Applier
	captcha   CaptchaVerifier
	receipts  ReceiptRepository
	details   DetailRepository
	items     ItemRepository
	addresses AddressRepository
	payments  PaymentRepository
	events    EventPublisher
	tx        TxRunner

	refundWindow time.Duration
	now          func() time.Time
}

// NewService creates an order Service with the given dependencies.
func NewService(d Deps) *Service {
	window := d.RefundWindow
	if window <= 0 {
		window = DefaultRefundWindow
	}
	return &Service{
		catalog:      d.Catalog,
		coupons:      d.Coupons,
		applier:      d.Applier,
		captcha:      d.Captcha,
		receipts:     d.Receipts,
		details:      d.Details,
		items:        d.Items,
		addresses:    d.Addresses,
		payments:     d.Payments,
		events:       d.Events,
		tx:           d.Tx,
		refundWindow: window,
		now:          time.Now,
	}
}

// CartItemRequest is one requested line within a shop group.
type CartItemRequest struct {
	BookID   int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// CartGroupRequest is the per-shop part of a cart.
type CartGroupRequest struct {
	ShopID       int64             `json:"shopId"`
	Items        []CartItemRequest `json:"items"`
	Coupon       string            `json:"coupon"`
	ShippingType ShippingType      `json:"shippingType"`
	Note         string            `json:"note"`
}

// AddressRequest is the shipping address submitted with a cart.
type AddressRequest struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
	Phone       string `json:"phone"`
	City        string `json:"city"`
	Address     string `json:"address"`
}

// CalculateRequest prices a cart without persisting anything.
type CalculateRequest struct {
	Cart    []CartGroupRequest `json:"cart"`
	Coupon  string             `json:"coupon"`
	Address AddressRequest     `json:"address"`
}

// CheckoutRequest is a CalculateRequest plus the chosen payment method.
type CheckoutRequest struct {
	CalculateRequest
	PaymentMethod PaymentType `json:"paymentMethod"`
}

// RequestContext carries the transport-level inputs checkout needs: the
// captcha token, the client source (web/mobile), and the remote IP.
type RequestContext struct {
	CaptchaToken  string
	CaptchaSource string
	RemoteIP      string
}
