package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a per-shop sub-order (Detail).
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusShipping  Status = "SHIPPING"
	StatusCompleted Status = "COMPLETED"
	StatusRefunded  Status = "REFUNDED"
	StatusCancelled Status = "CANCELLED"
)

// ShippingType selects the delivery tier for a shop group.
type ShippingType string

const (
	ShippingEconomy  ShippingType = "ECONOMY"
	ShippingStandard ShippingType = "STANDARD"
	ShippingExpress  ShippingType = "EXPRESS"
)

// ShippingFee returns the base fee for a shipping type. Unknown types fall
// back to the standard tier.
func ShippingFee(t ShippingType) decimal.Decimal {
	switch t {
	case ShippingEconomy:
		return decimal.NewFromInt(5)
	case ShippingExpress:
		return decimal.NewFromInt(20)
	default:
		return decimal.NewFromInt(10)
	}
}

// PaymentType is how the buyer pays for a receipt.
type PaymentType string

const (
	PaymentCash   PaymentType = "CASH"
	PaymentOnline PaymentType = "ONLINE"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// Role is a coarse account role. Authentication is external; the acting
// account arrives fully resolved.
type Role string

const (
	RoleUser   Role = "USER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// Account is the acting user for an operation.
type Account struct {
	ID       int64
	Username string
	Email    string
	Roles    []Role
}

// HasRole reports whether the account carries the given role.
func (a Account) HasRole(r Role) bool {
	for _, have := range a.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Address is a shipping address. Receipts own a copy of the address used at
// checkout time.
type Address struct {
	ID          int64
	Name        string
	CompanyName string
	Phone       string
	City        string
	Address     string
}

// Item is a purchased line within a Detail. Price and Discount are snapshots
// of the book's values at purchase time, not live links.
type Item struct {
	ID       int64
	DetailID int64
	BookID   int64
	Quantity int
	Price    decimal.Decimal
	Discount decimal.Decimal
}

// Detail is the per-shop sub-order within a Receipt. It carries its own
// lifecycle status. TotalPrice is the pre-discount products subtotal;
// Discount aggregates item discounts plus any shop coupon value.
type Detail struct {
	ID               int64
	ReceiptID        int64
	ShopID           int64
	Status           Status
	TotalPrice       decimal.Decimal
	ShippingFee      decimal.Decimal
	Discount         decimal.Decimal
	ShippingDiscount decimal.Decimal
	TotalQuantity    int
	ShippingType     ShippingType
	Note             string
	CouponCode       string
	Items            []Item
}

// WithStatus returns a copy of the detail in the given status. Transitions
// never mutate the loaded snapshot in place.
func (d Detail) WithStatus(s Status) Detail {
	d.Status = s
	return d
}

// Receipt is the root aggregate of a purchase spanning one or more shops.
// Invariant: Total = ProductsPrice + ShippingFee - TotalDiscount.
type Receipt struct {
	ID            int64
	UserID        int64
	Email         string
	Address       Address
	Total         decimal.Decimal
	ProductsPrice decimal.Decimal
	ShippingFee   decimal.Decimal
	TotalDiscount decimal.Decimal
	CouponCode    string
	LastModified  time.Time
	Details       []Detail
}

// PaymentInfo is the payment record attached to a receipt.
type PaymentInfo struct {
	ID        int64
	ReceiptID int64
	Type      PaymentType
	Amount    decimal.Decimal
	Status    PaymentStatus
}

// DetailSnapshot is a Detail loaded for a lifecycle operation, joined with
// the ownership and audit fields the guards need.
type DetailSnapshot struct {
	Detail
	BuyerID             int64
	ShopOwnerID         int64
	ReceiptLastModified time.Time
}

// CouponUsage records that a user consumed a coupon during checkout.
type CouponUsage struct {
	UserID   int64
	CouponID int64
}

// Event is a domain event recorded during an order operation. Events are
// written to the outbox inside the operation's transaction and delivered
// asynchronously.
type Event struct {
	ID        string
	Type      string
	ReceiptID int64
	DetailID  int64
	BuyerID   int64
	Total     decimal.Decimal
	At        time.Time
}

// Event types emitted by the order core.
const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderRefunded      = "order.refunded"
	EventOrderCompleted     = "order.completed"
	EventOrderStatusChanged = "order.status_changed"
)

// ReceiptRepository persists and loads receipt aggregates. Save persists the
// whole graph (receipt, details, items) and assigns generated IDs in place.
type ReceiptRepository interface {
	Save(ctx context.Context, r *Receipt) error
	Touch(ctx context.Context, receiptID int64, at time.Time) error
	FindByID(ctx context.Context, id int64) (*Receipt, error)
	FindPage(ctx context.Context, f ReceiptFilter, p PageRequest) ([]Receipt, int64, error)
	FindSummaryPage(ctx context.Context, f SummaryFilter, p PageRequest) ([]ReceiptSummary, int64, error)
	MonthlySales(ctx context.Context, shopID, userID *int64, year int) ([]ChartPoint, error)
}

// DetailRepository loads and persists per-shop sub-orders.
type DetailRepository interface {
	FindByID(ctx context.Context, id int64) (*DetailSnapshot, error)
	Save(ctx context.Context, d *Detail) error
	FindAllByReceiptIDs(ctx context.Context, ids []int64) ([]Detail, error)
	FindPageByBookID(ctx context.Context, bookID int64, p PageRequest) ([]Detail, int64, error)
	FindPageByUser(ctx context.Context, userID int64, status *Status, keyword string, p PageRequest) ([]Detail, int64, error)
	FindView(ctx context.Context, id int64, userID *int64) (*DetailView, error)
	SalesAnalytics(ctx context.Context, shopID, userID *int64) (*SalesStat, error)
}

// ItemRepository loads purchased line items.
type ItemRepository interface {
	FindAllByDetailIDs(ctx context.Context, ids []int64) ([]Item, error)
}

// AddressRepository upserts shipping addresses.
type AddressRepository interface {
	Save(ctx context.Context, a *Address) error
}

// PaymentRepository persists payment records and loads them by receipt.
type PaymentRepository interface {
	Save(ctx context.Context, p *PaymentInfo) error
	FindByReceipt(ctx context.Context, receiptID int64) (*PaymentInfo, error)
}

// EventPublisher records a domain event for asynchronous delivery. When
// called inside a transaction the record commits or aborts with it.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// CaptchaVerifier validates a captcha token before checkout.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, source, remoteIP string) error
}

// TxRunner executes fn inside a single storage transaction. Repository calls
// made with the ctx passed to fn join that transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
