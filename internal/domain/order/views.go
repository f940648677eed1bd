package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PageRequest carries pagination and sorting parameters. SortBy must be one
// of the storage layer's allowlisted sort fields; SortDir is "asc" or "desc".
type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// Normalize clamps a page request to sane bounds and defaults.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = 10
	}
	if p.Size > 100 {
		p.Size = 100
	}
	if p.SortBy == "" {
		p.SortBy = "id"
	}
	if p.SortDir != "asc" {
		p.SortDir = "desc"
	}
	return p
}

// Offset returns the row offset for the request.
func (p PageRequest) Offset() int { return p.Page * p.Size }

// Page is the wrapper returned by all paginated queries.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
}

// NewPage assembles a page wrapper from query results.
func NewPage[T any](content []T, total int64, p PageRequest) Page[T] {
	return Page[T]{Content: content, TotalElements: total, Page: p.Page, Size: p.Size}
}

// ReceiptFilter narrows a receipt listing. Nil pointers mean "any".
type ReceiptFilter struct {
	UserID  *int64
	ShopID  *int64
	Status  *Status
	Keyword string
}

// SummaryFilter narrows a receipt summary listing.
type SummaryFilter struct {
	ShopID *int64
	UserID *int64
	BookID *int64
}

// ReceiptSummary is a compact projection for dashboards: one row per
// receipt with aggregate quantities.
type ReceiptSummary struct {
	ID           int64           `json:"id"`
	Email        string          `json:"email"`
	Total        decimal.Decimal `json:"total"`
	TotalItems   int             `json:"totalItems"`
	LastModified time.Time       `json:"lastModifiedDate"`
}

// ItemView is the client-facing projection of a purchased line.
type ItemView struct {
	ID       int64           `json:"id"`
	BookID   int64           `json:"bookId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
}

// DetailView is the client-facing projection of a per-shop sub-order.
type DetailView struct {
	ID               int64           `json:"id"`
	ReceiptID        int64           `json:"receiptId"`
	ShopID           int64           `json:"shopId"`
	Status           Status          `json:"status"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
	ShippingFee      decimal.Decimal `json:"shippingFee"`
	Discount         decimal.Decimal `json:"discount"`
	ShippingDiscount decimal.Decimal `json:"shippingDiscount"`
	TotalQuantity    int             `json:"totalQuantity"`
	ShippingType     ShippingType    `json:"shippingType"`
	Items            []ItemView      `json:"items"`
}

// ReceiptView is the client-facing projection of a receipt, returned from
// checkout, calculate and receipt queries.
type ReceiptView struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	Address       Address         `json:"address"`
	Total         decimal.Decimal `json:"total"`
	ProductsPrice decimal.Decimal `json:"productsPrice"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	Details       []DetailView    `json:"details"`
}

// SalesStat aggregates a shop's (or the platform's) sales for the current
// month against the previous one.
type SalesStat struct {
	TotalOrders   int64           `json:"totalOrders"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	LastMonthUnit decimal.Decimal `json:"lastMonthRevenue"`
	Growth        decimal.Decimal `json:"growth"`
}

// ChartPoint is one month's bucket in the yearly sales chart.
type ChartPoint struct {
	Month    int             `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Orders   int64           `json:"orders"`
	Refunded int64           `json:"refunded"`
}

// viewOfItem maps an item to its projection.
func viewOfItem(it Item) ItemView {
	return ItemView{
		ID:       it.ID,
		BookID:   it.BookID,
		Quantity: it.Quantity,
		Price:    it.Price,
		Discount: it.Discount,
	}
}

// viewOfDetail maps a detail (with items) to its projection.
func viewOfDetail(d Detail) DetailView {
	items := make([]ItemView, len(d.Items))
	for i, it := range d.Items {
		items[i] = viewOfItem(it)
	}
	return DetailView{
		ID:               d.ID,
		ReceiptID:        d.ReceiptID,
		ShopID:           d.ShopID,
		Status:           d.Status,
		TotalPrice:       d.TotalPrice,
		ShippingFee:      d.ShippingFee,
		Discount:         d.Discount,
		ShippingDiscount: d.ShippingDiscount,
		TotalQuantity:    d.TotalQuantity,
		ShippingType:     d.ShippingType,
		Items:            items,
	}
}

// ViewOf maps a receipt graph to its client-facing projection.
func ViewOf(r *Receipt) ReceiptView {
	details := make([]DetailView, len(r.Details))
	for i, d := range r.Details {
		details[i] = viewOfDetail(d)
	}
	return ReceiptView{
		ID:            r.ID,
		Email:         r.Email,
		Address:       r.Address,
		Total:         r.Total,
		ProductsPrice: r.ProductsPrice,
		ShippingFee:   r.ShippingFee,
		TotalDiscount: r.TotalDiscount,
		Details:       details,
	}
}
