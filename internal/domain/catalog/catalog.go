package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Shop represents a storefront owned by a seller account.
type Shop struct {
	ID      int64
	Name    string
	OwnerID int64
}

// Book represents a catalog item with its live price, fractional discount,
// and remaining stock. Prices and discounts are snapshotted into order items
// at purchase time; Book always carries the current values.
type Book struct {
	ID       int64
	ShopID   int64
	Title    string
	Price    decimal.Decimal
	Discount decimal.Decimal
	Amount   int
}

// Repository provides bulk lookup of shops and books. Both methods return
// only the entities that exist; callers are responsible for detecting
// missing IDs.
type Repository interface {
	FindShopsByIDs(ctx context.Context, ids []int64) ([]Shop, error)
	FindBooksByIDs(ctx context.Context, ids []int64) ([]Book, error)
}
