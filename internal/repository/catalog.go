package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/catalog"
)

const (
	findShopsByIDsSQL = `SELECT id, name, owner_id FROM shops WHERE id = ANY($1)`

	findBooksByIDsSQL = `SELECT id, shop_id, title, price, discount, amount
		FROM books WHERE id = ANY($1)`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// FindShopsByIDs bulk-loads shops. Missing IDs are simply absent from the
// result.
func (r *CatalogRepository) FindShopsByIDs(ctx context.Context, ids []int64) ([]catalog.Shop, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, findShopsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("finding shops: %w", err)
	}
	shops, err := pgx.CollectRows(rows, scanShop)
	if err != nil {
		return nil, fmt.Errorf("finding shops: %w", err)
	}
	return shops, nil
}

// FindBooksByIDs bulk-loads books with their live price, discount and stock.
func (r *CatalogRepository) FindBooksByIDs(ctx context.Context, ids []int64) ([]catalog.Book, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, findBooksByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("finding books: %w", err)
	}
	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return nil, fmt.Errorf("finding books: %w", err)
	}
	return books, nil
}

func scanShop(row pgx.CollectableRow) (catalog.Shop, error) {
	var s catalog.Shop
	err := row.Scan(&s.ID, &s.Name, &s.OwnerID)
	return s, err
}

func scanBook(row pgx.CollectableRow) (catalog.Book, error) {
	var (
		b      catalog.Book
		amount int32
	)
	err := row.Scan(&b.ID, &b.ShopID, &b.Title, &b.Price, &b.Discount, &amount)
	b.Amount = int(amount)
	return b, err
}
