package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/order"
)

var hundred = decimal.NewFromInt(100)

const (
	detailColumns = `d.id, d.receipt_id, d.shop_id, d.status, d.total_price,
		d.shipping_fee, d.discount, d.shipping_discount, d.total_quantity,
		d.shipping_type, d.note, d.coupon_code`

	findDetailSnapshotSQL = `SELECT ` + detailColumns + `,
		r.user_id, s.owner_id, r.last_modified
		FROM details d
		JOIN receipts r ON r.id = d.receipt_id
		JOIN shops s ON s.id = d.shop_id
		WHERE d.id = $1`

	updateDetailSQL = `UPDATE details SET status = $2, note = $3 WHERE id = $1`

	findDetailsByReceiptIDsSQL = `SELECT ` + detailColumns + `
		FROM details d WHERE d.receipt_id = ANY($1) ORDER BY d.id`

	findDetailViewSQL = `SELECT ` + detailColumns + `
		FROM details d
		JOIN receipts r ON r.id = d.receipt_id
		WHERE d.id = $1 AND ($2::bigint IS NULL OR r.user_id = $2)`

	salesAnalyticsSQL = `SELECT
		COUNT(*) FILTER (WHERE date_trunc('month', r.last_modified) = date_trunc('month', now())),
		COALESCE(SUM(d.total_price + d.shipping_fee - d.discount - d.shipping_discount)
			FILTER (WHERE d.status = 'COMPLETED'
				AND date_trunc('month', r.last_modified) = date_trunc('month', now())), 0),
		COALESCE(SUM(d.total_price + d.shipping_fee - d.discount - d.shipping_discount)
			FILTER (WHERE d.status = 'COMPLETED'
				AND date_trunc('month', r.last_modified) = date_trunc('month', now()) - interval '1 month'), 0)
		FROM details d
		JOIN receipts r ON r.id = d.receipt_id
		WHERE ($1::bigint IS NULL OR d.shop_id = $1)
			AND ($2::bigint IS NULL OR r.user_id = $2)`

	findItemsByDetailIDsSQL = `SELECT id, detail_id, book_id, quantity, price, discount
		FROM items WHERE detail_id = ANY($1) ORDER BY id`
)

// detailSortFields is the allowlist for detail listing sort keys.
var detailSortFields = map[string]string{
	"id":         "d.id",
	"status":     "d.status",
	"totalPrice": "d.total_price",
}

var _ order.DetailRepository = (*DetailRepository)(nil)

// DetailRepository implements order.DetailRepository backed by PostgreSQL.
type DetailRepository struct {
	pool *pgxpool.Pool
}

// NewDetailRepository returns a DetailRepository that uses the given pool.
func NewDetailRepository(pool *pgxpool.Pool) *DetailRepository {
	return &DetailRepository{pool: pool}
}

// FindByID loads the lifecycle snapshot for a detail: the detail itself plus
// the buyer, the shop owner and the receipt's audit timestamp. Returns
// (nil, nil) when the detail does not exist.
func (r *DetailRepository) FindByID(ctx context.Context, id int64) (*order.DetailSnapshot, error) {
	var (
		snap   order.DetailSnapshot
		note   *string
		coupon *string
	)
	err := dbFrom(ctx, r.pool).QueryRow(ctx, findDetailSnapshotSQL, id).Scan(
		&snap.ID, &snap.ReceiptID, &snap.ShopID, &snap.Status, &snap.TotalPrice,
		&snap.ShippingFee, &snap.Discount, &snap.ShippingDiscount, &snap.TotalQuantity,
		&snap.ShippingType, &note, &coupon,
		&snap.BuyerID, &snap.ShopOwnerID, &snap.ReceiptLastModified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding detail %d: %w", id, err)
	}
	if note != nil {
		snap.Note = *note
	}
	if coupon != nil {
		snap.CouponCode = *coupon
	}
	return &snap, nil
}

// Save persists a detail's mutable fields (status and note).
func (r *DetailRepository) Save(ctx context.Context, d *order.Detail) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, updateDetailSQL, d.ID, d.Status, d.Note)
	if err != nil {
		return fmt.Errorf("saving detail %d: %w", d.ID, err)
	}
	return nil
}

// FindAllByReceiptIDs bulk-loads the details of the given receipts.
func (r *DetailRepository) FindAllByReceiptIDs(ctx context.Context, ids []int64) ([]order.Detail, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, findDetailsByReceiptIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("finding details: %w", err)
	}
	details, err := pgx.CollectRows(rows, scanDetail)
	if err != nil {
		return nil, fmt.Errorf("finding details: %w", err)
	}
	return details, nil
}

// FindPageByBookID lists the details that contain a given book.
func (r *DetailRepository) FindPageByBookID(ctx context.Context, bookID int64, p order.PageRequest) ([]order.Detail, int64, error) {
	q := dbFrom(ctx, r.pool)

	const base = ` FROM details d
		WHERE EXISTS (SELECT 1 FROM items i WHERE i.detail_id = d.id AND i.book_id = $1)`

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*)"+base, bookID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting details by book: %w", err)
	}

	query := "SELECT " + detailColumns + base +
		orderClause(p) + " LIMIT $2 OFFSET $3"
	rows, err := q.Query(ctx, query, bookID, p.Size, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing details by book: %w", err)
	}
	details, err := pgx.CollectRows(rows, scanDetail)
	if err != nil {
		return nil, 0, fmt.Errorf("listing details by book: %w", err)
	}
	return details, total, nil
}

// FindPageByUser lists a buyer's details, optionally filtered by status and
// by free-text search over the shop name and book titles.
func (r *DetailRepository) FindPageByUser(ctx context.Context, userID int64, status *order.Status, keyword string, p order.PageRequest) ([]order.Detail, int64, error) {
	var (
		where = []string{"r.user_id = $1"}
		args  = []any{userID}
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if status != nil {
		where = append(where, "d.status = "+arg(string(*status)))
	}
	if keyword != "" {
		like := arg("%" + keyword + "%")
		where = append(where, `(EXISTS (SELECT 1 FROM shops s WHERE s.id = d.shop_id AND s.name ILIKE `+like+`)
			OR EXISTS (SELECT 1 FROM items i JOIN books b ON b.id = i.book_id
				WHERE i.detail_id = d.id AND b.title ILIKE `+like+`))`)
	}

	base := ` FROM details d JOIN receipts r ON r.id = d.receipt_id WHERE ` +
		strings.Join(where, " AND ")

	q := dbFrom(ctx, r.pool)

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*)"+base, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting details by user: %w", err)
	}

	query := "SELECT " + detailColumns + base +
		orderClause(p) + " LIMIT " + arg(p.Size) + " OFFSET " + arg(p.Offset())
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing details by user: %w", err)
	}
	details, err := pgx.CollectRows(rows, scanDetail)
	if err != nil {
		return nil, 0, fmt.Errorf("listing details by user: %w", err)
	}
	return details, total, nil
}

// FindView loads a single detail projection. A non-nil userID scopes the
// lookup to that buyer's receipts. Returns (nil, nil) when nothing matches.
func (r *DetailRepository) FindView(ctx context.Context, id int64, userID *int64) (*order.DetailView, error) {
	d, err := scanDetailRow(dbFrom(ctx, r.pool).QueryRow(ctx, findDetailViewSQL, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding detail view %d: %w", id, err)
	}
	return &order.DetailView{
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
	}, nil
}

// SalesAnalytics aggregates this month's orders and revenue against last
// month's revenue.
func (r *DetailRepository) SalesAnalytics(ctx context.Context, shopID, userID *int64) (*order.SalesStat, error) {
	var stat order.SalesStat
	err := dbFrom(ctx, r.pool).QueryRow(ctx, salesAnalyticsSQL, shopID, userID).Scan(
		&stat.TotalOrders, &stat.TotalRevenue, &stat.LastMonthUnit,
	)
	if err != nil {
		return nil, fmt.Errorf("sales analytics: %w", err)
	}
	if stat.LastMonthUnit.IsPositive() {
		stat.Growth = stat.TotalRevenue.Sub(stat.LastMonthUnit).
			Div(stat.LastMonthUnit).Mul(hundred).Round(2)
	}
	return &stat, nil
}

var _ order.ItemRepository = (*ItemRepository)(nil)

// ItemRepository implements order.ItemRepository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// FindAllByDetailIDs bulk-loads the items of the given details.
func (r *ItemRepository) FindAllByDetailIDs(ctx context.Context, ids []int64) ([]order.Item, error) {
	return findItems(ctx, dbFrom(ctx, r.pool), ids)
}

func findItems(ctx context.Context, q querier, detailIDs []int64) ([]order.Item, error) {
	rows, err := q.Query(ctx, findItemsByDetailIDsSQL, detailIDs)
	if err != nil {
		return nil, fmt.Errorf("finding items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("finding items: %w", err)
	}
	return items, nil
}

// findDetailsWithItems loads details for the given receipts with their items
// attached.
func findDetailsWithItems(ctx context.Context, q querier, receiptIDs []int64) ([]order.Detail, error) {
	rows, err := q.Query(ctx, findDetailsByReceiptIDsSQL, receiptIDs)
	if err != nil {
		return nil, fmt.Errorf("finding details: %w", err)
	}
	details, err := pgx.CollectRows(rows, scanDetail)
	if err != nil {
		return nil, fmt.Errorf("finding details: %w", err)
	}
	if len(details) == 0 {
		return details, nil
	}

	ids := make([]int64, len(details))
	for i := range details {
		ids[i] = details[i].ID
	}
	items, err := findItems(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	byDetail := make(map[int64][]order.Item, len(details))
	for _, it := range items {
		byDetail[it.DetailID] = append(byDetail[it.DetailID], it)
	}
	for i := range details {
		details[i].Items = byDetail[details[i].ID]
	}
	return details, nil
}

func scanDetail(row pgx.CollectableRow) (order.Detail, error) {
	var (
		d      order.Detail
		note   *string
		coupon *string
	)
	err := row.Scan(
		&d.ID, &d.ReceiptID, &d.ShopID, &d.Status, &d.TotalPrice,
		&d.ShippingFee, &d.Discount, &d.ShippingDiscount, &d.TotalQuantity,
		&d.ShippingType, &note, &coupon,
	)
	if note != nil {
		d.Note = *note
	}
	if coupon != nil {
		d.CouponCode = *coupon
	}
	return d, err
}

func scanDetailRow(row pgx.Row) (*order.Detail, error) {
	var (
		d      order.Detail
		note   *string
		coupon *string
	)
	err := row.Scan(
		&d.ID, &d.ReceiptID, &d.ShopID, &d.Status, &d.TotalPrice,
		&d.ShippingFee, &d.Discount, &d.ShippingDiscount, &d.TotalQuantity,
		&d.ShippingType, &note, &coupon,
	)
	if err != nil {
		return nil, err
	}
	if note != nil {
		d.Note = *note
	}
	if coupon != nil {
		d.CouponCode = *coupon
	}
	return &d, nil
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.DetailID, &it.BookID, &it.Quantity, &it.Price, &it.Discount)
	return it, err
}

func orderClause(p order.PageRequest) string {
	col, ok := detailSortFields[p.SortBy]
	if !ok {
		col = "d.id"
	}
	return " ORDER BY " + col + " " + sortDir(p.SortDir)
}
