package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/order"
)

const (
	insertReceiptSQL = `INSERT INTO receipts (user_id, email, address_id, total,
		products_price, shipping_fee, total_discount, coupon_code, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`

	insertDetailSQL = `INSERT INTO details (receipt_id, shop_id, status, total_price,
		shipping_fee, discount, shipping_discount, total_quantity, shipping_type,
		note, coupon_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`

	insertItemSQL = `INSERT INTO items (detail_id, book_id, quantity, price, discount)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	decrementStockSQL = `UPDATE books SET amount = amount - $2
		WHERE id = $1 AND amount >= $2`

	touchReceiptSQL = `UPDATE receipts SET last_modified = $2 WHERE id = $1`

	findReceiptByIDSQL = `SELECT r.id, r.user_id, r.email, r.total, r.products_price,
		r.shipping_fee, r.total_discount, r.coupon_code, r.last_modified,
		a.id, a.name, a.company_name, a.phone, a.city, a.address
		FROM receipts r JOIN addresses a ON a.id = r.address_id
		WHERE r.id = $1`

	monthlySalesSQL = `SELECT EXTRACT(MONTH FROM r.last_modified)::int AS month,
		COALESCE(SUM(d.total_price + d.shipping_fee - d.discount - d.shipping_discount)
			FILTER (WHERE d.status = 'COMPLETED'), 0) AS revenue,
		COUNT(*) AS orders,
		COUNT(*) FILTER (WHERE d.status = 'REFUNDED') AS refunded
		FROM details d
		JOIN receipts r ON r.id = d.receipt_id
		WHERE EXTRACT(YEAR FROM r.last_modified)::int = $1
			AND ($2::bigint IS NULL OR d.shop_id = $2)
			AND ($3::bigint IS NULL OR r.user_id = $3)
		GROUP BY 1`
)

// receiptSortFields is the allowlist for receipt listing sort keys.
var receiptSortFields = map[string]string{
	"id":           "r.id",
	"total":        "r.total",
	"email":        "r.email",
	"lastModified": "r.last_modified",
}

var _ order.ReceiptRepository = (*ReceiptRepository)(nil)

// ReceiptRepository implements order.ReceiptRepository backed by PostgreSQL.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Save persists the whole receipt graph and decrements book stock for every
// purchased item. Generated IDs are assigned in place. Stock that ran out
// between calculation and commit fails the save with order.ErrOutOfStock.
func (r *ReceiptRepository) Save(ctx context.Context, rec *order.Receipt) error {
	q := dbFrom(ctx, r.pool)

	err := q.QueryRow(ctx, insertReceiptSQL,
		rec.UserID, rec.Email, rec.Address.ID, rec.Total,
		rec.ProductsPrice, rec.ShippingFee, rec.TotalDiscount,
		nullableString(rec.CouponCode), rec.LastModified,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("inserting receipt: %w", err)
	}

	for di := range rec.Details {
		d := &rec.Details[di]
		d.ReceiptID = rec.ID

		err := q.QueryRow(ctx, insertDetailSQL,
			d.ReceiptID, d.ShopID, d.Status, d.TotalPrice,
			d.ShippingFee, d.Discount, d.ShippingDiscount,
			d.TotalQuantity, d.ShippingType, d.Note, nullableString(d.CouponCode),
		).Scan(&d.ID)
		if err != nil {
			return fmt.Errorf("inserting detail for shop %d: %w", d.ShopID, err)
		}

		for ii := range d.Items {
			it := &d.Items[ii]
			it.DetailID = d.ID

			err := q.QueryRow(ctx, insertItemSQL,
				it.DetailID, it.BookID, it.Quantity, it.Price, it.Discount,
			).Scan(&it.ID)
			if err != nil {
				return fmt.Errorf("inserting item for book %d: %w", it.BookID, err)
			}

			tag, err := q.Exec(ctx, decrementStockSQL, it.BookID, it.Quantity)
			if err != nil {
				return fmt.Errorf("decrementing stock for book %d: %w", it.BookID, err)
			}
			if tag.RowsAffected() == 0 {
				return order.ErrOutOfStock
			}
		}
	}
	return nil
}

// Touch bumps the receipt's audit timestamp.
func (r *ReceiptRepository) Touch(ctx context.Context, receiptID int64, at time.Time) error {
	_, err := dbFrom(ctx, r.pool).Exec(ctx, touchReceiptSQL, receiptID, at)
	if err != nil {
		return fmt.Errorf("touching receipt %d: %w", receiptID, err)
	}
	return nil
}

// FindByID loads a receipt with its address, details and items. Returns
// (nil, nil) when the receipt does not exist.
func (r *ReceiptRepository) FindByID(ctx context.Context, id int64) (*order.Receipt, error) {
	q := dbFrom(ctx, r.pool)

	rec, err := scanReceiptRow(q.QueryRow(ctx, findReceiptByIDSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding receipt %d: %w", id, err)
	}

	details, err := findDetailsWithItems(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	rec.Details = details
	return rec, nil
}

// FindPage lists receipts matching the filter, newest first by default.
// Details are not attached; callers bulk-load them separately.
func (r *ReceiptRepository) FindPage(ctx context.Context, f order.ReceiptFilter, p order.PageRequest) ([]order.Receipt, int64, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.UserID != nil {
		where = append(where, "r.user_id = "+arg(*f.UserID))
	}
	if f.ShopID != nil {
		where = append(where, "EXISTS (SELECT 1 FROM details d WHERE d.receipt_id = r.id AND d.shop_id = "+arg(*f.ShopID)+")")
	}
	if f.Status != nil {
		where = append(where, "EXISTS (SELECT 1 FROM details d WHERE d.receipt_id = r.id AND d.status = "+arg(string(*f.Status))+")")
	}
	if f.Keyword != "" {
		where = append(where, "r.email ILIKE "+arg("%"+f.Keyword+"%"))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	q := dbFrom(ctx, r.pool)

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM receipts r"+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting receipts: %w", err)
	}

	sortCol, ok := receiptSortFields[p.SortBy]
	if !ok {
		sortCol = "r.id"
	}
	query := `SELECT r.id, r.user_id, r.email, r.total, r.products_price,
		r.shipping_fee, r.total_discount, r.coupon_code, r.last_modified,
		a.id, a.name, a.company_name, a.phone, a.city, a.address
		FROM receipts r JOIN addresses a ON a.id = r.address_id` + cond +
		" ORDER BY " + sortCol + " " + sortDir(p.SortDir) +
		" LIMIT " + arg(p.Size) + " OFFSET " + arg(p.Offset())

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing receipts: %w", err)
	}
	receipts, err := pgx.CollectRows(rows, scanReceipt)
	if err != nil {
		return nil, 0, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, total, nil
}

// FindSummaryPage lists compact receipt summaries, one row per receipt with
// the aggregate item count.
func (r *ReceiptRepository) FindSummaryPage(ctx context.Context, f order.SummaryFilter, p order.PageRequest) ([]order.ReceiptSummary, int64, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.UserID != nil {
		where = append(where, "r.user_id = "+arg(*f.UserID))
	}
	if f.ShopID != nil {
		where = append(where, "d.shop_id = "+arg(*f.ShopID))
	}
	if f.BookID != nil {
		where = append(where, "i.book_id = "+arg(*f.BookID))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	base := ` FROM receipts r
		JOIN details d ON d.receipt_id = r.id
		JOIN items i ON i.detail_id = d.id` + cond

	q := dbFrom(ctx, r.pool)

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(DISTINCT r.id)"+base, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting summaries: %w", err)
	}

	sortCol, ok := receiptSortFields[p.SortBy]
	if !ok {
		sortCol = "r.id"
	}
	query := `SELECT r.id, r.email, r.total, COALESCE(SUM(i.quantity), 0)::int, r.last_modified` +
		base + " GROUP BY r.id ORDER BY " + sortCol + " " + sortDir(p.SortDir) +
		" LIMIT " + arg(p.Size) + " OFFSET " + arg(p.Offset())

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing summaries: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, scanSummary)
	if err != nil {
		return nil, 0, fmt.Errorf("listing summaries: %w", err)
	}
	return summaries, total, nil
}

// MonthlySales returns one bucket per calendar month of the given year.
// Months without sales are filled with zero values.
func (r *ReceiptRepository) MonthlySales(ctx context.Context, shopID, userID *int64, year int) ([]order.ChartPoint, error) {
	rows, err := dbFrom(ctx, r.pool).Query(ctx, monthlySalesSQL, year, shopID, userID)
	if err != nil {
		return nil, fmt.Errorf("monthly sales: %w", err)
	}
	buckets, err := pgx.CollectRows(rows, scanChartPoint)
	if err != nil {
		return nil, fmt.Errorf("monthly sales: %w", err)
	}

	byMonth := make(map[int]order.ChartPoint, len(buckets))
	for _, b := range buckets {
		byMonth[b.Month] = b
	}
	points := make([]order.ChartPoint, 12)
	for m := 1; m <= 12; m++ {
		p, ok := byMonth[m]
		if !ok {
			p = order.ChartPoint{Month: m, Revenue: decimal.Zero}
		}
		points[m-1] = p
	}
	return points, nil
}

func scanReceipt(row pgx.CollectableRow) (order.Receipt, error) {
	var (
		rec    order.Receipt
		coupon *string
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Email, &rec.Total, &rec.ProductsPrice,
		&rec.ShippingFee, &rec.TotalDiscount, &coupon, &rec.LastModified,
		&rec.Address.ID, &rec.Address.Name, &rec.Address.CompanyName,
		&rec.Address.Phone, &rec.Address.City, &rec.Address.Address,
	)
	if coupon != nil {
		rec.CouponCode = *coupon
	}
	return rec, err
}

func scanReceiptRow(row pgx.Row) (*order.Receipt, error) {
	var (
		rec    order.Receipt
		coupon *string
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Email, &rec.Total, &rec.ProductsPrice,
		&rec.ShippingFee, &rec.TotalDiscount, &coupon, &rec.LastModified,
		&rec.Address.ID, &rec.Address.Name, &rec.Address.CompanyName,
		&rec.Address.Phone, &rec.Address.City, &rec.Address.Address,
	)
	if err != nil {
		return nil, err
	}
	if coupon != nil {
		rec.CouponCode = *coupon
	}
	return &rec, nil
}

func scanSummary(row pgx.CollectableRow) (order.ReceiptSummary, error) {
	var s order.ReceiptSummary
	err := row.Scan(&s.ID, &s.Email, &s.Total, &s.TotalItems, &s.LastModified)
	return s, err
}

func scanChartPoint(row pgx.CollectableRow) (order.ChartPoint, error) {
	var p order.ChartPoint
	err := row.Scan(&p.Month, &p.Revenue, &p.Orders, &p.Refunded)
	return p, err
}

func sortDir(dir string) string {
	if dir == "asc" {
		return "ASC"
	}
	return "DESC"
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
