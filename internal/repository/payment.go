package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/order"
)

const (
	insertAddressSQL = `INSERT INTO addresses (name, company_name, phone, city, address)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	insertPaymentSQL = `INSERT INTO payments (receipt_id, type, amount, status)
		VALUES ($1, $2, $3, $4) RETURNING id`

	findPaymentByReceiptSQL = `SELECT id, receipt_id, type, amount, status
		FROM payments WHERE receipt_id = $1`
)

var _ order.AddressRepository = (*AddressRepository)(nil)

// AddressRepository implements order.AddressRepository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// Save inserts a shipping address and assigns its generated ID in place.
func (r *AddressRepository) Save(ctx context.Context, a *order.Address) error {
	err := dbFrom(ctx, r.pool).QueryRow(ctx, insertAddressSQL,
		a.Name, a.CompanyName, a.Phone, a.City, a.Address,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("inserting address: %w", err)
	}
	return nil
}

var _ order.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository implements order.PaymentRepository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Save inserts a payment record and assigns its generated ID in place.
func (r *PaymentRepository) Save(ctx context.Context, p *order.PaymentInfo) error {
	err := dbFrom(ctx, r.pool).QueryRow(ctx, insertPaymentSQL,
		p.ReceiptID, p.Type, p.Amount, p.Status,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting payment for receipt %d: %w", p.ReceiptID, err)
	}
	return nil
}

// FindByReceipt loads the payment attached to a receipt. Returns (nil, nil)
// when the receipt has no payment record.
func (r *PaymentRepository) FindByReceipt(ctx context.Context, receiptID int64) (*order.PaymentInfo, error) {
	var p order.PaymentInfo
	err := dbFrom(ctx, r.pool).QueryRow(ctx, findPaymentByReceiptSQL, receiptID).Scan(
		&p.ID, &p.ReceiptID, &p.Type, &p.Amount, &p.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding payment for receipt %d: %w", receiptID, err)
	}
	return &p, nil
}
