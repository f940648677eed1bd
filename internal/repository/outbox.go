package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/order"
)

const (
	insertOutboxSQL = `INSERT INTO outbox (id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)`

	fetchPendingOutboxSQL = `SELECT id, event_type, payload, created_at
		FROM outbox WHERE sent_at IS NULL ORDER BY created_at LIMIT $1
		FOR UPDATE SKIP LOCKED`

	markOutboxSentSQL = `UPDATE outbox SET sent_at = $2 WHERE id = ANY($1)`
)

// OutboxRecord is a stored event awaiting delivery.
type OutboxRecord struct {
	ID        string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

var _ order.EventPublisher = (*Outbox)(nil)

// Outbox implements order.EventPublisher by writing events to the outbox
// table. Called inside a transaction, the row commits or aborts with it; the
// relay delivers committed rows asynchronously.
type Outbox struct {
	pool *pgxpool.Pool
}

// NewOutbox returns an Outbox that uses the given pool.
func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// Publish records an event for asynchronous delivery.
func (o *Outbox) Publish(ctx context.Context, e order.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", e.Type, err)
	}
	_, err = dbFrom(ctx, o.pool).Exec(ctx, insertOutboxSQL, e.ID, e.Type, payload, e.At)
	if err != nil {
		return fmt.Errorf("inserting outbox event %s: %w", e.Type, err)
	}
	return nil
}

// FetchPending locks and returns up to limit undelivered events, oldest
// first. Rows locked by a concurrent relay instance are skipped. The locks
// live only as long as the surrounding transaction, so callers must fetch and
// mark within one.
func (o *Outbox) FetchPending(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := dbFrom(ctx, o.pool).Query(ctx, fetchPendingOutboxSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching pending events: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanOutboxRecord)
	if err != nil {
		return nil, fmt.Errorf("fetching pending events: %w", err)
	}
	return records, nil
}

// MarkSent stamps the given events as delivered.
func (o *Outbox) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := dbFrom(ctx, o.pool).Exec(ctx, markOutboxSentSQL, ids, time.Now())
	if err != nil {
		return fmt.Errorf("marking events sent: %w", err)
	}
	return nil
}

func scanOutboxRecord(row pgx.CollectableRow) (OutboxRecord, error) {
	var rec OutboxRecord
	err := row.Scan(&rec.ID, &rec.EventType, &rec.Payload, &rec.CreatedAt)
	return rec, err
}
