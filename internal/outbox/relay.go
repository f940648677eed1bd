// Package outbox delivers stored domain events to Kafka.
package outbox

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/treocaynho01629/ring-bookstore/internal/repository"
)

// Store provides access to pending outbox rows.
type Store interface {
	FetchPending(ctx context.Context, limit int) ([]repository.OutboxRecord, error)
	MarkSent(ctx context.Context, ids []string) error
}

// Writer is the subset of kafka.Writer the relay uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewWriter creates a Kafka writer for the order events topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// Relay polls the outbox and forwards batches of committed events to Kafka.
// Each batch is fetched, written and marked inside one transaction, so the
// row locks taken by the fetch keep concurrent relay instances off the same
// rows until the batch commits. Delivery is at-least-once: a crash after the
// Kafka ack but before the commit replays the batch.
type Relay struct {
	store     Store
	writer    Writer
	tx        TxRunner
	batchSize int
	interval  time.Duration
}

// NewRelay creates a Relay polling at the given interval.
func NewRelay(store Store, writer Writer, tx TxRunner, batchSize int, interval time.Duration) *Relay {
	return &Relay{
		store:     store,
		writer:    writer,
		tx:        tx,
		batchSize: batchSize,
		interval:  interval,
	}
}

// Run polls until ctx is cancelled. Delivery errors are logged and retried on
// the next tick rather than stopping the relay.
func (r *Relay) Run(ctx context.Context) error {
	lg := zctx.From(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sent, err := r.DeliverBatch(ctx)
			if err != nil {
				lg.Error("Outbox delivery failed", zap.Error(err))
				continue
			}
			if sent > 0 {
				lg.Info("Delivered events", zap.Int("count", sent))
			}
		}
	}
}

// DeliverBatch forwards one batch of pending events and returns how many were
// sent.
func (r *Relay) DeliverBatch(ctx context.Context) (int, error) {
	var sent int
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		records, err := r.store.FetchPending(ctx, r.batchSize)
		if err != nil {
			return errors.Wrap(err, "fetch pending")
		}
		if len(records) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, len(records))
		ids := make([]string, len(records))
		for i, rec := range records {
			msgs[i] = kafka.Message{
				Key:   []byte(rec.EventType),
				Value: rec.Payload,
				Time:  rec.CreatedAt,
				Headers: []kafka.Header{
					{Key: "event-id", Value: []byte(rec.ID)},
				},
			}
			ids[i] = rec.ID
		}

		if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
			return errors.Wrap(err, "write messages")
		}
		if err := r.store.MarkSent(ctx, ids); err != nil {
			return errors.Wrap(err, "mark sent")
		}
		sent = len(records)
		return nil
	})
	return sent, err
}
