package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/treocaynho01629/ring-bookstore/internal/app"
	"github.com/treocaynho01629/ring-bookstore/internal/outbox"
	"github.com/treocaynho01629/ring-bookstore/internal/repository"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Kafka.Brokers) == 0 {
			return errors.New("kafka brokers are required: set RING_KAFKA_BROKERS")
		}

		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		writer := outbox.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = writer.Close() }()

		relay := outbox.NewRelay(
			repository.NewOutbox(pool),
			writer,
			repository.NewTxRunner(pool),
			cfg.Outbox.BatchSize,
			cfg.Outbox.Interval,
		)

		lg.Info("Relay started",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "relay")
		}
		return nil
	})
}
