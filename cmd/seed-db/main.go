// Command seed-db loads a catalog fixture (shops with their books) into the
// database for local development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/treocaynho01629/ring-bookstore/internal/repository"
)

const (
	upsertShopSQL = `INSERT INTO shops (id, name, owner_id) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, owner_id = EXCLUDED.owner_id`

	upsertBookSQL = `INSERT INTO books (id, shop_id, title, price, discount, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			discount = EXCLUDED.discount,
			amount = EXCLUDED.amount`
)

type shopJSON struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	OwnerID int64      `json:"ownerId"`
	Books   []bookJSON `json:"books"`
}

type bookJSON struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"`
	Amount   int             `json:"amount"`
}

func main() {
	var (
		databaseURL string
		shopsFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&shopsFile, "shops-file", "db/seed/shops.json", "path to shops JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, shopsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, shopsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedShops(ctx, pool, shopsFile); err != nil {
		return errors.Wrap(err, "seed shops")
	}

	return nil
}

func seedShops(ctx context.Context, pool *pgxpool.Pool, shopsFile string) error {
	slog.Info("reading shops file", slog.String("path", shopsFile))

	data, err := os.ReadFile(shopsFile)
	if err != nil {
		return errors.Wrap(err, "read shops file")
	}

	var shops []shopJSON
	if err := json.Unmarshal(data, &shops); err != nil {
		return errors.Wrap(err, "parse shops JSON")
	}

	slog.Info("upserting shops", slog.Int("count", len(shops)))

	for _, s := range shops {
		if _, err := pool.Exec(ctx, upsertShopSQL, s.ID, s.Name, s.OwnerID); err != nil {
			return errors.Wrapf(err, "upsert shop %d", s.ID)
		}

		for _, b := range s.Books {
			if _, err := pool.Exec(ctx, upsertBookSQL,
				b.ID, s.ID, b.Title, b.Price, b.Discount, b.Amount,
			); err != nil {
				return errors.Wrapf(err, "upsert book %d", b.ID)
			}
		}

		slog.Info("upserted shop",
			slog.Int64("id", s.ID),
			slog.String("name", s.Name),
			slog.Int("books", len(s.Books)),
		)
	}

	return nil
}
