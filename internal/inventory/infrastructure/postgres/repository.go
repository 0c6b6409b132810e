package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/orderplacement/internal/inventory/application"
)

// Repository reads the durable stock figures kept on the products table.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{
		log:  log,
		pool: pool,
	}
}

func (r *Repository) ListStock(ctx context.Context) ([]application.StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, stock_quantity FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	levels, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (application.StockLevel, error) {
		var lvl application.StockLevel
		err := row.Scan(&lvl.ProductID, &lvl.Quantity)
		return lvl, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan stock: %w", err)
	}
	r.log.Debug("stock levels loaded", "products", len(levels))
	return levels, nil
}
