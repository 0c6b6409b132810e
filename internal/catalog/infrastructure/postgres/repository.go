package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/orderplacement/internal/catalog/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// GetManyByIDs returns the products that exist; missing ids are simply absent
// from the result.
func (r *Repository) GetManyByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, sku, name, description, price::text, stock_quantity
		FROM products
		WHERE id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

func (r *Repository) GetBySKU(ctx context.Context, sku string) (domain.Product, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sku, name, description, price::text, stock_quantity
		FROM products
		WHERE sku = $1`, sku)
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("query product %s: %w", sku, err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("scan product %s: %w", sku, err)
	}
	if len(products) == 0 {
		return domain.Product{}, false, nil
	}
	return products[0], true, nil
}

func (r *Repository) Upsert(ctx context.Context, p domain.Product) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, price, stock_quantity)
		VALUES ($1, $2, $3, $4::numeric, $5)
		ON CONFLICT (sku) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			updated_at = now()
		RETURNING (xmax = 0)`,
		p.SKU, p.Name, p.Description, p.Price.StringFixed(2), p.StockQuantity,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert product %s: %w", p.SKU, err)
	}
	return created, nil
}

func scanProduct(row pgx.CollectableRow) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &price, &p.StockQuantity); err != nil {
		return domain.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("parse price for %s: %w", p.SKU, err)
	}
	p.Price = d
	return p, nil
}
