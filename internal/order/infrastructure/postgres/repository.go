package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/orderplacement/internal/order/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Save inserts a new order with all of its items in one transaction, or
// updates the status of an existing one.
func (r *Repository) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if o.ID == 0 {
		err = insertOrder(ctx, tx, &o)
	} else {
		err = updateOrder(ctx, tx, o)
	}
	if err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit order: %w", err)
	}
	r.log.Debug("order saved", "order_id", o.ID, "status", o.Status)
	return o, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING id`,
		o.CustomerID, string(o.Status), o.TotalAmount().StringFixed(2), o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, product_sku, product_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6::numeric)`,
			o.ID, item.ProductID, item.ProductSKU, item.ProductName, item.Quantity, item.UnitPrice.StringFixed(2))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func updateOrder(ctx context.Context, tx pgx.Tx, o domain.Order) error {
	ct, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		o.ID, string(o.Status), o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", o.ID, domain.ErrOrderNotFound)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, status, created_at, updated_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CustomerID, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order %d: %w", id, err)
	}
	o.Status = domain.OrderStatus(status)

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, product_sku, product_name, quantity, unit_price::text
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order items %d: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderItem, error) {
		var (
			item  domain.OrderItem
			price string
		)
		if err := row.Scan(&item.ProductID, &item.ProductSKU, &item.ProductName, &item.Quantity, &price); err != nil {
			return domain.OrderItem{}, err
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return domain.OrderItem{}, err
		}
		item.UnitPrice = d
		return item, nil
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("scan order items %d: %w", id, err)
	}
	return o, nil
}
