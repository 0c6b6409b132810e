package postgres

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/orderplacement/internal/order/domain"
	"github.com/dmehra2102/orderplacement/internal/testutil"
	"github.com/dmehra2102/orderplacement/pkg/outbox"
)

func TestRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	log := slog.New(slog.DiscardHandler)
	repo := NewRepository(log, pool)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Save assigns id and Get returns items", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		pid := testutil.InsertProduct(t, ctx, pool, "SKU-1", "100.00", 10)

		item, _ := domain.NewOrderItem(pid, "SKU-1", "Product SKU-1", 3, decimal.RequireFromString("100.00"))
		o, err := domain.NewOrder(7, []domain.OrderItem{item}, at)
		if err != nil {
			t.Fatalf("new order: %v", err)
		}

		saved, err := repo.Save(ctx, o)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if saved.ID == 0 {
			t.Fatalf("expected id to be assigned")
		}

		got, err := repo.Get(ctx, saved.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.CustomerID != 7 || got.Status != domain.StatusPending || len(got.Items) != 1 {
			t.Fatalf("unexpected order: %+v", got)
		}
		if !got.TotalAmount().Equal(decimal.NewFromInt(300)) {
			t.Fatalf("expected total 300, got %s", got.TotalAmount())
		}

		confirmed, _ := got.Confirm(at.Add(time.Minute))
		if _, err := repo.Save(ctx, confirmed); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, _ = repo.Get(ctx, saved.ID)
		if got.Status != domain.StatusConfirmed {
			t.Fatalf("expected confirmed, got %s", got.Status)
		}
	})

	t.Run("item failure leaves no order row", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		// Product 9999 does not exist, so the item insert violates the FK.
		item, _ := domain.NewOrderItem(9999, "X", "X", 1, decimal.NewFromInt(1))
		o, _ := domain.NewOrder(7, []domain.OrderItem{item}, at)
		if _, err := repo.Save(ctx, o); err == nil {
			t.Fatalf("expected error")
		}
		var n int
		if err := pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected no orders, got %d", n)
		}
	})

	t.Run("Get missing order", func(t *testing.T) {
		if _, err := repo.Get(context.Background(), 123456); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("outbox round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		pub := NewOutboxPublisher(log, pool)
		store := NewOutboxStore(log, pool)

		if err := pub.Publish(ctx, domain.NewOrderFailed(7, "boom", at)); err != nil {
			t.Fatalf("publish: %v", err)
		}

		batch, err := store.LockBatch(ctx, "relay-a", 10, time.Minute)
		if err != nil || len(batch) != 1 {
			t.Fatalf("expected 1 event, got %d (%v)", len(batch), err)
		}
		if batch[0].Type != domain.EventOrderFailed || batch[0].Headers["content-type"] != "application/json" {
			t.Fatalf("unexpected event: %+v", batch[0])
		}
		if _, err := domain.DecodeEvent(batch[0].Payload); err != nil {
			t.Fatalf("payload not decodable: %v", err)
		}

		again, err := store.LockBatch(ctx, "relay-b", 10, time.Minute)
		if err != nil || len(again) != 0 {
			t.Fatalf("leased row handed out twice: %d (%v)", len(again), err)
		}

		if err := store.MarkFailed(ctx, batch[0].ID, "broker down"); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
		retry, err := store.LockBatch(ctx, "relay-b", 10, time.Minute)
		if err != nil || len(retry) != 1 || retry[0].RetryCount != 1 {
			t.Fatalf("expected requeued event, got %+v (%v)", retry, err)
		}
		if err := store.MarkSent(ctx, []int64{retry[0].ID}); err != nil {
			t.Fatalf("mark sent: %v", err)
		}
		if got := outboxStatus(t, ctx, pool, retry[0].ID); got != string(outbox.StatusSent) {
			t.Fatalf("expected %s, got %s", outbox.StatusSent, got)
		}
	})

	t.Run("outbox parks row after last retry", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		pub := NewOutboxPublisher(log, pool)
		store := NewOutboxStore(log, pool)
		store.maxRetries = 1

		if err := pub.Publish(ctx, domain.NewOrderFailed(7, "boom", at)); err != nil {
			t.Fatalf("publish: %v", err)
		}
		batch, err := store.LockBatch(ctx, "relay-a", 10, time.Minute)
		if err != nil || len(batch) != 1 {
			t.Fatalf("expected 1 event, got %d (%v)", len(batch), err)
		}
		if err := store.MarkFailed(ctx, batch[0].ID, "broker down"); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
		if got := outboxStatus(t, ctx, pool, batch[0].ID); got != string(outbox.StatusFailed) {
			t.Fatalf("expected %s, got %s", outbox.StatusFailed, got)
		}
		if again, err := store.LockBatch(ctx, "relay-a", 10, time.Minute); err != nil || len(again) != 0 {
			t.Fatalf("parked row handed out again: %d (%v)", len(again), err)
		}
	})
}

func outboxStatus(t *testing.T, ctx context.Context, pool *pgxpool.Pool, id int64) string {
	t.Helper()
	var status string
	if err := pool.QueryRow(ctx, `SELECT status FROM outbox WHERE id = $1`, id).Scan(&status); err != nil {
		t.Fatalf("read outbox status: %v", err)
	}
	return status
}
