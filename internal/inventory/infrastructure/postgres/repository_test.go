package postgres

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dmehra2102/orderplacement/internal/testutil"
)

func TestListStock(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	a := testutil.InsertProduct(t, ctx, pool, "SKU-A", "1.00", 10)
	b := testutil.InsertProduct(t, ctx, pool, "SKU-B", "1.00", 0)

	levels, err := NewRepository(slog.New(slog.DiscardHandler), pool).ListStock(ctx)
	if err != nil {
		t.Fatalf("list stock: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[0].ProductID != a || levels[0].Quantity != 10 || levels[1].ProductID != b || levels[1].Quantity != 0 {
		t.Fatalf("unexpected levels: %+v", levels)
	}
}
