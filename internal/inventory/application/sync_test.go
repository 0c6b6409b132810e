package application

import (
	"context"
	"errors"
	"testing"

	"github.com/dmehra2102/orderplacement/internal/inventory/domain"
)

func TestSyncFromCatalog(t *testing.T) {
	ctx := context.Background()
	src := staticSource{{ProductID: 1, Quantity: 10}, {ProductID: 2, Quantity: 4}}

	t.Run("only fills absent counters", func(t *testing.T) {
		store := newMemStore()
		store.values[domain.StockKey(1)] = 3
		e := NewEngine(testLog, store, store, fastConfig())

		res, err := e.SyncFromCatalog(ctx, src, false)
		if err != nil {
			t.Fatalf("sync: %v", err)
		}
		if res.Written != 1 || res.Skipped != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
		if v, _ := store.value(domain.StockKey(1)); v != 3 {
			t.Fatalf("existing counter overwritten: %d", v)
		}
		if v, _ := store.value(domain.StockKey(2)); v != 4 {
			t.Fatalf("expected 4, got %d", v)
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		store := newMemStore()
		store.values[domain.StockKey(1)] = 3
		e := NewEngine(testLog, store, store, fastConfig())

		res, err := e.SyncFromCatalog(ctx, src, true)
		if err != nil {
			t.Fatalf("sync: %v", err)
		}
		if res.Written != 2 || res.Skipped != 0 {
			t.Fatalf("unexpected result %+v", res)
		}
		if v, _ := store.value(domain.StockKey(1)); v != 10 {
			t.Fatalf("expected 10, got %d", v)
		}
	})

	t.Run("force respects a held lock", func(t *testing.T) {
		store := newMemStore()
		store.values[domain.StockKey(1)] = 3
		store.locks[domain.LockKey(1)] = true
		e := NewEngine(testLog, store, store, fastConfig())

		_, err := e.SyncFromCatalog(ctx, src, true)
		if !errors.Is(err, domain.ErrLockAcquisition) {
			t.Fatalf("expected lock acquisition error, got %v", err)
		}
		if v, _ := store.value(domain.StockKey(1)); v != 3 {
			t.Fatalf("counter overwritten under a held lock: %d", v)
		}
	})

	t.Run("source error", func(t *testing.T) {
		store := newMemStore()
		e := NewEngine(testLog, store, store, fastConfig())
		if _, err := e.SyncFromCatalog(ctx, failingSource{}, false); err == nil {
			t.Fatalf("expected error")
		}
	})
}
