package application

import (
	"context"
	"time"
)

// Locker is a mutual-exclusion lease. A holder that dies without calling
// Release loses the lock once the lease runs out.
type Locker interface {
	TryAcquire(ctx context.Context, key string, lease time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Counter interface {
	// Get reports ok=false when the key does not exist.
	Get(ctx context.Context, key string) (value int64, ok bool, err error)
	Set(ctx context.Context, key string, value int64) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	SetIfAbsent(ctx context.Context, key string, value int64) (bool, error)
}

type StockLevel struct {
	ProductID int64
	Quantity  int64
}

// StockSource lists the durable stock figures used to warm the counters.
type StockSource interface {
	ListStock(ctx context.Context) ([]StockLevel, error)
}
