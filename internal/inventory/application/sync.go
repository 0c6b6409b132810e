package application

import (
	"context"
	"fmt"

	"github.com/dmehra2102/orderplacement/internal/inventory/domain"
)

type SyncResult struct {
	Written int
	Skipped int
}

// SyncFromCatalog copies durable stock figures into the counters. Existing
// counters are left alone unless force is set, because they already reflect
// reservations the durable figures do not know about. Forced writes go
// through SetStock and take the product lock.
func (e *Engine) SyncFromCatalog(ctx context.Context, src StockSource, force bool) (SyncResult, error) {
	levels, err := src.ListStock(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list stock: %w", err)
	}

	var res SyncResult
	for _, lvl := range levels {
		if force {
			if err := e.SetStock(ctx, lvl.ProductID, lvl.Quantity); err != nil {
				return res, fmt.Errorf("set stock for product %d: %w", lvl.ProductID, err)
			}
			res.Written++
			continue
		}
		written, err := e.counters.SetIfAbsent(ctx, domain.StockKey(lvl.ProductID), lvl.Quantity)
		if err != nil {
			return res, fmt.Errorf("seed stock for product %d: %w", lvl.ProductID, err)
		}
		if written {
			res.Written++
		} else {
			res.Skipped++
		}
	}

	e.log.Info("stock counters synced", "written", res.Written, "skipped", res.Skipped, "force", force)
	return res, nil
}
