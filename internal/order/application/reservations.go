package application

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/orderplacement/pkg/metrics"
)

type reservation struct {
	productID int64
	quantity  int
}

// reservations is the saga-local record of units taken from the counters.
// It only lives for one PlaceOrder call.
type reservations []reservation

func (r *reservations) add(productID int64, quantity int) {
	*r = append(*r, reservation{productID: productID, quantity: quantity})
}

// compensate returns every reserved unit. It runs on a context detached from
// the caller so a disconnect cannot strand stock. A failed release is logged
// and counted; it never replaces the error that triggered the rollback.
func (r reservations) compensate(ctx context.Context, log *slog.Logger, inv Inventory) {
	if len(r) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, res := range r {
		if err := inv.Release(ctx, res.productID, res.quantity); err != nil {
			log.Error("reservation rollback failed",
				"product_id", res.productID, "quantity", res.quantity, "err", err)
			metrics.RecordCompensation("failed")
			continue
		}
		metrics.RecordCompensation("released")
	}
	log.Info("reservations rolled back", "count", len(r))
}
