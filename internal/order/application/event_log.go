package application

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/orderplacement/internal/order/domain"
	"github.com/dmehra2102/orderplacement/pkg/logging"
)

// EventLog is the worker's handler: it writes one audit line per order event.
type EventLog struct {
	log *slog.Logger
}

func NewEventLog(log *slog.Logger) *EventLog {
	return &EventLog{log: log}
}

func (h *EventLog) Handle(ctx context.Context, e domain.Event) error {
	log := logging.WithTrace(ctx, h.log)
	switch ev := e.(type) {
	case domain.OrderPlaced:
		log.Info("audit order placed",
			"order_id", ev.OrderID,
			"customer_id", ev.CustomerID,
			"total_amount", ev.TotalAmount.StringFixed(2),
			"items_count", ev.ItemsCount,
			"placed_at", ev.PlacedAt)
	case domain.OrderFailed:
		log.Warn("audit order failed",
			"customer_id", ev.CustomerID,
			"reason", ev.Reason,
			"failed_at", ev.FailedAt)
	default:
		log.Info("audit order event", "type", e.EventType())
	}
	return nil
}
