package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced = "order.placed"
	EventOrderFailed = "order.failed"
)

type Event interface {
	EventType() string
	OccurredAt() time.Time
	// Key is used as the broker partition key.
	Key() string
}

type OrderPlaced struct {
	OrderID     int64
	CustomerID  int64
	TotalAmount decimal.Decimal
	ItemsCount  int
	PlacedAt    time.Time
}

// NewOrderPlaced stamps the event with at, the moment it is emitted, which
// can trail the order's CreatedAt.
func NewOrderPlaced(o Order, at time.Time) OrderPlaced {
	return OrderPlaced{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.TotalAmount(),
		ItemsCount:  o.TotalItems(),
		PlacedAt:    at,
	}
}

func (e OrderPlaced) EventType() string     { return EventOrderPlaced }
func (e OrderPlaced) OccurredAt() time.Time { return e.PlacedAt }
func (e OrderPlaced) Key() string           { return strconv.FormatInt(e.OrderID, 10) }

type orderPlacedJSON struct {
	OrderID     int64     `json:"order_id"`
	CustomerID  int64     `json:"customer_id"`
	TotalAmount string    `json:"total_amount"`
	ItemsCount  int       `json:"items_count"`
	PlacedAt    time.Time `json:"placed_at"`
}

func (e OrderPlaced) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderPlacedJSON{
		OrderID:     e.OrderID,
		CustomerID:  e.CustomerID,
		TotalAmount: e.TotalAmount.StringFixed(2),
		ItemsCount:  e.ItemsCount,
		PlacedAt:    e.PlacedAt,
	})
}

func (e *OrderPlaced) UnmarshalJSON(b []byte) error {
	var raw orderPlacedJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	total, err := decimal.NewFromString(raw.TotalAmount)
	if err != nil {
		return fmt.Errorf("total_amount: %w", err)
	}
	*e = OrderPlaced{
		OrderID:     raw.OrderID,
		CustomerID:  raw.CustomerID,
		TotalAmount: total,
		ItemsCount:  raw.ItemsCount,
		PlacedAt:    raw.PlacedAt,
	}
	return nil
}

// OrderFailed always carries OrderID 0: no order row exists when it is emitted.
type OrderFailed struct {
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}

func NewOrderFailed(customerID int64, reason string, at time.Time) OrderFailed {
	return OrderFailed{CustomerID: customerID, Reason: reason, FailedAt: at.UTC()}
}

func (e OrderFailed) EventType() string     { return EventOrderFailed }
func (e OrderFailed) OccurredAt() time.Time { return e.FailedAt }
func (e OrderFailed) Key() string           { return "customer-" + strconv.FormatInt(e.CustomerID, 10) }

type Envelope struct {
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func MarshalEnvelope(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return json.Marshal(Envelope{EventType: e.EventType(), OccurredAt: e.OccurredAt().UTC(), Data: data})
}

// DecodeEvent parses an envelope back into its concrete event.
func DecodeEvent(b []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.EventType {
	case EventOrderPlaced:
		var e OrderPlaced
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return e, nil
	case EventOrderFailed:
		var e OrderFailed
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.EventType)
	}
}
