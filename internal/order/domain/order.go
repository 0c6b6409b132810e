package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const MaxItemsPerOrder = 50

type Order struct {
	ID         int64
	CustomerID int64
	Items      []OrderItem
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem snapshots the product at placement time so later catalog edits
// do not rewrite history.
type OrderItem struct {
	ProductID   int64
	ProductSKU  string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

func NewOrderItem(productID int64, sku, name string, quantity int, unitPrice decimal.Decimal) (OrderItem, error) {
	if productID <= 0 {
		return OrderItem{}, fmt.Errorf("%w: product id must be positive", ErrInvalidOrder)
	}
	if quantity <= 0 {
		return OrderItem{}, fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidOrder, productID)
	}
	if unitPrice.IsNegative() {
		return OrderItem{}, fmt.Errorf("%w: unit price cannot be negative for product %d", ErrInvalidOrder, productID)
	}
	return OrderItem{
		ProductID:   productID,
		ProductSKU:  sku,
		ProductName: name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}, nil
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func NewOrder(customerID int64, items []OrderItem, now time.Time) (Order, error) {
	if customerID <= 0 {
		return Order{}, fmt.Errorf("%w: customer id must be positive", ErrInvalidOrder)
	}
	if len(items) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}
	if len(items) > MaxItemsPerOrder {
		return Order{}, fmt.Errorf("%w: order cannot contain more than %d items", ErrInvalidOrder, MaxItemsPerOrder)
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidOrder, item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return Order{}, fmt.Errorf("%w: unit price cannot be negative for product %d", ErrInvalidOrder, item.ProductID)
		}
	}

	now = now.UTC()
	return Order{
		CustomerID: customerID,
		Items:      append([]OrderItem(nil), items...),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (o Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (o Order) TotalItems() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

func (o Order) CanTransitionTo(to OrderStatus) bool { return CanTransition(o.Status, to) }

func (o Order) IsTerminal() bool { return o.Status.Terminal() }

func (o Order) Confirm(at time.Time) (Order, error)         { return o.moveTo(StatusConfirmed, at) }
func (o Order) StartProcessing(at time.Time) (Order, error) { return o.moveTo(StatusProcessing, at) }
func (o Order) Ship(at time.Time) (Order, error)            { return o.moveTo(StatusShipped, at) }
func (o Order) Deliver(at time.Time) (Order, error)         { return o.moveTo(StatusDelivered, at) }
func (o Order) Cancel(at time.Time) (Order, error)          { return o.moveTo(StatusCancelled, at) }
func (o Order) MarkAsFailed(at time.Time) (Order, error)    { return o.moveTo(StatusFailed, at) }

// moveTo works on a copy; the receiver is left untouched on both paths.
func (o Order) moveTo(to OrderStatus, at time.Time) (Order, error) {
	next, err := Transition(o.Status, to)
	if err != nil {
		return o, err
	}
	o.Items = append([]OrderItem(nil), o.Items...)
	o.Status = next
	o.UpdatedAt = at.UTC()
	return o, nil
}
