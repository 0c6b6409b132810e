package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/orderplacement/internal/order/domain"
)

type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderRequest struct {
	CustomerID int64         `json:"customer_id"`
	Items      []ItemRequest `json:"items"`
}

// Validate checks request shape only; product existence and stock are the
// saga's job.
func (r PlaceOrderRequest) Validate() error {
	var errs []error
	if r.CustomerID <= 0 {
		errs = append(errs, errors.New("customer_id must be positive"))
	}
	switch {
	case len(r.Items) == 0:
		errs = append(errs, errors.New("items must not be empty"))
	case len(r.Items) > domain.MaxItemsPerOrder:
		errs = append(errs, fmt.Errorf("items must not exceed %d", domain.MaxItemsPerOrder))
	}
	for i, it := range r.Items {
		if it.ProductID <= 0 {
			errs = append(errs, fmt.Errorf("items[%d].product_id must be positive", i))
		}
		if it.Quantity <= 0 {
			errs = append(errs, fmt.Errorf("items[%d].quantity must be positive", i))
		}
	}
	return errors.Join(errs...)
}

// distinctProductIDs keeps first-seen order.
func (r PlaceOrderRequest) distinctProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Items))
	ids := make([]int64, 0, len(r.Items))
	for _, it := range r.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

type ItemRecord struct {
	ProductID   int64  `json:"product_id"`
	ProductSKU  string `json:"product_sku"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type OrderRecord struct {
	ID          int64        `json:"id"`
	CustomerID  int64        `json:"customer_id"`
	Status      string       `json:"status"`
	Items       []ItemRecord `json:"items"`
	TotalAmount string       `json:"total_amount"`
	TotalItems  int          `json:"total_items"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func NewOrderRecord(o domain.Order) OrderRecord {
	items := make([]ItemRecord, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemRecord{
			ProductID:   it.ProductID,
			ProductSKU:  it.ProductSKU,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Subtotal:    it.Subtotal().StringFixed(2),
		})
	}
	return OrderRecord{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		Items:       items,
		TotalAmount: o.TotalAmount().StringFixed(2),
		TotalItems:  o.TotalItems(),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
