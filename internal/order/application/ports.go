package application

import (
	"context"

	catalog "github.com/dmehra2102/orderplacement/internal/catalog/domain"
	"github.com/dmehra2102/orderplacement/internal/order/domain"
)

type ProductCatalog interface {
	// GetManyByIDs omits ids that do not exist rather than failing.
	GetManyByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error)
}

type Inventory interface {
	CheckAndReserve(ctx context.Context, productID int64, quantity int, maxAttempts int) (bool, error)
	Release(ctx context.Context, productID int64, quantity int) error
	Available(ctx context.Context, productID int64) (int64, bool, error)
}

type OrderRepository interface {
	// Save assigns an id on first save. The order row and its items are
	// written atomically.
	Save(ctx context.Context, o domain.Order) (domain.Order, error)
	Get(ctx context.Context, id int64) (domain.Order, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event) error
}
