package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	catalog "github.com/dmehra2102/orderplacement/internal/catalog/domain"
	"github.com/dmehra2102/orderplacement/internal/order/domain"
)

var testLog = slog.New(slog.DiscardHandler)

type fakeCatalog struct {
	products map[int64]catalog.Product
	err      error
	calls    int
}

func (f *fakeCatalog) GetManyByIDs(_ context.Context, ids []int64) ([]catalog.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeInventory struct {
	mu           sync.Mutex
	stock        map[int64]int64
	reserveErr   map[int64]error
	releaseErr   error
	availErr     error
	reserveCalls int
	releases     []reservation
	releaseCtx   []error
}

func newFakeInventory(stock map[int64]int64) *fakeInventory {
	return &fakeInventory{stock: stock, reserveErr: map[int64]error{}}
}

func (f *fakeInventory) CheckAndReserve(_ context.Context, productID int64, quantity int, _ int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls++
	if err := f.reserveErr[productID]; err != nil {
		return false, err
	}
	v, ok := f.stock[productID]
	if !ok || v < int64(quantity) {
		return false, nil
	}
	f.stock[productID] = v - int64(quantity)
	return true, nil
}

func (f *fakeInventory) Release(ctx context.Context, productID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCtx = append(f.releaseCtx, ctx.Err())
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.releases = append(f.releases, reservation{productID: productID, quantity: quantity})
	f.stock[productID] += int64(quantity)
	return nil
}

func (f *fakeInventory) Available(_ context.Context, productID int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.availErr != nil {
		return 0, false, f.availErr
	}
	v, ok := f.stock[productID]
	return v, ok, nil
}

func (f *fakeInventory) level(productID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[productID]
}

type fakeRepo struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]domain.Order
	saveErr error
	// failOnCancel mimics a driver that refuses work on a cancelled context.
	failOnCancel bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[int64]domain.Order{}}
}

func (f *fakeRepo) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnCancel && ctx.Err() != nil {
		return domain.Order{}, ctx.Err()
	}
	if f.saveErr != nil {
		return domain.Order{}, f.saveErr
	}
	f.nextID++
	o.ID = f.nextID
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
	}
	return o, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) ofType(eventType string) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Event
	for _, e := range f.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
