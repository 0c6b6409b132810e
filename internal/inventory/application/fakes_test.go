package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var testLog = slog.New(slog.DiscardHandler)

type memStore struct {
	mu       sync.Mutex
	values   map[string]int64
	locks    map[string]bool
	acquires int
	releases int
	getErr   error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]int64{}, locks: map[string]bool{}}
}

func (m *memStore) TryAcquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *memStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	delete(m.locks, key)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] += delta
	return m.values[key], nil
}

func (m *memStore) SetIfAbsent(_ context.Context, key string, value int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *memStore) value(key string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *memStore) locked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[key]
}

type staticSource []StockLevel

func (s staticSource) ListStock(context.Context) ([]StockLevel, error) { return s, nil }

type failingSource struct{}

func (failingSource) ListStock(context.Context) ([]StockLevel, error) {
	return nil, errors.New("catalog unavailable")
}
