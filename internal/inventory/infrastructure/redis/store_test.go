package redis

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/orderplacement/internal/inventory/application"
	"github.com/dmehra2102/orderplacement/internal/inventory/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestLockLease(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	key := domain.LockKey(1)

	ok, err := s.TryAcquire(ctx, key, 30*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first acquire, got %v %v", ok, err)
	}
	if ok, _ := s.TryAcquire(ctx, key, 30*time.Second); ok {
		t.Fatalf("second acquire should fail while held")
	}

	// A holder that never releases loses the lock once the lease runs out.
	mr.FastForward(31 * time.Second)
	if ok, _ := s.TryAcquire(ctx, key, 30*time.Second); !ok {
		t.Fatalf("expected acquire after lease expiry")
	}

	if err := s.Release(ctx, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("lock key still present after release")
	}
}

func TestReleaseDoesNotCheckOwnership(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	key := domain.LockKey(2)

	if ok, _ := s.TryAcquire(ctx, key, time.Second); !ok {
		t.Fatalf("expected first acquire")
	}
	mr.FastForward(2 * time.Second)
	if ok, _ := s.TryAcquire(ctx, key, 30*time.Second); !ok {
		t.Fatalf("expected second holder after lease expiry")
	}

	// The first holder's late release drops the second holder's lock.
	if err := s.Release(ctx, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected lock removed regardless of holder")
	}
}

func TestCounterOps(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	key := domain.StockKey(7)

	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected absent, got %v %v", ok, err)
	}

	if err := s.Set(ctx, key, 10); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := s.Get(ctx, key); err != nil || !ok || v != 10 {
		t.Fatalf("expected 10, got %d %v %v", v, ok, err)
	}

	if v, err := s.IncrBy(ctx, key, 5); err != nil || v != 15 {
		t.Fatalf("expected 15, got %d %v", v, err)
	}

	written, err := s.SetIfAbsent(ctx, key, 1)
	if err != nil || written {
		t.Fatalf("expected existing key to be kept, got %v %v", written, err)
	}
	if got, _ := mr.Get(key); got != "15" {
		t.Fatalf("expected 15 stored, got %q", got)
	}

	mr.Set(domain.StockKey(8), "not-a-number")
	if _, _, err := s.Get(ctx, domain.StockKey(8)); err == nil {
		t.Fatalf("expected parse error for non-integer counter")
	}
}

func TestEngineOverRedis(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	e := application.NewEngine(slog.New(slog.DiscardHandler), s, s, application.Config{
		Lease:       30 * time.Second,
		RetryDelay:  time.Millisecond,
		MaxAttempts: 2000,
	})
	if err := s.Set(ctx, domain.StockKey(1), 5); err != nil {
		t.Fatalf("set: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := e.CheckAndReserve(ctx, 1, 1, 0)
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if ok {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 5 {
		t.Fatalf("expected 5 reservations, got %d", success)
	}
	if got, _ := mr.Get(domain.StockKey(1)); got != "0" {
		t.Fatalf("expected counter 0, got %q", got)
	}
	if mr.Exists(domain.LockKey(1)) {
		t.Fatalf("lock left behind")
	}
}

func TestEngineReleaseOverRedis(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	e := application.NewEngine(slog.New(slog.DiscardHandler), s, s, application.DefaultConfig())
	if err := s.Set(ctx, domain.StockKey(2), 7); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := e.Release(ctx, 2, 3); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got, _ := mr.Get(domain.StockKey(2)); got != "10" {
		t.Fatalf("expected 10, got %q", got)
	}
}
