package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/orderplacement/internal/inventory/domain"
	"github.com/dmehra2102/orderplacement/pkg/metrics"
)

type Config struct {
	Lease       time.Duration
	RetryDelay  time.Duration
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		Lease:       30 * time.Second,
		RetryDelay:  100 * time.Millisecond,
		MaxAttempts: 3,
	}
}

// Engine reserves and releases units against per-product counters. Every
// read-modify-write of a counter happens while holding that product's lock;
// releases are plain increments and take no lock.
type Engine struct {
	log      *slog.Logger
	locks    Locker
	counters Counter
	cfg      Config
	tracer   trace.Tracer
}

func NewEngine(log *slog.Logger, locks Locker, counters Counter, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Engine{
		log:      log,
		locks:    locks,
		counters: counters,
		cfg:      cfg,
		tracer:   otel.Tracer("inventory-engine"),
	}
}

// CheckAndReserve decrements the product counter by quantity if enough units
// remain. It returns false when stock is short or the counter is missing; a
// missing counter never falls back to the catalog. maxAttempts <= 0 uses the
// configured default.
func (e *Engine) CheckAndReserve(ctx context.Context, productID int64, quantity int, maxAttempts int) (bool, error) {
	if quantity <= 0 {
		return false, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	if maxAttempts <= 0 {
		maxAttempts = e.cfg.MaxAttempts
	}

	ctx, span := e.tracer.Start(ctx, "inventory.CheckAndReserve", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	attempts, err := e.acquire(ctx, productID, maxAttempts)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrLockAcquisition) {
			span.SetStatus(codes.Error, "lock timeout")
			metrics.RecordReservation("lock_timeout")
		} else {
			span.SetStatus(codes.Error, "lock")
		}
		return false, err
	}
	span.SetAttributes(attribute.Int("lock.attempts", attempts))

	ok, err := e.reserveLocked(ctx, productID, quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve")
	}
	return ok, err
}

// acquire takes the product lock within maxAttempts tries and reports how
// many it needed.
func (e *Engine) acquire(ctx context.Context, productID int64, maxAttempts int) (int, error) {
	lockKey := domain.LockKey(productID)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		acquired, err := e.locks.TryAcquire(ctx, lockKey, e.cfg.Lease)
		if err != nil {
			return attempt, fmt.Errorf("acquire lock for product %d: %w", productID, err)
		}
		if acquired {
			return attempt, nil
		}

		metrics.RecordLockContention()
		e.log.Debug("inventory lock busy", "product_id", productID, "attempt", attempt)
		if attempt < maxAttempts {
			if err := sleep(ctx, e.cfg.RetryDelay); err != nil {
				return attempt, err
			}
		}
	}
	return maxAttempts, &domain.LockAcquisitionError{ProductID: productID, Attempts: maxAttempts}
}

// unlock must run even if the caller has gone away.
func (e *Engine) unlock(ctx context.Context, productID int64) {
	if err := e.locks.Release(context.WithoutCancel(ctx), domain.LockKey(productID)); err != nil {
		e.log.Warn("inventory lock release failed", "product_id", productID, "err", err)
	}
}

func (e *Engine) reserveLocked(ctx context.Context, productID int64, quantity int) (bool, error) {
	defer e.unlock(ctx, productID)

	stockKey := domain.StockKey(productID)
	available, ok, err := e.counters.Get(ctx, stockKey)
	if err != nil {
		return false, fmt.Errorf("read stock for product %d: %w", productID, err)
	}
	if !ok {
		e.log.Warn("stock counter missing", "product_id", productID)
		metrics.RecordReservation("missing")
		return false, nil
	}
	if available < int64(quantity) {
		metrics.RecordReservation("insufficient")
		return false, nil
	}
	if err := e.counters.Set(ctx, stockKey, available-int64(quantity)); err != nil {
		return false, fmt.Errorf("write stock for product %d: %w", productID, err)
	}
	metrics.RecordReservation("reserved")
	return true, nil
}

// Release returns quantity units to the product counter. It is not
// idempotent: releasing twice adds the units twice.
func (e *Engine) Release(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	if _, err := e.counters.IncrBy(ctx, domain.StockKey(productID), int64(quantity)); err != nil {
		return fmt.Errorf("release stock for product %d: %w", productID, err)
	}
	return nil
}

// Available reads the counter without locking. The value may be stale by the
// time the caller looks at it.
func (e *Engine) Available(ctx context.Context, productID int64) (int64, bool, error) {
	v, ok, err := e.counters.Get(ctx, domain.StockKey(productID))
	if err != nil {
		return 0, false, fmt.Errorf("read stock for product %d: %w", productID, err)
	}
	return v, ok, nil
}

// SetStock overwrites the counter under the product lock, so it cannot
// clobber a decrement made by a concurrent reservation.
func (e *Engine) SetStock(ctx context.Context, productID int64, quantity int64) error {
	if quantity < 0 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}
	if _, err := e.acquire(ctx, productID, e.cfg.MaxAttempts); err != nil {
		return err
	}
	defer e.unlock(ctx, productID)

	if err := e.counters.Set(ctx, domain.StockKey(productID), quantity); err != nil {
		return fmt.Errorf("set stock for product %d: %w", productID, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
