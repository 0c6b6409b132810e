package application

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	catalog "github.com/dmehra2102/orderplacement/internal/catalog/domain"
	"github.com/dmehra2102/orderplacement/internal/clock"
	invdomain "github.com/dmehra2102/orderplacement/internal/inventory/domain"
	"github.com/dmehra2102/orderplacement/internal/order/domain"
	"github.com/dmehra2102/orderplacement/pkg/logging"
	"github.com/dmehra2102/orderplacement/pkg/metrics"
)

const reasonSystemError = "System error during order placement"

type Service struct {
	log             *slog.Logger
	catalog         ProductCatalog
	inv             Inventory
	repo            OrderRepository
	pub             EventPublisher
	clock           clock.Clock
	reserveAttempts int
	tracer          trace.Tracer
}

// NewService wires the saga. reserveAttempts <= 0 leaves the attempt budget
// to the inventory engine's own default.
func NewService(log *slog.Logger, catalog ProductCatalog, inv Inventory, repo OrderRepository, pub EventPublisher, clk clock.Clock, reserveAttempts int) *Service {
	return &Service{
		log:             log,
		catalog:         catalog,
		inv:             inv,
		repo:            repo,
		pub:             pub,
		clock:           clk,
		reserveAttempts: reserveAttempts,
		tracer:          otel.Tracer("order-service"),
	}
}

// PlaceOrder validates products, reserves stock item by item, then persists
// the order and announces it. Whatever fails after the first reservation,
// every reservation taken so far is released before the error is returned.
//
// Returned errors: *domain.ProductNotFoundError, *domain.InsufficientStockError
// and *invdomain.LockAcquisitionError are passed through as is; everything else
// arrives as *domain.OrderValidationError.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (OrderRecord, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder", trace.WithAttributes(
		attribute.Int64("customer.id", req.CustomerID),
		attribute.Int("order.items", len(req.Items)),
	))
	defer span.End()

	log := logging.WithTrace(ctx, s.log).With("customer_id", req.CustomerID)
	rec, err := s.placeOrder(ctx, log, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order placement failed")
		return OrderRecord{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", rec.ID))
	return rec, nil
}

func (s *Service) placeOrder(ctx context.Context, log *slog.Logger, req PlaceOrderRequest) (OrderRecord, error) {
	if err := req.Validate(); err != nil {
		log.Warn("order request rejected", "err", err)
		metrics.RecordOrder("invalid")
		return OrderRecord{}, &domain.OrderValidationError{Reason: "Invalid order request", Err: err}
	}
	// Caller cancellation does not reach the saga steps; spans and values do.
	ctx = context.WithoutCancel(ctx)
	log.Info("placing order", "items", len(req.Items))

	products, err := s.loadProducts(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			log.Warn("order rejected", "err", err)
			metrics.RecordOrder("product_not_found")
			return OrderRecord{}, err
		}
		return OrderRecord{}, s.abort(ctx, log, req.CustomerID, nil, reasonSystemError, err)
	}

	var held reservations
	for _, it := range req.Items {
		ok, err := s.inv.CheckAndReserve(ctx, it.ProductID, it.Quantity, s.reserveAttempts)
		if errors.Is(err, invdomain.ErrLockAcquisition) {
			log.Error("inventory lock not acquired", "product_id", it.ProductID, "err", err)
			held.compensate(ctx, log, s.inv)
			s.publishFailed(ctx, log, req.CustomerID, err.Error())
			metrics.RecordOrder("lock_timeout")
			return OrderRecord{}, err
		}
		if err != nil {
			return OrderRecord{}, s.abort(ctx, log, req.CustomerID, held, reasonSystemError, err)
		}
		if !ok {
			held.compensate(ctx, log, s.inv)
			stockErr := &domain.InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: s.lastKnownAvailable(ctx, log, products[it.ProductID]),
			}
			log.Warn("order rejected", "err", stockErr)
			metrics.RecordOrder("insufficient_stock")
			return OrderRecord{}, stockErr
		}
		held.add(it.ProductID, it.Quantity)
		log.Debug("stock reserved", "product_id", it.ProductID, "quantity", it.Quantity)
	}

	order, err := s.buildOrder(req, products)
	if err != nil {
		return OrderRecord{}, s.abort(ctx, log, req.CustomerID, held, "Invalid order", err)
	}

	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return OrderRecord{}, s.abort(ctx, log, req.CustomerID, held, reasonSystemError, err)
	}

	if err := s.pub.Publish(ctx, domain.NewOrderPlaced(saved, s.clock.Now())); err != nil {
		log.Error("order placed event not published", "order_id", saved.ID, "err", err)
		metrics.RecordEventPublished(domain.EventOrderPlaced, "failed")
	} else {
		metrics.RecordEventPublished(domain.EventOrderPlaced, "ok")
	}

	metrics.RecordOrder("placed")
	log.Info("order placed", "order_id", saved.ID, "total", saved.TotalAmount().StringFixed(2))
	return NewOrderRecord(saved), nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (OrderRecord, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return OrderRecord{}, err
	}
	return NewOrderRecord(o), nil
}

func (s *Service) loadProducts(ctx context.Context, req PlaceOrderRequest) (map[int64]catalog.Product, error) {
	ids := req.distinctProductIDs()
	found, err := s.catalog.GetManyByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]catalog.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &domain.ProductNotFoundError{ProductID: id}
		}
	}
	return byID, nil
}

func (s *Service) buildOrder(req PlaceOrderRequest, products map[int64]catalog.Product) (domain.Order, error) {
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		p := products[it.ProductID]
		item, err := domain.NewOrderItem(p.ID, p.SKU, p.Name, it.Quantity, p.Price)
		if err != nil {
			return domain.Order{}, err
		}
		items = append(items, item)
	}
	return domain.NewOrder(req.CustomerID, items, s.clock.Now())
}

// lastKnownAvailable is informational only. An absent counter reads as zero
// because the engine treats it as unavailable; a read error falls back to the
// catalog figure.
func (s *Service) lastKnownAvailable(ctx context.Context, log *slog.Logger, p catalog.Product) int64 {
	v, ok, err := s.inv.Available(ctx, p.ID)
	if err != nil {
		log.Warn("stock counter unreadable", "product_id", p.ID, "err", err)
		return p.StockQuantity
	}
	if !ok {
		return 0
	}
	return v
}

func (s *Service) abort(ctx context.Context, log *slog.Logger, customerID int64, held reservations, reason string, cause error) error {
	log.Error("order placement failed, rolling back", "reserved", len(held), "err", cause)
	held.compensate(ctx, log, s.inv)

	verr := &domain.OrderValidationError{Reason: reason, Err: cause}
	s.publishFailed(ctx, log, customerID, verr.Error())
	metrics.RecordOrder("failed")
	return verr
}

func (s *Service) publishFailed(ctx context.Context, log *slog.Logger, customerID int64, reason string) {
	ev := domain.NewOrderFailed(customerID, reason, s.clock.Now())
	if err := s.pub.Publish(ctx, ev); err != nil {
		log.Error("order failed event not published", "err", err)
		metrics.RecordEventPublished(domain.EventOrderFailed, "failed")
		return
	}
	metrics.RecordEventPublished(domain.EventOrderFailed, "ok")
}
