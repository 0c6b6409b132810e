package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	invdomain "github.com/dmehra2102/orderplacement/internal/inventory/domain"
	"github.com/dmehra2102/orderplacement/internal/order/application"
	"github.com/dmehra2102/orderplacement/internal/order/domain"
	"github.com/dmehra2102/orderplacement/pkg/metrics"
)

const maxBodyBytes = 1 << 20

type OrderService interface {
	PlaceOrder(ctx context.Context, req application.PlaceOrderRequest) (application.OrderRecord, error)
	GetOrder(ctx context.Context, id int64) (application.OrderRecord, error)
}

// Check reports whether a dependency is usable.
type Check = func(ctx context.Context) error

type Handler struct {
	log     *slog.Logger
	service OrderService
	checks  map[string]Check
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service OrderService, checks map[string]Check) *Handler {
	return &Handler{
		log:     log,
		service: service,
		checks:  checks,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/health", h.health)
	r.Handle("/metrics", metrics.Handler())

	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	var req application.PlaceOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid_body", "request body must be a JSON order")
		return
	}

	rec, err := h.service.PlaceOrder(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/orders/"+strconv.FormatInt(rec.ID, 10))
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusBadRequest, "invalid_id", "order id must be a positive integer")
		return
	}

	rec, err := h.service.GetOrder(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": results})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		writeDetail(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeDetail(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, domain.ErrInsufficientStock):
		writeDetail(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, invdomain.ErrLockAcquisition):
		w.Header().Set("Retry-After", "1")
		writeDetail(w, http.StatusServiceUnavailable, "inventory_busy", err.Error())
	case errors.Is(err, domain.ErrOrderValidation):
		writeDetail(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	default:
		h.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeDetail(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

type detail struct {
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

func writeDetail(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, map[string][]detail{"detail": {{Msg: msg, Type: typ}}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
