package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placement_total",
			Help: "Order placement attempts by outcome",
		},
		[]string{"outcome"},
	)

	reservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Stock reservation attempts by result",
		},
		[]string{"result"},
	)

	lockContentionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_lock_contention_total",
			Help: "Lock acquisition attempts that found the product lock held",
		},
	)

	compensationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_compensations_total",
			Help: "Reservation releases performed during rollback by result",
		},
		[]string{"result"},
	)

	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_published_total",
			Help: "Order events handed to the event sink",
		},
		[]string{"type", "result"},
	)

	eventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_consumed_total",
			Help: "Order events processed by the worker",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		ordersTotal,
		reservationsTotal,
		lockContentionTotal,
		compensationsTotal,
		eventsPublishedTotal,
		eventsConsumedTotal,
	)
}

// Middleware labels requests by chi route pattern so path parameters do not
// explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordOrder(outcome string) {
	ordersTotal.WithLabelValues(outcome).Inc()
}

func RecordReservation(result string) {
	reservationsTotal.WithLabelValues(result).Inc()
}

func RecordLockContention() {
	lockContentionTotal.Inc()
}

func RecordCompensation(result string) {
	compensationsTotal.WithLabelValues(result).Inc()
}

func RecordEventPublished(eventType, result string) {
	eventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}

func RecordEventConsumed(eventType, result string) {
	eventsConsumedTotal.WithLabelValues(eventType, result).Inc()
}
