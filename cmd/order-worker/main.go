package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/orderplacement/internal/config"
	"github.com/dmehra2102/orderplacement/internal/order/application"
	orderkafka "github.com/dmehra2102/orderplacement/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/orderplacement/pkg/idempotency"
	"github.com/dmehra2102/orderplacement/pkg/logging"
	"github.com/dmehra2102/orderplacement/pkg/metrics"
	"github.com/dmehra2102/orderplacement/pkg/shutdown"
	"github.com/dmehra2102/orderplacement/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("group", cfg.WorkerGroup)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "order-worker", cfg.OTELEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	idem := idempotency.NewStore(rdb, cfg.WorkerGroup, cfg.IdempotencyTTL)

	reader := orderkafka.NewReader(cfg.KafkaBrokers, cfg.EventsTopic, cfg.WorkerGroup)
	consumer := orderkafka.NewConsumer(log, reader, application.NewEventLog(log), idem)

	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("consuming", "topic", cfg.EventsTopic)
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	_ = shutdown.Drain(log, cfg.ShutdownTimeout,
		shutdown.Step{Name: "consumer", Stop: func(ctx context.Context) error {
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		shutdown.Step{Name: "http", Stop: srv.Shutdown},
		shutdown.Step{Name: "redis", Stop: func(context.Context) error { return rdb.Close() }},
		shutdown.Step{Name: "tracing", Stop: tp.Shutdown},
	)
	log.Info("order-worker shutdown complete")
}
