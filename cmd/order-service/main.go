package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	catalogpg "github.com/dmehra2102/orderplacement/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/orderplacement/internal/clock"
	"github.com/dmehra2102/orderplacement/internal/config"
	invapp "github.com/dmehra2102/orderplacement/internal/inventory/application"
	invpg "github.com/dmehra2102/orderplacement/internal/inventory/infrastructure/postgres"
	invredis "github.com/dmehra2102/orderplacement/internal/inventory/infrastructure/redis"
	"github.com/dmehra2102/orderplacement/internal/order/application"
	ordergrpc "github.com/dmehra2102/orderplacement/internal/order/infrastructure/grpc"
	orderhttp "github.com/dmehra2102/orderplacement/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/orderplacement/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/orderplacement/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/orderplacement/migrations"
	"github.com/dmehra2102/orderplacement/pkg/logging"
	"github.com/dmehra2102/orderplacement/pkg/outbox"
	"github.com/dmehra2102/orderplacement/pkg/shutdown"
	"github.com/dmehra2102/orderplacement/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "order-service", cfg.OTELEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	// Redis-backed inventory
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	stock := invredis.NewStore(rdb)
	engine := invapp.NewEngine(log, stock, stock, invapp.Config{
		Lease:       cfg.LockLease,
		RetryDelay:  cfg.LockRetryDelay,
		MaxAttempts: cfg.LockMaxAttempts,
	})
	if res, err := engine.SyncFromCatalog(ctx, invpg.NewRepository(log, pool), false); err != nil {
		log.Warn("stock warm-up failed", "err", err)
	} else {
		log.Info("stock warmed", "written", res.Written, "skipped", res.Skipped)
	}

	// Events
	writer := orderkafka.NewWriter(cfg.KafkaBrokers)
	var (
		pub   application.EventPublisher
		relay *outbox.Relay
	)
	switch cfg.EventDelivery {
	case config.DeliveryOutbox:
		pub = orderpg.NewOutboxPublisher(log, pool)
		dispatch := outbox.NewDispatcher(log, writer, cfg.EventsTopic)
		relay = outbox.NewRelay(log, orderpg.NewOutboxStore(log, pool), dispatch, "order-service-"+uuid.NewString())
	default:
		pub = orderkafka.NewPublisher(log, writer, cfg.EventsTopic)
	}

	svc := application.NewService(log,
		catalogpg.NewRepository(log, pool),
		engine,
		orderpg.NewRepository(log, pool),
		pub,
		clock.NewSystem(),
		cfg.LockMaxAttempts,
	)

	checks := map[string]func(context.Context) error{
		"postgres": pool.Ping,
		"redis":    stock.Ping,
	}

	if relay != nil {
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("relay stopped with error", "err", err)
			}
		}()
	}

	// gRPC health
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}
	hs := ordergrpc.NewServer(log, checks, 5*time.Second)
	go hs.Watch(ctx)
	go func() {
		if err := hs.Serve(lis); err != nil {
			log.Error("grpc server error", "err", err)
			cancel()
		}
	}()

	// HTTP
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      orderhttp.NewHandler(log, svc, checks).Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "delivery", cfg.EventDelivery)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	_ = shutdown.Drain(log, cfg.ShutdownTimeout,
		shutdown.Step{Name: "http", Stop: srv.Shutdown},
		shutdown.Step{Name: "grpc", Stop: func(context.Context) error { hs.GracefulStop(); return nil }},
		shutdown.Step{Name: "kafka", Stop: func(context.Context) error { return writer.Close() }},
		shutdown.Step{Name: "redis", Stop: func(context.Context) error { return rdb.Close() }},
		shutdown.Step{Name: "postgres", Stop: func(context.Context) error { pool.Close(); return nil }},
		shutdown.Step{Name: "tracing", Stop: tp.Shutdown},
	)
	log.Info("order-service shutdown complete")
}
