// Command omsctl performs administrative tasks against the order placement
// stores: seeding the catalog, warming stock counters and checking
// connectivity.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	catalogapp "github.com/dmehra2102/orderplacement/internal/catalog/application"
	catalogpg "github.com/dmehra2102/orderplacement/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/orderplacement/internal/config"
	invapp "github.com/dmehra2102/orderplacement/internal/inventory/application"
	invpg "github.com/dmehra2102/orderplacement/internal/inventory/infrastructure/postgres"
	invredis "github.com/dmehra2102/orderplacement/internal/inventory/infrastructure/redis"
	orderkafka "github.com/dmehra2102/orderplacement/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/orderplacement/migrations"
	"github.com/dmehra2102/orderplacement/pkg/logging"
	"github.com/dmehra2102/orderplacement/pkg/shutdown"
)

const usage = `usage: omsctl <command> [flags]

commands:
  seed <file.json>      upsert catalog products from a JSON array
  warm-stock [-force]   copy catalog stock into the Redis counters
  status                check PostgreSQL, Redis and Kafka connectivity
`

var errUsage = errors.New("usage")

func main() {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "omsctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch args[0] {
	case "seed":
		return seed(ctx, cfg, args[1:], out)
	case "warm-stock":
		return warmStock(ctx, cfg, args[1:], out)
	case "status":
		return status(ctx, cfg, out)
	default:
		return errUsage
	}
}

func seed(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	log := logging.New(cfg.LogLevel)
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	res, err := catalogapp.NewSeeder(log, catalogpg.NewRepository(log, pool)).SeedFromJSON(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded catalog: %d created, %d updated\n", res.Created, res.Updated)
	return nil
}

func warmStock(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("warm-stock", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	force := fs.Bool("force", false, "overwrite counters that already exist")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	log := logging.New(cfg.LogLevel)
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb := newRedis(cfg)
	defer rdb.Close()
	stock := invredis.NewStore(rdb)

	engine := invapp.NewEngine(log, stock, stock, invapp.DefaultConfig())
	res, err := engine.SyncFromCatalog(ctx, invpg.NewRepository(log, pool), *force)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "stock counters: %d written, %d left untouched\n", res.Written, res.Skipped)
	return nil
}

func status(ctx context.Context, cfg config.Config, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var failed bool
	report := func(name string, err error) {
		if err != nil {
			failed = true
			fmt.Fprintf(out, "%-9s FAIL  %v\n", name, err)
			return
		}
		fmt.Fprintf(out, "%-9s ok\n", name)
	}

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err == nil {
		err = pool.Ping(ctx)
		pool.Close()
	}
	report("postgres", err)

	rdb := newRedis(cfg)
	report("redis", rdb.Ping(ctx).Err())
	_ = rdb.Close()

	report("kafka", orderkafka.Ping(ctx, cfg.KafkaBrokers))

	if failed {
		return errors.New("one or more dependencies are unreachable")
	}
	return nil
}

func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func newRedis(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
}
