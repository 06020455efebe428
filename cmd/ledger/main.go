package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerbook/ledger/internal/app"
	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/notify"
	"github.com/ledgerbook/ledger/internal/ledger/repository"
	"github.com/ledgerbook/ledger/internal/ledger/store"
	"github.com/ledgerbook/ledger/internal/ledger/store/memory"
	"github.com/ledgerbook/ledger/internal/ledger/store/postgres"
	"github.com/ledgerbook/ledger/internal/observability"
	"github.com/ledgerbook/ledger/internal/platform/cache"
	"github.com/ledgerbook/ledger/internal/platform/db"
	"github.com/ledgerbook/ledger/internal/platform/lock"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobs(ctx, cfg.RedisAddr, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs command failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ledger stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// runtime holds the wired ledger and the resources that must be released on exit.
type runtime struct {
	repos   *repository.Repositories
	metrics *observability.Metrics
	checks  map[string]observability.HealthCheck
	serial  *notify.Serial
	closers []func()
}

func (rt *runtime) close(ctx context.Context, logger *slog.Logger) {
	if rt.serial != nil {
		if err := rt.serial.Close(ctx); err != nil {
			logger.Warn("drain notifications", slog.Any("error", err))
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func build(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*runtime, error) {
	collation, err := display.NewCollation(cfg.Collation)
	if err != nil {
		return nil, fmt.Errorf("collation: %w", err)
	}

	rt := &runtime{
		metrics: observability.NewMetrics("ledger"),
		checks:  map[string]observability.HealthCheck{},
	}

	var gateways store.Store
	switch cfg.Store {
	case app.StoreMemory:
		gateways = memory.New(collation).Gateways()
	default:
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		if err := db.Migrate(ctx, pool, logger); err != nil {
			rt.close(ctx, logger)
			return nil, err
		}
		rt.checks["postgres"] = postgresCheck(pool)
		gateways = postgres.New(pool).Gateways()
	}

	opts := repository.Options{
		Logger:  logger,
		Metrics: repository.NewMetrics(rt.metrics.Registerer()),
	}
	if cfg.NotifyBuffer > 0 {
		rt.serial = notify.NewSerial(cfg.NotifyBuffer)
		opts.Dispatcher = rt.serial
	}
	if cfg.LockEnabled {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			rt.close(ctx, logger)
			return nil, err
		}
		rt.closers = append(rt.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		})
		rt.checks["redis"] = redisCheck(client)
		opts.Locker = lock.New(client, cfg.LockTTL)
	}

	rt.repos = repository.New(gateways, opts)
	rt.closers = append(rt.closers, subscribeChangeLog(rt.repos, logger))
	return rt, nil
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	rt, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           observability.NewRouter(rt.metrics, rt.checks, app.OpsMiddleware(cfg, logger)...),
		ReadHeaderTimeout: cfg.OpsReadTimeout,
		ReadTimeout:       cfg.OpsReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ops server listening", slog.String("addr", cfg.OpsAddr), slog.String("store", cfg.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		rt.close(shutdownCtx, logger)
		logger.Info("ledger stopped")
		return err
	})
	return g.Wait()
}

func postgresCheck(pool *pgxpool.Pool) observability.HealthCheck {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

func redisCheck(client *redis.Client) observability.HealthCheck {
	return func(ctx context.Context) error { return cache.Ping(ctx, client) }
}
