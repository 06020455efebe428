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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerbook/ledger/internal/app"
	jobmetrics "github.com/ledgerbook/ledger/internal/jobs"
	"github.com/ledgerbook/ledger/internal/ledger/store/postgres"
	"github.com/ledgerbook/ledger/internal/observability"
	"github.com/ledgerbook/ledger/internal/platform/db"
	"github.com/ledgerbook/ledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if !cfg.UsesPostgres() {
		return errors.New("worker: the integrity scan needs LEDGER_STORE=postgres")
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := observability.NewMetrics("worker")
	integrityJob := jobs.NewLedgerIntegrityJob(postgres.New(pool), logger, jobmetrics.NewMetrics(metrics.Registerer()))

	integrityTask, err := jobs.NewIntegrityScanTask(jobs.SourceCron)
	if err != nil {
		return fmt.Errorf("build integrity task: %w", err)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:       redisOpts,
		Logger:          logger,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrityScan, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		return fmt.Errorf("init worker: %w", err)
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := observability.NewRouter(metrics, map[string]observability.HealthCheck{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
	}, app.OpsMiddleware(cfg, logger)...)
	jobs.NewHandler(inspector, logger).MountRoutes(router)

	server := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.OpsReadTimeout,
		ReadTimeout:       cfg.OpsReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("worker ops server listening", slog.String("addr", cfg.OpsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
