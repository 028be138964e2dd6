package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/backend"
	"bilancio/internal/cache"
	"bilancio/internal/cli"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting bilancio-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid report backend configuration", "error", err)
		os.Exit(1)
	}
	sink, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize report backend", "error", err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		if sink.Cleanup != nil {
			_ = sink.Cleanup()
		}
	}()

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient == nil {
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportCache := cache.NewLRUCache[core.MonthReport](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	reports := services.NewReportService(repo, repo, reportCache, logger.WithComponent(applog.ComponentReport))
	reportWorker := worker.NewReportWorker(reports, sink.Writer, cfg.ReportHorizonMonths, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// a failed export is retried on the next message
		if err := reportWorker.StartupExport(gctx); err != nil {
			logger.Error("Startup export failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return amqpClient.ConsumeWithRetry(gctx, reportWorker)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
