package main

import (
	"time"

	"bilancio/internal/cli"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.Publisher
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	// No report cache lives in this process; the report worker is told through AMQP.
	expenseService := services.NewExpenseService(repo, publisher, nil, logger.WithComponent(applog.ComponentExpense))
	processor := services.NewRecurringProcessor(repo, expenseService, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	processingInterval := cfg.RecurringProcessorInterval
	logger.Info("Recurring expense processor configured",
		"interval", processingInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(processingInterval)
	defer ticker.Stop()

	logger.Info("Running initial recurring expense processing...")
	if count, err := processor.ProcessDueExpenses(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "expenses_created", count)
	}

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Recurring-worker shutdown complete")
			return
		case now := <-ticker.C:
			count, err := processor.ProcessDueExpenses(ctx, now)
			if err != nil {
				logger.Error("Periodic processing failed", "error", err)
				continue
			}
			logger.Info("Periodic processing complete",
				"expenses_created", count,
				"next_check", now.Add(processingInterval).Format("15:04:05"))
		}
	}
}
