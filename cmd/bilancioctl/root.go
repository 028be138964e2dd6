package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bilancio/internal/amqp"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

// app holds the services opened for a single command invocation.
type app struct {
	repo      *storage.SQLiteRepository
	amqp      *amqp.Client
	recurring *services.RecurringService
	expenses  *services.ExpenseService
	reports   *services.ReportService
}

func (a *app) Close() error {
	if a.amqp != nil {
		_ = a.amqp.Close()
	}
	return a.repo.Close()
}

type rootOptions struct {
	v      *viper.Viper
	logger *applog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:           "bilancioctl",
		Short:         "Manage recurring expenses, one-time expenses and monthly reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setupLogging(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().String("db", "./data/bilancio.db", "SQLite database path")
	root.PersistentFlags().String("amqp-url", "", "AMQP broker URL; when set, changes are announced to the report worker")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	_ = opts.v.BindPFlag("db", root.PersistentFlags().Lookup("db"))
	_ = opts.v.BindPFlag("amqp_url", root.PersistentFlags().Lookup("amqp-url"))
	_ = opts.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	opts.v.SetEnvPrefix("BILANCIO")
	_ = opts.v.BindEnv("db", "BILANCIO_DB_PATH")
	_ = opts.v.BindEnv("amqp_url", "AMQP_URL")
	_ = opts.v.BindEnv("amqp_exchange", "AMQP_EXCHANGE")
	_ = opts.v.BindEnv("amqp_queue", "AMQP_QUEUE")
	opts.v.SetDefault("amqp_exchange", "bilancio")
	opts.v.SetDefault("amqp_queue", "report_refresh")
	opts.v.AutomaticEnv()

	root.AddCommand(recurringCmd(opts))
	root.AddCommand(expenseCmd(opts))
	root.AddCommand(reportCmd(opts))
	return root
}

func (o *rootOptions) setupLogging(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.v.GetString("log_level"))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.v.GetString("log_level"), err)
	}
	o.logger = applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentCLI,
		Output:    w,
	})
	applog.SetDefault(o.logger)
	return nil
}

// open initializes storage and services; the caller closes the app.
func (o *rootOptions) open() (*app, error) {
	repo, err := storage.NewSQLiteRepository(o.v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{repo: repo}
	var publisher services.Publisher
	if url := o.v.GetString("amqp_url"); url != "" {
		client, err := amqp.NewClient(url, o.v.GetString("amqp_exchange"), o.v.GetString("amqp_queue"))
		if err != nil {
			slog.Warn("AMQP unavailable, changes will not be announced", "error", err)
		} else {
			a.amqp = client
			publisher = client
		}
	}

	a.reports = services.NewReportService(repo, repo, cache.NewLRUCache[core.MonthReport](1, time.Minute), o.logger)
	a.recurring = services.NewRecurringService(repo, publisher, a.reports, o.logger)
	a.expenses = services.NewExpenseService(repo, publisher, a.reports, o.logger)
	return a, nil
}
