package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/sheets"
)

// MonthReporter builds month reports. *services.ReportService implements it.
type MonthReporter interface {
	MonthReport(ctx context.Context, year, month int) (core.MonthReport, error)
	InvalidateFrom(year, month int)
}

// ReportWorker re-exports the month reports touched by expense and recurring changes.
type ReportWorker struct {
	reports MonthReporter
	sink    sheets.ReportWriter
	horizon int
	now     func() time.Time
	log     *applog.StructuredLogger
}

var _ amqp.Handler = (*ReportWorker)(nil)

// NewReportWorker creates a worker refreshing at most horizon months per modification.
// A nil logger logs through the process default.
func NewReportWorker(reports MonthReporter, sink sheets.ReportWriter, horizon int, logger *applog.Logger) *ReportWorker {
	if horizon < 1 {
		horizon = 1
	}
	return &ReportWorker{
		reports: reports,
		sink:    sink,
		horizon: horizon,
		now:     time.Now,
		log:     applog.NewStructuredLogger(logger),
	}
}

// HandleModification refreshes every month from the effective date up to the current month.
func (w *ReportWorker) HandleModification(ctx context.Context, msg *amqp.ModificationMessage) error {
	effective := core.DateFromUnixMilli(msg.EffectiveDate)
	months := w.monthsFrom(effective)

	w.log.LogEvent(ctx, slog.LevelInfo, "Processing modification message", applog.OpRefresh,
		applog.NewFields().
			WithModification(msg.RecurringID, effective.String(), msg.AmountCents).
			With(applog.FieldCount, len(months)))

	w.reports.InvalidateFrom(months[0].Year(), months[0].Month())
	for _, m := range months {
		if err := w.RefreshMonth(ctx, m.Year(), m.Month()); err != nil {
			return err
		}
	}
	return nil
}

// HandleExpense refreshes the month the expense falls in.
func (w *ReportWorker) HandleExpense(ctx context.Context, msg *amqp.ExpenseMessage) error {
	date := core.DateFromUnixMilli(msg.Date)

	w.log.LogEvent(ctx, slog.LevelInfo, "Processing expense message", applog.OpRefresh,
		applog.NewFields().WithExpense(msg.ExpenseID, date.String(), msg.AmountCents))

	w.reports.InvalidateFrom(date.Year(), date.Month())
	return w.RefreshMonth(ctx, date.Year(), date.Month())
}

// RefreshMonth rebuilds the report of year+month and writes it to the sink.
func (w *ReportWorker) RefreshMonth(ctx context.Context, year, month int) error {
	report, err := w.reports.MonthReport(ctx, year, month)
	if err != nil {
		return fmt.Errorf("build report %s: %w", core.MonthKey(year, month), err)
	}
	ref, err := w.sink.WriteMonthReport(ctx, report)
	if err != nil {
		return fmt.Errorf("write report %s: %w", report.Key(), err)
	}

	w.log.LogReportExported(ctx, year, month, ref, report.Balance.Cents)
	return nil
}

// StartupExport writes the current month so the sink is fresh after downtime.
func (w *ReportWorker) StartupExport(ctx context.Context) error {
	today := core.TruncateDay(w.now())
	w.log.LogEvent(ctx, slog.LevelInfo, "Exporting current month", applog.OpStartup,
		applog.NewFields().WithMonth(today.Year(), today.Month()))
	return w.RefreshMonth(ctx, today.Year(), today.Month())
}

// monthsFrom lists the first day of each month from effective's month to the
// current one, keeping only the latest horizon months. A future effective date
// yields just its own month.
func (w *ReportWorker) monthsFrom(effective core.Date) []core.Date {
	start := core.NewDate(effective.Year(), effective.Month(), 1)
	today := core.TruncateDay(w.now())
	end := core.NewDate(today.Year(), today.Month(), 1)
	if end.Before(start) {
		end = start
	}

	if earliest := (core.Date{Time: end.AddDate(0, -(w.horizon - 1), 0)}); start.Before(earliest) {
		start = earliest
	}

	var months []core.Date
	for m := start; !m.After(end); m = (core.Date{Time: m.AddDate(0, 1, 0)}) {
		months = append(months, m)
	}
	return months
}
