package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// ReportService builds month reports from expenses and recurring schedules, caching the result.
type ReportService struct {
	expenses  ExpenseStore
	recurring RecurringStore
	cache     cache.Cache[core.MonthReport]
	log       *applog.StructuredLogger
}

func NewReportService(expenses ExpenseStore, recurring RecurringStore, c cache.Cache[core.MonthReport], logger *applog.Logger) *ReportService {
	return &ReportService{
		expenses:  expenses,
		recurring: recurring,
		cache:     c,
		log:       applog.NewStructuredLogger(logger),
	}
}

// MonthReport returns the aggregated report of year+month.
func (s *ReportService) MonthReport(ctx context.Context, year, month int) (core.MonthReport, error) {
	if month < 1 || month > 12 {
		return core.MonthReport{}, fmt.Errorf("month %d: %w", month, core.ErrInvalidArgument)
	}
	key := core.MonthKey(year, month)
	if s.cache != nil {
		if report, ok := s.cache.Get(key); ok {
			return report, nil
		}
	}

	first, last := core.MonthBounds(year, month)
	var (
		expenses  []core.Expense
		recurring []*core.RecurringExpense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.expenses.ListExpensesForMonth(gctx, year, month)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recurring, err = s.recurring.ListRecurringExpensesActiveBetween(gctx, first, last)
		if err != nil {
			return fmt.Errorf("list recurring expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.MonthReport{}, err
	}

	report := core.BuildMonthReport(year, month, expenses, recurring)
	if s.cache != nil {
		s.cache.Set(key, report)
	}

	s.log.LogEvent(ctx, slog.LevelDebug, "Month report built", applog.OpBuild,
		applog.NewFields().
			WithMonth(year, month).
			With(applog.FieldCount, len(report.Entries)).
			With(applog.FieldBalanceCents, report.Balance.Cents))

	return report, nil
}

// InvalidateFrom drops cached reports of year+month and every later month.
func (s *ReportService) InvalidateFrom(year, month int) {
	if s.cache == nil {
		return
	}
	from := core.MonthKey(year, month)
	s.cache.DeleteFunc(func(key string) bool { return key >= from })
}

// InvalidateAll drops every cached report.
func (s *ReportService) InvalidateAll() {
	if s.cache == nil {
		return
	}
	s.cache.DeleteFunc(func(string) bool { return true })
}
