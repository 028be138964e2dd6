package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// RecurringProcessor materializes due recurring expenses as one-time expenses.
// Each expense is dated on the latest scheduled occurrence and charges the amount
// resolved for that day.
type RecurringProcessor struct {
	store          RecurringStore
	expenseService *ExpenseService
	log            *applog.StructuredLogger
}

// NewRecurringProcessor creates a new recurring expense processor
func NewRecurringProcessor(store RecurringStore, expenseService *ExpenseService, logger *applog.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		store:          store,
		expenseService: expenseService,
		log:            applog.NewStructuredLogger(logger),
	}
}

// ProcessDueExpenses processes all recurring expenses that are due at now
func (p *RecurringProcessor) ProcessDueExpenses(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.expenseService == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.TruncateDay(now)
	active, err := p.store.ListRecurringExpensesActiveBetween(ctx, today, today)
	if err != nil {
		return 0, fmt.Errorf("failed to get active recurring expenses: %w", err)
	}

	p.log.LogEvent(ctx, slog.LevelInfo, "Processing recurring expenses", applog.OpProcess,
		applog.NewFields().
			With(applog.FieldDate, today.String()).
			With(applog.FieldTotal, len(active)))

	processedCount := 0
	for _, re := range active {
		due, err := p.isDue(ctx, re, now)
		if err != nil {
			p.log.LogError(ctx, "Failed to check if expense is due", err, applog.OpProcess,
				applog.NewFields().WithRecurring(re.ID))
			continue
		}
		if !due {
			continue
		}

		occ, ok := latestOccurrence(re, today)
		if !ok {
			continue
		}

		expense := core.Expense{
			Date:        occ.Date,
			Description: re.Description,
			Amount:      occ.Amount,
			Primary:     re.Primary,
			Secondary:   re.Secondary,
			RecurringID: re.ID,
		}
		if _, err := p.expenseService.CreateExpense(ctx, expense); err != nil {
			p.log.LogError(ctx, "Failed to create expense from recurring template", err, applog.OpProcess,
				applog.NewFields().
					WithRecurring(re.ID).
					With(applog.FieldDescription, re.Description))
			continue
		}

		if err := p.store.UpdateLastExecution(ctx, re.ID, now); err != nil {
			// Expense was created; the next run may create a duplicate for today.
			p.log.LogError(ctx, "Failed to update last execution date", err, applog.OpProcess,
				applog.NewFields().WithRecurring(re.ID))
		}

		processedCount++
		p.log.LogEvent(ctx, slog.LevelInfo, "Created expense from recurring template", applog.OpProcess,
			applog.NewFields().
				WithRecurring(re.ID).
				With(applog.FieldDate, occ.Date.String()).
				With(applog.FieldAmountCents, expense.Amount.Cents).
				With(applog.FieldFrequency, string(re.Every)))
	}

	p.log.LogEvent(ctx, slog.LevelInfo, "Recurring expense processing complete", applog.OpProcess,
		applog.NewFields().
			With(applog.FieldCount, processedCount).
			With(applog.FieldTotal, len(active)))

	return processedCount, nil
}

func (p *RecurringProcessor) isDue(ctx context.Context, re *core.RecurringExpense, now time.Time) (bool, error) {
	lastExecution, err := p.store.GetLastExecution(ctx, re.ID)
	if err != nil {
		return false, fmt.Errorf("get last execution: %w", err)
	}
	checker, err := GetDuenessChecker(re.Every)
	if err != nil {
		return false, err
	}
	return checker.IsDue(lastExecution, now, re.StartDate()), nil
}

// latestOccurrence finds the last scheduled charge on or before today, looking back one year.
func latestOccurrence(re *core.RecurringExpense, today core.Date) (core.Occurrence, bool) {
	occ := re.Occurrences(today.AddDays(-366), today)
	if len(occ) == 0 {
		return core.Occurrence{}, false
	}
	return occ[len(occ)-1], true
}
