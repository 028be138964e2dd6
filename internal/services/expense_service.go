package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// ExpenseService orchestrates one-time expenses across SQLite and AMQP
type ExpenseService struct {
	storage   ExpenseStore
	publisher Publisher
	reports   reportInvalidator
	log       *applog.StructuredLogger
}

func NewExpenseService(storage ExpenseStore, publisher Publisher, reports reportInvalidator, logger *applog.Logger) *ExpenseService {
	return &ExpenseService{
		storage:   storage,
		publisher: publisher,
		reports:   reports,
		log:       applog.NewStructuredLogger(logger),
	}
}

// CreateExpense saves an expense locally and announces it
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	if s.storage == nil {
		return 0, fmt.Errorf("expense service not properly initialized")
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.AppendExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}
	s.log.LogExpenseCreated(ctx, id, e.Date.String(), e.Amount.Cents)

	if s.reports != nil {
		s.reports.InvalidateFrom(e.Date.Year(), e.Date.Month())
	}

	if s.publisher == nil {
		s.log.LogEvent(ctx, slog.LevelDebug, "Publisher not available, skipping expense message", applog.OpPublish, nil)
		return id, nil
	}
	if err := s.publisher.PublishExpenseCreated(ctx, id, e.Date.UnixMilli(), e.Amount.Cents); err != nil {
		// Don't fail the request - expense is saved locally
		s.log.LogError(ctx, "Failed to publish expense message", err, applog.OpPublish,
			applog.NewFields().With(applog.FieldExpenseID, id))
	}

	return id, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, id)
}

// ListMonth returns the one-time expenses dated within year+month.
func (s *ExpenseService) ListMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month %d: %w", month, core.ErrInvalidArgument)
	}
	return s.storage.ListExpensesForMonth(ctx, year, month)
}
