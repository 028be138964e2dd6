package services

import (
	"context"
	"time"

	"bilancio/internal/core"
)

// RecurringStore persists recurring expenses and their modification history.
type RecurringStore interface {
	CreateRecurringExpense(ctx context.Context, re *core.RecurringExpense) (int64, error)
	GetRecurringExpense(ctx context.Context, id int64) (*core.RecurringExpense, error)
	ListRecurringExpenses(ctx context.Context) ([]*core.RecurringExpense, error)
	ListRecurringExpensesActiveBetween(ctx context.Context, from, to core.Date) ([]*core.RecurringExpense, error)
	ReplaceModifications(ctx context.Context, id int64, mods []core.Modification) error
	// UpdateModifications runs mutate on the stored expense and saves its
	// modifications atomically with respect to every other writer.
	UpdateModifications(ctx context.Context, id int64, mutate func(*core.RecurringExpense) error) error
	DeleteRecurringExpense(ctx context.Context, id int64) error
	GetLastExecution(ctx context.Context, id int64) (time.Time, error)
	UpdateLastExecution(ctx context.Context, id int64, at time.Time) error
}

// ExpenseStore persists one-time expenses.
type ExpenseStore interface {
	AppendExpense(ctx context.Context, e core.Expense) (int64, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListExpensesForMonth(ctx context.Context, year, month int) ([]core.Expense, error)
}

// Publisher announces changes to the report worker. *amqp.Client implements it.
type Publisher interface {
	PublishModification(ctx context.Context, recurringID, effectiveDate, amountCents int64) error
	PublishExpenseCreated(ctx context.Context, expenseID, date, amountCents int64) error
}

// reportInvalidator drops cached month reports affected by a change.
type reportInvalidator interface {
	InvalidateFrom(year, month int)
	InvalidateAll()
}
