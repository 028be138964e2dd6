package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so queries can run in or out of a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL statements of the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// RecurringExpenseRow mirrors a recurring_expenses row.
type RecurringExpenseRow struct {
	ID                int64
	Description       string
	Repetition        string
	BaseCents         int64
	StartDate         int64
	EndDate           sql.NullInt64
	PrimaryCategory   string
	SecondaryCategory string
	LastExecutionDate sql.NullInt64
	CreatedAt         int64
}

// ModificationRow mirrors a recurring_modifications row.
type ModificationRow struct {
	RecurringID   int64
	EffectiveDate int64
	AmountCents   int64
}

// ExpenseRow mirrors an expenses row.
type ExpenseRow struct {
	ID                int64
	Date              int64
	Description       string
	AmountCents       int64
	PrimaryCategory   string
	SecondaryCategory string
	RecurringID       sql.NullInt64
	CreatedAt         int64
}

type CreateRecurringExpenseParams struct {
	Description       string
	Repetition        string
	BaseCents         int64
	StartDate         int64
	EndDate           sql.NullInt64
	PrimaryCategory   string
	SecondaryCategory string
	CreatedAt         int64
}

const createRecurringExpense = `
INSERT INTO recurring_expenses (
    description, repetition, base_cents, start_date, end_date,
    primary_category, secondary_category, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateRecurringExpense(ctx context.Context, arg CreateRecurringExpenseParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createRecurringExpense,
		arg.Description,
		arg.Repetition,
		arg.BaseCents,
		arg.StartDate,
		arg.EndDate,
		arg.PrimaryCategory,
		arg.SecondaryCategory,
		arg.CreatedAt,
	).Scan(&id)
	return id, err
}

const recurringColumns = `id, description, repetition, base_cents, start_date, end_date,
    primary_category, secondary_category, last_execution_date, created_at`

func scanRecurring(row interface{ Scan(...any) error }) (RecurringExpenseRow, error) {
	var r RecurringExpenseRow
	err := row.Scan(
		&r.ID,
		&r.Description,
		&r.Repetition,
		&r.BaseCents,
		&r.StartDate,
		&r.EndDate,
		&r.PrimaryCategory,
		&r.SecondaryCategory,
		&r.LastExecutionDate,
		&r.CreatedAt,
	)
	return r, err
}

const getRecurringExpense = `SELECT ` + recurringColumns + `
FROM recurring_expenses
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) GetRecurringExpense(ctx context.Context, id int64) (RecurringExpenseRow, error) {
	return scanRecurring(q.db.QueryRowContext(ctx, getRecurringExpense, id))
}

const listRecurringExpenses = `SELECT ` + recurringColumns + `
FROM recurring_expenses
WHERE deleted_at IS NULL
ORDER BY start_date, id`

func (q *Queries) ListRecurringExpenses(ctx context.Context) ([]RecurringExpenseRow, error) {
	return q.queryRecurring(ctx, listRecurringExpenses)
}

// Expenses overlapping [from, to]; both bounds in epoch millis.
const listRecurringExpensesActiveBetween = `SELECT ` + recurringColumns + `
FROM recurring_expenses
WHERE deleted_at IS NULL
  AND start_date <= ?
  AND (end_date IS NULL OR end_date >= ?)
ORDER BY start_date, id`

func (q *Queries) ListRecurringExpensesActiveBetween(ctx context.Context, from, to int64) ([]RecurringExpenseRow, error) {
	return q.queryRecurring(ctx, listRecurringExpensesActiveBetween, to, from)
}

func (q *Queries) queryRecurring(ctx context.Context, query string, args ...any) ([]RecurringExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecurringExpenseRow
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const softDeleteRecurringExpense = `
UPDATE recurring_expenses SET deleted_at = ?
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) SoftDeleteRecurringExpense(ctx context.Context, id, deletedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteRecurringExpense, deletedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateLastExecution = `
UPDATE recurring_expenses SET last_execution_date = ?
WHERE id = ?`

func (q *Queries) UpdateLastExecution(ctx context.Context, id, executedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateLastExecution, executedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listModifications = `
SELECT recurring_id, effective_date, amount_cents
FROM recurring_modifications
WHERE recurring_id = ?`

func (q *Queries) ListModifications(ctx context.Context, recurringID int64) ([]ModificationRow, error) {
	rows, err := q.db.QueryContext(ctx, listModifications, recurringID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ModificationRow
	for rows.Next() {
		var m ModificationRow
		if err := rows.Scan(&m.RecurringID, &m.EffectiveDate, &m.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const deleteModifications = `DELETE FROM recurring_modifications WHERE recurring_id = ?`

func (q *Queries) DeleteModifications(ctx context.Context, recurringID int64) error {
	_, err := q.db.ExecContext(ctx, deleteModifications, recurringID)
	return err
}

const insertModification = `
INSERT INTO recurring_modifications (recurring_id, effective_date, amount_cents)
VALUES (?, ?, ?)`

func (q *Queries) InsertModification(ctx context.Context, arg ModificationRow) error {
	_, err := q.db.ExecContext(ctx, insertModification, arg.RecurringID, arg.EffectiveDate, arg.AmountCents)
	return err
}

type CreateExpenseParams struct {
	Date              int64
	Description       string
	AmountCents       int64
	PrimaryCategory   string
	SecondaryCategory string
	RecurringID       sql.NullInt64
	CreatedAt         int64
}

const createExpense = `
INSERT INTO expenses (
    date, description, amount_cents, primary_category, secondary_category, recurring_id, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createExpense,
		arg.Date,
		arg.Description,
		arg.AmountCents,
		arg.PrimaryCategory,
		arg.SecondaryCategory,
		arg.RecurringID,
		arg.CreatedAt,
	).Scan(&id)
	return id, err
}

const expenseColumns = `id, date, description, amount_cents, primary_category, secondary_category, recurring_id, created_at`

func scanExpense(row interface{ Scan(...any) error }) (ExpenseRow, error) {
	var e ExpenseRow
	err := row.Scan(
		&e.ID,
		&e.Date,
		&e.Description,
		&e.AmountCents,
		&e.PrimaryCategory,
		&e.SecondaryCategory,
		&e.RecurringID,
		&e.CreatedAt,
	)
	return e, err
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (ExpenseRow, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpensesBetween = `SELECT ` + expenseColumns + `
FROM expenses
WHERE date >= ? AND date <= ?
ORDER BY date, id`

func (q *Queries) ListExpensesBetween(ctx context.Context, from, to int64) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesBetween, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
