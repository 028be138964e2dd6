package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist or was deleted.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// dsn enables foreign keys and waits on locks instead of failing fast.
// Transactions begin IMMEDIATE: the write lock is taken before the first read,
// so read-modify-write sequences from separate processes serialize.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullDate(d core.Date) sql.NullInt64 {
	if d.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: d.UnixMilli(), Valid: true}
}

// CreateRecurringExpense stores re together with its modifications and returns the new ID.
func (r *SQLiteRepository) CreateRecurringExpense(ctx context.Context, re *core.RecurringExpense) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	id, err := q.CreateRecurringExpense(ctx, CreateRecurringExpenseParams{
		Description:       re.Description,
		Repetition:        string(re.Every),
		BaseCents:         re.Base().Cents,
		StartDate:         re.StartDate().UnixMilli(),
		EndDate:           nullDate(re.EndDate()),
		PrimaryCategory:   re.Primary,
		SecondaryCategory: re.Secondary,
		CreatedAt:         r.now().UnixMilli(),
	})
	if err != nil {
		return 0, fmt.Errorf("create recurring expense: %w", err)
	}
	if err := insertModifications(ctx, q, id, re.Modifications()); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit recurring expense: %w", err)
	}

	slog.InfoContext(ctx, "Recurring expense saved to SQLite",
		"id", id,
		"description", re.Description,
		"base_cents", re.Base().Cents,
		"every", re.Every)

	return id, nil
}

func insertModifications(ctx context.Context, q *Queries, id int64, mods []core.Modification) error {
	for _, m := range mods {
		err := q.InsertModification(ctx, ModificationRow{
			RecurringID:   id,
			EffectiveDate: m.Date.UnixMilli(),
			AmountCents:   m.Amount.Cents,
		})
		if err != nil {
			return fmt.Errorf("insert modification %s: %w", m.Date, err)
		}
	}
	return nil
}

// GetRecurringExpense loads a recurring expense with its modifications.
func (r *SQLiteRepository) GetRecurringExpense(ctx context.Context, id int64) (*core.RecurringExpense, error) {
	row, err := getRecurringRow(ctx, r.queries, id)
	if err != nil {
		return nil, err
	}
	return hydrate(ctx, r.queries, row)
}

// ListRecurringExpenses returns every recurring expense that has not been deleted.
func (r *SQLiteRepository) ListRecurringExpenses(ctx context.Context) ([]*core.RecurringExpense, error) {
	rows, err := r.queries.ListRecurringExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return r.hydrateAll(ctx, rows)
}

// ListRecurringExpensesActiveBetween returns the recurring expenses whose range overlaps [from, to].
func (r *SQLiteRepository) ListRecurringExpensesActiveBetween(ctx context.Context, from, to core.Date) ([]*core.RecurringExpense, error) {
	rows, err := r.queries.ListRecurringExpensesActiveBetween(ctx, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list active recurring expenses: %w", err)
	}
	return r.hydrateAll(ctx, rows)
}

func (r *SQLiteRepository) hydrateAll(ctx context.Context, rows []RecurringExpenseRow) ([]*core.RecurringExpense, error) {
	out := make([]*core.RecurringExpense, 0, len(rows))
	for _, row := range rows {
		re, err := hydrate(ctx, r.queries, row)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func hydrate(ctx context.Context, q *Queries, row RecurringExpenseRow) (*core.RecurringExpense, error) {
	modRows, err := q.ListModifications(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("list modifications for %d: %w", row.ID, err)
	}
	mods := make([]core.Modification, len(modRows))
	for i, m := range modRows {
		mods[i] = core.Modification{
			Date:   core.DateFromUnixMilli(m.EffectiveDate),
			Amount: core.Money{Cents: m.AmountCents},
		}
	}

	var end time.Time
	if row.EndDate.Valid {
		end = core.DateFromUnixMilli(row.EndDate.Int64).Time
	}
	re, err := core.RestoreRecurringExpense(
		core.Money{Cents: row.BaseCents},
		core.DateFromUnixMilli(row.StartDate).Time,
		end,
		mods,
	)
	if err != nil {
		return nil, fmt.Errorf("restore recurring expense %d: %w", row.ID, err)
	}
	re.ID = row.ID
	re.Description = row.Description
	re.Every = core.RepetitionTypes(row.Repetition)
	re.Primary = row.PrimaryCategory
	re.Secondary = row.SecondaryCategory
	return re, nil
}

// ReplaceModifications rewrites the stored modification set of a recurring expense.
func (r *SQLiteRepository) ReplaceModifications(ctx context.Context, id int64, mods []core.Modification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if _, err := getRecurringRow(ctx, q, id); err != nil {
		return err
	}
	if err := rewriteModifications(ctx, q, id, mods); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit modifications: %w", err)
	}

	slog.DebugContext(ctx, "Modifications replaced", "recurring_id", id, "count", len(mods))
	return nil
}

// UpdateModifications loads the recurring expense id, passes it to mutate and
// stores the resulting modification history, all in one write transaction.
// An error from mutate rolls back and is returned unchanged.
func (r *SQLiteRepository) UpdateModifications(ctx context.Context, id int64, mutate func(*core.RecurringExpense) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, err := getRecurringRow(ctx, q, id)
	if err != nil {
		return err
	}
	re, err := hydrate(ctx, q, row)
	if err != nil {
		return err
	}
	if err := mutate(re); err != nil {
		return err
	}
	if err := rewriteModifications(ctx, q, id, re.Modifications()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit modifications: %w", err)
	}
	return nil
}

func getRecurringRow(ctx context.Context, q *Queries, id int64) (RecurringExpenseRow, error) {
	row, err := q.GetRecurringExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("recurring expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return row, fmt.Errorf("get recurring expense: %w", err)
	}
	return row, nil
}

func rewriteModifications(ctx context.Context, q *Queries, id int64, mods []core.Modification) error {
	if err := q.DeleteModifications(ctx, id); err != nil {
		return fmt.Errorf("delete modifications: %w", err)
	}
	return insertModifications(ctx, q, id, mods)
}

// DeleteRecurringExpense soft deletes a recurring expense.
func (r *SQLiteRepository) DeleteRecurringExpense(ctx context.Context, id int64) error {
	n, err := r.queries.SoftDeleteRecurringExpense(ctx, id, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurring expense %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetLastExecution returns when the recurring expense was last materialized,
// or the zero time if never.
func (r *SQLiteRepository) GetLastExecution(ctx context.Context, id int64) (time.Time, error) {
	row, err := getRecurringRow(ctx, r.queries, id)
	if err != nil {
		return time.Time{}, err
	}
	if !row.LastExecutionDate.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(row.LastExecutionDate.Int64).UTC(), nil
}

// UpdateLastExecution records a materialization time.
func (r *SQLiteRepository) UpdateLastExecution(ctx context.Context, id int64, at time.Time) error {
	n, err := r.queries.UpdateLastExecution(ctx, id, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("update last execution: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurring expense %d: %w", id, ErrNotFound)
	}
	return nil
}

// AppendExpense stores a one-time expense and returns its ID.
func (r *SQLiteRepository) AppendExpense(ctx context.Context, e core.Expense) (int64, error) {
	var recurringID sql.NullInt64
	if e.RecurringID != 0 {
		recurringID = sql.NullInt64{Int64: e.RecurringID, Valid: true}
	}
	id, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Date:              e.Date.UnixMilli(),
		Description:       e.Description,
		AmountCents:       e.Amount.Cents,
		PrimaryCategory:   e.Primary,
		SecondaryCategory: e.Secondary,
		RecurringID:       recurringID,
		CreatedAt:         r.now().UnixMilli(),
	})
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return id, nil
}

// GetExpense retrieves a single expense by ID
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return toExpense(row), nil
}

// ListExpensesBetween returns one-time expenses dated within [from, to].
func (r *SQLiteRepository) ListExpensesBetween(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesBetween(ctx, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = toExpense(row)
	}
	return out, nil
}

// ListExpensesForMonth returns the one-time expenses of a year+month.
func (r *SQLiteRepository) ListExpensesForMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	first, last := core.MonthBounds(year, month)
	return r.ListExpensesBetween(ctx, first, last)
}

func toExpense(row ExpenseRow) core.Expense {
	return core.Expense{
		ID:          row.ID,
		Date:        core.DateFromUnixMilli(row.Date),
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Primary:     row.PrimaryCategory,
		Secondary:   row.SecondaryCategory,
		RecurringID: row.RecurringID.Int64,
	}
}
