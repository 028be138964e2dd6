package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/storage"
)

type publishedModification struct {
	RecurringID   int64
	EffectiveDate int64
	AmountCents   int64
}

type fakePublisher struct {
	mu            sync.Mutex
	modifications []publishedModification
	expenses      []int64
	err           error
}

func (f *fakePublisher) PublishModification(ctx context.Context, recurringID, effectiveDate, amountCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modifications = append(f.modifications, publishedModification{recurringID, effectiveDate, amountCents})
	return f.err
}

func (f *fakePublisher) PublishExpenseCreated(ctx context.Context, expenseID, date, amountCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses = append(f.expenses, expenseID)
	return f.err
}

type fixture struct {
	repo      *storage.SQLiteRepository
	publisher *fakePublisher
	reports   *ReportService
	recurring *RecurringService
	expenses  *ExpenseService
	logs      *bytes.Buffer
	logger    *applog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "bilancio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	pub := &fakePublisher{}
	logs := &bytes.Buffer{}
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Component: applog.ComponentRecurring, Output: logs})
	reports := NewReportService(repo, repo, cache.NewLRUCache[core.MonthReport](12, time.Hour), logger)
	return &fixture{
		repo:      repo,
		publisher: pub,
		reports:   reports,
		recurring: NewRecurringService(repo, pub, reports, logger),
		expenses:  NewExpenseService(repo, pub, reports, logger),
		logs:      logs,
		logger:    logger,
	}
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func rentInput() CreateRecurringInput {
	return CreateRecurringInput{
		Description: "Affitto",
		Every:       core.Monthly,
		Primary:     "Casa",
		Secondary:   "Affitto",
		Base:        core.Money{Cents: 80000},
		Start:       day(2025, 1, 1),
	}
}

func TestRecurringService_CreateValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := rentInput()
	in.Description = ""
	_, err := f.recurring.Create(ctx, in)
	require.ErrorIs(t, err, core.ErrEmptyDescription)

	in = rentInput()
	in.Start = time.Time{}
	_, err = f.recurring.Create(ctx, in)
	require.ErrorIs(t, err, core.ErrNullInput)

	re, err := f.recurring.Create(ctx, rentInput())
	require.NoError(t, err)
	assert.NotZero(t, re.ID)
}

func TestRecurringService_AddModification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	re, err := f.recurring.Create(ctx, rentInput())
	require.NoError(t, err)

	_, err = f.recurring.AddModification(ctx, re.ID, day(2025, 6, 1), core.Money{Cents: 90000})
	require.NoError(t, err)
	updated, err := f.recurring.AddModification(ctx, re.ID, time.Date(2025, 3, 1, 18, 45, 0, 0, time.UTC), core.Money{Cents: 85000})
	require.NoError(t, err)

	// the June change was later than March and is gone
	assert.Equal(t, []core.Modification{{Date: core.NewDate(2025, 3, 1), Amount: core.Money{Cents: 85000}}}, updated.Modifications())

	stored, err := f.recurring.Get(ctx, re.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Modifications(), stored.Modifications())

	require.Len(t, f.publisher.modifications, 2)
	assert.Equal(t, publishedModification{re.ID, core.NewDate(2025, 3, 1).UnixMilli(), 85000}, f.publisher.modifications[1])

	amount, err := f.recurring.AmountForMonth(ctx, re.ID, day(2025, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(80000), amount.Cents)
	amount, err = f.recurring.AmountForMonth(ctx, re.ID, day(2025, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(85000), amount.Cents)
	amount, err = f.recurring.AmountForMonth(ctx, re.ID, day(2025, 7, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(85000), amount.Cents)
}

func TestRecurringService_AddModificationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	re, err := f.recurring.Create(ctx, rentInput())
	require.NoError(t, err)

	_, err = f.recurring.AddModification(ctx, re.ID, day(2025, 2, 1), core.Money{})
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = f.recurring.AddModification(ctx, re.ID, time.Time{}, core.Money{Cents: 100})
	require.ErrorIs(t, err, core.ErrNullInput)
	_, err = f.recurring.AddModification(ctx, re.ID+1, day(2025, 2, 1), core.Money{Cents: 100})
	require.ErrorIs(t, err, storage.ErrNotFound)

	assert.Empty(t, f.publisher.modifications)
}

func TestRecurringService_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.publisher.err = errors.New("broker down")

	re, err := f.recurring.Create(ctx, rentInput())
	require.NoError(t, err)
	_, err = f.recurring.AddModification(ctx, re.ID, day(2025, 2, 1), core.Money{Cents: 81000})
	require.NoError(t, err)

	out := f.logs.String()
	assert.Contains(t, out, "msg=\"Recurring expense modified\"")
	assert.Contains(t, out, "effective_date=2025-02-01")
	assert.Contains(t, out, "amount_cents=81000")
	assert.Contains(t, out, "error=\"broker down\"")
	assert.Contains(t, out, "operation=publish")
}

func TestRecurringService_ConcurrentModificationsSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	re, err := f.recurring.Create(ctx, rentInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(m int) {
			defer wg.Done()
			_, err := f.recurring.AddModification(ctx, re.ID, day(2030, m, 1), core.Money{Cents: int64(m * 100)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := f.recurring.Get(ctx, re.ID)
	require.NoError(t, err)
	mods := stored.Modifications()
	require.NotEmpty(t, mods)
	for i := 1; i < len(mods); i++ {
		assert.True(t, mods[i-1].Date.Before(mods[i].Date))
	}
}

func TestRecurringService_Occurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	re, err := f.recurring.Create(ctx, rentInput())
	require.NoError(t, err)
	_, err = f.recurring.AddModification(ctx, re.ID, day(2025, 2, 15), core.Money{Cents: 82000})
	require.NoError(t, err)

	occ, err := f.recurring.Occurrences(ctx, re.ID, core.NewDate(2025, 1, 1), core.NewDate(2025, 3, 31))
	require.NoError(t, err)
	require.Len(t, occ, 3)
	assert.Equal(t, []int64{80000, 80000, 82000}, []int64{occ[0].Amount.Cents, occ[1].Amount.Cents, occ[2].Amount.Cents})

	_, err = f.recurring.Occurrences(ctx, re.ID, core.NewDate(2025, 3, 1), core.NewDate(2025, 1, 1))
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestExpenseService_CreateExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.expenses.CreateExpense(ctx, core.Expense{Date: core.NewDate(2025, 3, 3), Description: "Spesa"})
	require.Error(t, err)

	id, err := f.expenses.CreateExpense(ctx, core.Expense{
		Date:        core.NewDate(2025, 3, 3),
		Description: "Spesa",
		Amount:      core.Money{Cents: 4550},
		Primary:     "Spesa",
		Secondary:   "Supermercato",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, f.publisher.expenses)

	items, err := f.expenses.ListMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = f.expenses.ListMonth(ctx, 2025, 13)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestReportService_MonthReportAndInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	re, err := f.recurring.Create(ctx, rentInput())
	require.NoError(t, err)

	report, err := f.reports.MonthReport(ctx, 2025, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), report.Expenses.Cents)

	_, err = f.expenses.CreateExpense(ctx, core.Expense{
		Date: core.NewDate(2025, 4, 27), Description: "Stipendio", Amount: core.Money{Cents: -250000},
		Primary: "Entrate", Secondary: "Stipendio",
	})
	require.NoError(t, err)

	report, err = f.reports.MonthReport(ctx, 2025, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), report.Revenues.Cents)
	assert.Equal(t, int64(170000), report.Balance.Cents)

	_, err = f.recurring.AddModification(ctx, re.ID, day(2025, 3, 15), core.Money{Cents: 95000})
	require.NoError(t, err)

	report, err = f.reports.MonthReport(ctx, 2025, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(95000), report.Expenses.Cents)

	_, err = f.reports.MonthReport(ctx, 2025, 0)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestRecurringProcessor_ProcessDueExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	re, err := f.recurring.Create(ctx, rentInput())
	require.NoError(t, err)
	_, err = f.recurring.AddModification(ctx, re.ID, day(2025, 4, 1), core.Money{Cents: 83000})
	require.NoError(t, err)

	future := rentInput()
	future.Description = "Asilo"
	future.Start = day(2026, 9, 1)
	_, err = f.recurring.Create(ctx, future)
	require.NoError(t, err)

	processor := NewRecurringProcessor(f.repo, f.expenses, f.logger)
	now := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)

	n, err := processor.ProcessDueExpenses(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	items, err := f.expenses.ListMonth(ctx, 2025, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, re.ID, items[0].RecurringID)
	assert.Equal(t, "2025-05-01", items[0].Date.String())
	assert.Equal(t, int64(83000), items[0].Amount.Cents)

	// same month, already executed
	n, err = processor.ProcessDueExpenses(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	// the materialized occurrence is not counted twice
	report, err := f.reports.MonthReport(ctx, 2025, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(83000), report.Expenses.Cents)
}
