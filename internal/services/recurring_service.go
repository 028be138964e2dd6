package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// CreateRecurringInput carries the fields needed to register a recurring expense.
// A zero End means the schedule never ends.
type CreateRecurringInput struct {
	Description string
	Every       core.RepetitionTypes
	Primary     string
	Secondary   string
	Base        core.Money
	Start       time.Time
	End         time.Time
}

// RecurringService manages recurring expenses and the amount changes applied to them.
type RecurringService struct {
	store     RecurringStore
	publisher Publisher
	reports   reportInvalidator
	log       *applog.StructuredLogger
}

// NewRecurringService wires the store and the optional publisher and report
// cache. A nil logger logs through the process default.
func NewRecurringService(store RecurringStore, publisher Publisher, reports reportInvalidator, logger *applog.Logger) *RecurringService {
	return &RecurringService{
		store:     store,
		publisher: publisher,
		reports:   reports,
		log:       applog.NewStructuredLogger(logger),
	}
}

// Create validates and stores a new recurring expense.
func (s *RecurringService) Create(ctx context.Context, in CreateRecurringInput) (*core.RecurringExpense, error) {
	re, err := core.NewRecurringExpense(in.Base, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	re.Description = in.Description
	re.Every = in.Every
	re.Primary = in.Primary
	re.Secondary = in.Secondary
	if err := re.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.CreateRecurringExpense(ctx, re)
	if err != nil {
		return nil, fmt.Errorf("save recurring expense: %w", err)
	}
	re.ID = id

	start := re.StartDate()
	s.log.LogEvent(ctx, slog.LevelInfo, "Recurring expense created", applog.OpCreate,
		applog.NewFields().
			WithRecurring(id).
			With(applog.FieldDescription, re.Description).
			With(applog.FieldFrequency, string(re.Every)).
			With(applog.FieldAmountCents, re.Base().Cents))

	if s.reports != nil {
		s.reports.InvalidateFrom(start.Year(), start.Month())
	}
	return re, nil
}

func (s *RecurringService) Get(ctx context.Context, id int64) (*core.RecurringExpense, error) {
	return s.store.GetRecurringExpense(ctx, id)
}

func (s *RecurringService) List(ctx context.Context) ([]*core.RecurringExpense, error) {
	return s.store.ListRecurringExpenses(ctx)
}

func (s *RecurringService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteRecurringExpense(ctx, id); err != nil {
		return err
	}
	s.log.LogEvent(ctx, slog.LevelInfo, "Recurring expense deleted", applog.OpDelete,
		applog.NewFields().WithRecurring(id))
	if s.reports != nil {
		s.reports.InvalidateAll()
	}
	return nil
}

// AddModification records that from effective onward the expense costs amount.
// Every later modification is discarded. Load and save run in one write
// transaction so concurrent writers, in this process or another, serialize.
func (s *RecurringService) AddModification(ctx context.Context, id int64, effective time.Time, amount core.Money) (*core.RecurringExpense, error) {
	var re *core.RecurringExpense
	err := s.store.UpdateModifications(ctx, id, func(loaded *core.RecurringExpense) error {
		if err := loaded.AddModification(effective, amount); err != nil {
			return err
		}
		re = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	day := core.TruncateDay(effective)
	s.log.LogModificationAdded(ctx, id, day.String(), amount.Cents)

	if s.reports != nil {
		s.reports.InvalidateFrom(day.Year(), day.Month())
	}
	if s.publisher == nil {
		s.log.LogEvent(ctx, slog.LevelDebug, "Publisher not available, skipping modification message", applog.OpPublish, nil)
		return re, nil
	}
	if err := s.publisher.PublishModification(ctx, id, day.UnixMilli(), amount.Cents); err != nil {
		// The change is stored; the report worker catches up on the next event.
		s.log.LogError(ctx, "Failed to publish modification message", err, applog.OpPublish,
			applog.NewFields().WithRecurring(id))
	}

	return re, nil
}

// AmountForMonth resolves the amount charged on the day of date.
func (s *RecurringService) AmountForMonth(ctx context.Context, id int64, date time.Time) (core.Money, error) {
	if date.IsZero() {
		return core.Money{}, fmt.Errorf("date is required: %w", core.ErrNullInput)
	}
	re, err := s.store.GetRecurringExpense(ctx, id)
	if err != nil {
		return core.Money{}, err
	}
	return re.AmountForMonth(date), nil
}

// Occurrences lists the scheduled charges of a recurring expense within [from, to].
func (s *RecurringService) Occurrences(ctx context.Context, id int64, from, to core.Date) ([]core.Occurrence, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("range bounds are required: %w", core.ErrNullInput)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s before start %s: %w", to, from, core.ErrInvalidArgument)
	}
	re, err := s.store.GetRecurringExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	return re.Occurrences(from, to), nil
}
