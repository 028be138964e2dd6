package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return Default()
}

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger provides structured logging methods with context awareness.
// The component comes from the wrapped Logger.
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger. A nil logger falls back
// to the process default.
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	if logger == nil {
		logger = Default()
	}
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		With(FieldMethod, r.Method).
		With(FieldPath, r.URL.Path).
		With(FieldStatusCode, statusCode).
		With(FieldDuration, durationMs).
		With(FieldSuccess, statusCode < 400).
		With(FieldClientIP, clientIP)

	sl.logger.LogFields(ctx, level, "HTTP request completed", fields)
}

// LogModificationAdded logs a new amount for a recurring expense
func (sl *StructuredLogger) LogModificationAdded(ctx context.Context, recurringID int64, effectiveDate string, amountCents int64) {
	fields := NewFields().
		WithModification(recurringID, effectiveDate, amountCents).
		WithOperation(OpModify)

	sl.logger.LogFields(ctx, slog.LevelInfo, "Recurring expense modified", fields)
}

// LogExpenseCreated logs successful expense creation
func (sl *StructuredLogger) LogExpenseCreated(ctx context.Context, id int64, date string, amountCents int64) {
	fields := NewFields().
		WithExpense(id, date, amountCents).
		WithOperation(OpCreate)

	sl.logger.LogFields(ctx, slog.LevelInfo, "Expense created successfully", fields)
}

// LogReportExported logs a month report written to an external sink
func (sl *StructuredLogger) LogReportExported(ctx context.Context, year, month int, ref string, balanceCents int64) {
	fields := NewFields().
		WithMonth(year, month).
		WithOperation(OpExport).
		With(FieldReportRef, ref).
		With(FieldBalanceCents, balanceCents)

	sl.logger.LogFields(ctx, slog.LevelInfo, "Month report exported", fields)
}

// LogEvent logs msg at level with the operation and the given fields.
func (sl *StructuredLogger) LogEvent(ctx context.Context, level slog.Level, msg string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.LogFields(ctx, level, msg, fields.WithOperation(operation))
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.LogFields(ctx, slog.LevelError, msg, allFields)
}
