package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

// RecurringAPI is the recurring expense surface used by the handlers.
type RecurringAPI interface {
	Create(ctx context.Context, in services.CreateRecurringInput) (*core.RecurringExpense, error)
	Get(ctx context.Context, id int64) (*core.RecurringExpense, error)
	List(ctx context.Context) ([]*core.RecurringExpense, error)
	Delete(ctx context.Context, id int64) error
	AddModification(ctx context.Context, id int64, effective time.Time, amount core.Money) (*core.RecurringExpense, error)
	AmountForMonth(ctx context.Context, id int64, date time.Time) (core.Money, error)
	Occurrences(ctx context.Context, id int64, from, to core.Date) ([]core.Occurrence, error)
}

// ExpenseAPI is the one-time expense surface used by the handlers.
type ExpenseAPI interface {
	CreateExpense(ctx context.Context, e core.Expense) (int64, error)
	ListMonth(ctx context.Context, year, month int) ([]core.Expense, error)
}

// ReportAPI builds month reports.
type ReportAPI interface {
	MonthReport(ctx context.Context, year, month int) (core.MonthReport, error)
}

// Options tunes the middleware chain. Zero values use defaults.
type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	recurring RecurringAPI
	expenses  ExpenseAPI
	reports   ReportAPI

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, recurring RecurringAPI, expenses ExpenseAPI, reports ReportAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}
	ips := security.NewIPResolver()

	s := &Server{
		recurring: recurring,
		expenses:  expenses,
		reports:   reports,
		limiter:   ratelimit.NewLimiter(limitCfg),
		tracer:    trace.NewMiddleware(ips.ClientIP, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/recurring", s.handleListRecurring)
	mux.HandleFunc("POST /api/recurring", s.handleCreateRecurring)
	mux.HandleFunc("GET /api/recurring/{id}", s.handleGetRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRecurring)
	mux.HandleFunc("POST /api/recurring/{id}/modifications", s.handleAddModification)
	mux.HandleFunc("GET /api/recurring/{id}/amount", s.handleAmount)
	mux.HandleFunc("GET /api/recurring/{id}/occurrences", s.handleOccurrences)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)

	mux.HandleFunc("GET /api/reports/{year}/{month}", s.handleMonthReport)
	mux.HandleFunc("GET /api/reports/{year}/{month}/chart.png", s.handleMonthChart)

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	}

	// outermost first: trace, request-scoped logger, headers, rate limit
	var handler http.Handler = mux
	handler = s.limiter.Middleware(ips.ClientIP, onLimit)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Metrics exposes request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
