package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "bilancio.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Output: io.Discard})
	}
	reports := services.NewReportService(repo, repo, cache.NewLRUCache[core.MonthReport](12, time.Minute), opts.Logger)
	recurring := services.NewRecurringService(repo, nil, reports, opts.Logger)
	expenses := services.NewExpenseService(repo, nil, reports, opts.Logger)

	srv := NewServer(":0", recurring, expenses, reports, opts)
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

const rentBody = `{"description":"Affitto","every":"monthly","primary":"Casa","secondary":"Affitto","amount":"800","start":"2025-01-01"}`

func createRent(t *testing.T, srv *Server) recurringResponse {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/recurring", rentBody)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decode[recurringResponse](t, rr)
}

func TestHealthAndHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if srv.Metrics().TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", srv.Metrics().TotalRequests)
	}

	rr = do(t, srv, http.MethodPut, "/api/expenses", "{}")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestRecurringLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})
	rent := createRent(t, srv)
	if rent.BaseCents != 80000 || rent.Start != "2025-01-01" || rent.End != "" {
		t.Fatalf("unexpected recurring %+v", rent)
	}
	base := "/api/recurring/" + itoa(rent.ID)

	rr := do(t, srv, http.MethodPost, base+"/modifications", `{"date":"2025-03-01","amount":850}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("modification status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[recurringResponse](t, rr)
	if len(got.Modifications) != 1 || got.Modifications[0].AmountCents != 85000 {
		t.Fatalf("unexpected modifications %+v", got.Modifications)
	}

	amounts := map[string]int64{
		"2025-02-15": 80000,
		"2025-03-01": 80000, // not on its own effective day
		"2025-03-02": 85000,
	}
	for date, want := range amounts {
		rr := do(t, srv, http.MethodGet, base+"/amount?date="+date, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("amount %s status=%d", date, rr.Code)
		}
		if a := decode[amountResponse](t, rr); a.AmountCents != want {
			t.Errorf("amount on %s = %d, want %d", date, a.AmountCents, want)
		}
	}

	rr = do(t, srv, http.MethodGet, base+"/occurrences?from=2025-01-01&to=2025-04-30", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("occurrences status=%d", rr.Code)
	}
	occ := decode[[]occurrenceResponse](t, rr)
	wantOcc := []int64{80000, 80000, 80000, 85000}
	if len(occ) != len(wantOcc) {
		t.Fatalf("got %d occurrences, want %d", len(occ), len(wantOcc))
	}
	for i := range wantOcc {
		if occ[i].AmountCents != wantOcc[i] {
			t.Errorf("occurrence %s = %d, want %d", occ[i].Date, occ[i].AmountCents, wantOcc[i])
		}
	}

	rr = do(t, srv, http.MethodGet, "/api/recurring", "")
	if list := decode[[]recurringResponse](t, rr); len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}

	if rr := do(t, srv, http.MethodDelete, base, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, base, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status=%d, want 404", rr.Code)
	}
}

func TestRecurringErrors(t *testing.T) {
	srv := newTestServer(t, Options{})
	rent := createRent(t, srv)
	base := "/api/recurring/" + itoa(rent.ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"zero modification amount", http.MethodPost, base + "/modifications", `{"date":"2025-03-01","amount":0}`, http.StatusUnprocessableEntity},
		{"zero decimal modification amount", http.MethodPost, base + "/modifications", `{"date":"2025-03-01","amount":"0.00"}`, http.StatusUnprocessableEntity},
		{"amount rounding to zero", http.MethodPost, base + "/modifications", `{"date":"2025-03-01","amount":"0.004"}`, http.StatusUnprocessableEntity},
		{"non-ascii digits in amount", http.MethodPost, base + "/modifications", `{"date":"2025-03-01","amount":"1.٣"}`, http.StatusBadRequest},
		{"missing modification date", http.MethodPost, base + "/modifications", `{"amount":"10"}`, http.StatusUnprocessableEntity},
		{"zero amount wins over missing date", http.MethodPost, base + "/modifications", `{}`, http.StatusUnprocessableEntity},
		{"malformed date", http.MethodPost, base + "/modifications", `{"date":"03/01/2025","amount":10}`, http.StatusBadRequest},
		{"malformed amount", http.MethodPost, base + "/modifications", `{"date":"2025-03-01","amount":"ten"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, base + "/modifications", `{"when":"2025-03-01"}`, http.StatusBadRequest},
		{"unknown recurring", http.MethodPost, "/api/recurring/999/modifications", `{"date":"2025-03-01","amount":10}`, http.StatusNotFound},
		{"non numeric id", http.MethodGet, "/api/recurring/abc", "", http.StatusBadRequest},
		{"amount without date", http.MethodGet, base + "/amount", "", http.StatusUnprocessableEntity},
		{"reversed range", http.MethodGet, base + "/occurrences?from=2025-05-01&to=2025-01-01", "", http.StatusUnprocessableEntity},
		{"invalid repetition", http.MethodPost, "/api/recurring", strings.Replace(rentBody, "monthly", "hourly", 1), http.StatusUnprocessableEntity},
		{"missing start", http.MethodPost, "/api/recurring", strings.Replace(rentBody, `"2025-01-01"`, `""`, 1), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if e := decode[errorResponse](t, rr); e.Error == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestExpensesAndReports(t *testing.T) {
	srv := newTestServer(t, Options{})
	createRent(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"date":"2025-03-10","description":"Spesa","amount":"45,50","primary":"Spesa","secondary":"Supermercato"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expense status=%d body=%s", rr.Code, rr.Body.String())
	}
	if e := decode[expenseResponse](t, rr); e.ID == 0 || e.AmountCents != 4550 {
		t.Fatalf("unexpected expense %+v", e)
	}
	rr = do(t, srv, http.MethodPost, "/api/expenses", `{"date":"2025-03-27","description":"Stipendio","amount":-2000,"primary":"Entrate","secondary":"Stipendio"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create revenue status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses?year=2025&month=3", "")
	if list := decode[[]expenseResponse](t, rr); len(list) != 2 {
		t.Errorf("expense list len = %d, want 2", len(list))
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/2025/3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("report status=%d", rr.Code)
	}
	report := decode[reportResponse](t, rr)
	if report.ExpensesCents != 80000+4550 || report.RevenuesCents != 200000 {
		t.Errorf("unexpected totals %+v", report)
	}
	if report.BalanceCents != 200000-84550 {
		t.Errorf("balance = %d", report.BalanceCents)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/2025/3/chart.png", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("chart status=%d content-type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if rr := do(t, srv, http.MethodGet, "/api/reports/2024/3/chart.png", ""); rr.Code != http.StatusNoContent {
		t.Errorf("empty chart status=%d, want 204", rr.Code)
	}

	for path, want := range map[string]int{
		"/api/reports/2025/13":            http.StatusUnprocessableEntity,
		"/api/reports/2025/march":         http.StatusBadRequest,
		"/api/expenses?year=2025&month=0": http.StatusUnprocessableEntity,
		"/api/expenses?month=3":           http.StatusBadRequest,
	} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != want {
			t.Errorf("%s status=%d, want %d", path, rr.Code, want)
		}
	}

	rr = do(t, srv, http.MethodPost, "/api/expenses", `{"date":"2025-03-10","description":"","amount":"1","primary":"A","secondary":"B"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty description status=%d, want 422", rr.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})

	createRent(t, srv)
	rr := do(t, srv, http.MethodPost, "/api/recurring", rentBody)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rr := do(t, srv, http.MethodGet, "/api/recurring", ""); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, got %d", rr.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
