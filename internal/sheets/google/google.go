package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client appends month reports to a year-prefixed sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Report"); the report year is prefixed on write.
	reportBase string
	now        func() time.Time
}

var _ ports.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client authenticated with service account
// credentials found in the environment.
func NewFromEnv(ctx context.Context, spreadsheetID, reportSheet string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, reportSheet), nil
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, reportSheet string) *Client {
	reportSheet = strings.TrimSpace(reportSheet)
	if reportSheet == "" {
		reportSheet = "Report"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportBase:    reportSheet,
		now:           time.Now,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// WriteMonthReport appends one row per category followed by the month totals.
// Columns: month, category, euros, generated_at.
func (c *Client) WriteMonthReport(ctx context.Context, report core.MonthReport) (string, error) {
	if report.Month < 1 || report.Month > 12 {
		return "", fmt.Errorf("month %d: %w", report.Month, core.ErrInvalidMonth)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.reportBase, report.Year)
	rng := fmt.Sprintf("%s!A:D", sheet)
	vr := &gsheet.ValueRange{Values: reportRows(report, c.now())}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append %s: %w", rng, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Month report appended to sheet",
		"month", report.Key(),
		"sheet", sheet,
		"rows", len(vr.Values),
		"range", ref)
	return ref, nil
}

func reportRows(report core.MonthReport, generatedAt time.Time) [][]interface{} {
	month := report.Key()
	stamp := generatedAt.UTC().Format(time.RFC3339)
	rows := make([][]interface{}, 0, len(report.ByCategory)+3)
	for _, cat := range report.ByCategory {
		rows = append(rows, []interface{}{month, cat.Name, cat.Amount.Euros(), stamp})
	}
	rows = append(rows,
		[]interface{}{month, "Totale spese", report.Expenses.Euros(), stamp},
		[]interface{}{month, "Totale entrate", report.Revenues.Euros(), stamp},
		[]interface{}{month, "Saldo", report.Balance.Euros(), stamp},
	)
	return rows
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
