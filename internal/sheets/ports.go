package sheets

import (
	"context"

	"bilancio/internal/core"
)

// ReportWriter exports month reports to an external sink.
type ReportWriter interface {
	// WriteMonthReport stores report and returns a reference to where it landed.
	WriteMonthReport(ctx context.Context, report core.MonthReport) (ref string, err error)
}
