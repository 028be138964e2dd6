package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldDate          = "date"
	FieldRecurringID   = "recurring_id"
	FieldExpenseID     = "expense_id"
	FieldEffectiveDate = "effective_date"
	FieldAmountCents   = "amount_cents"
	FieldBalanceCents  = "balance_cents"
	FieldDescription   = "description"
	FieldFrequency     = "frequency"
	FieldReportRef     = "report_ref"
	FieldCount         = "count"
	FieldTotal         = "total"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentRecurring = "recurring"
	ComponentExpense   = "expense"
	ComponentReport    = "report"
	ComponentWorker    = "worker"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate  = "create"
	OpDelete  = "delete"
	OpModify  = "modify"
	OpPublish = "publish"
	OpProcess = "process"
	OpBuild   = "build"
	OpRefresh = "refresh"
	OpExport  = "export"
	OpStartup = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRecurring identifies a recurring expense.
func (f LogFields) WithRecurring(id int64) LogFields {
	f[FieldRecurringID] = id
	return f
}

// WithModification adds the fields describing an amount change of a recurring expense.
func (f LogFields) WithModification(recurringID int64, effectiveDate string, amountCents int64) LogFields {
	f[FieldRecurringID] = recurringID
	f[FieldEffectiveDate] = effectiveDate
	f[FieldAmountCents] = amountCents
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(id int64, date string, amountCents int64) LogFields {
	f[FieldExpenseID] = id
	f[FieldDate] = date
	f[FieldAmountCents] = amountCents
	return f
}

// WithMonth adds the year/month a report refers to.
func (f LogFields) WithMonth(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// With sets an arbitrary field.
func (f LogFields) With(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
