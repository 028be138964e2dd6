// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies, path identifiers, dates and amounts.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bilancio/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object, rejecting unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return id, nil
}

// pathYearMonth parses the {year} and {month} path values. The month range
// is checked by the services.
func pathYearMonth(r *http.Request) (year, month int, err error) {
	if year, err = strconv.Atoi(r.PathValue("year")); err != nil {
		return 0, 0, fmt.Errorf("%w: invalid year %q", errBadRequest, r.PathValue("year"))
	}
	if month, err = strconv.Atoi(r.PathValue("month")); err != nil {
		return 0, 0, fmt.Errorf("%w: invalid month %q", errBadRequest, r.PathValue("month"))
	}
	return year, month, nil
}

// queryYearMonth reads ?year=&month=; both are required.
func queryYearMonth(r *http.Request) (year, month int, err error) {
	q := r.URL.Query()
	if year, err = strconv.Atoi(strings.TrimSpace(q.Get("year"))); err != nil {
		return 0, 0, fmt.Errorf("%w: year query parameter must be a number", errBadRequest)
	}
	if month, err = strconv.Atoi(strings.TrimSpace(q.Get("month"))); err != nil {
		return 0, 0, fmt.Errorf("%w: month query parameter must be a number", errBadRequest)
	}
	return year, month, nil
}

// parseOptionalDate returns a zero Date for blank input so the services can
// report a missing value, and errBadRequest for malformed input.
func parseOptionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return d, nil
}

// amountInput holds either a JSON number or a decimal string such as "12,34".
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	*a = amountInput(b)
	return nil
}

// parseAmount converts to cents. A missing amount, or one rounding to zero,
// is left for the domain to reject.
func parseAmount(a amountInput) (core.Money, error) {
	m, err := core.ParseMoney(string(a))
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: invalid amount %q", errBadRequest, string(a))
	}
	return m, nil
}
