package main

import (
	"fmt"
	"strconv"

	"bilancio/internal/core"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseMoney accepts "12.34" or "12,34"; an amount rounding to zero is passed
// through so the domain reports it.
func parseMoney(s string) (core.Money, error) {
	m, err := core.ParseMoney(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return m, nil
}

// parseDay returns a zero Date for an empty string.
func parseDay(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}
