package http

import (
	"net/http"
	"strings"

	"gastos/internal/core"
)

// parseMonthQuery reads ?month=YYYY-MM, defaulting to the month of today.
func parseMonthQuery(r *http.Request, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return today.FirstOfMonth(), nil
	}
	if err := validate.Var(v, "yearmonth"); err != nil {
		return core.Date{}, &ValidationError{Fields: map[string]string{"month": "must be a month in YYYY-MM format"}}
	}
	return core.ParseMonth(v)
}

// accountQuery reads the optional ?account= filter.
func accountQuery(r *http.Request) string {
	return sanitizeInput(r.URL.Query().Get("account"))
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// mustDate parses a date that already passed the isodate validation.
func mustDate(s string) core.Date {
	d, _ := core.ParseDate(s)
	return d
}
