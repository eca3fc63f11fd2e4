package ingest

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid_date")

var amountReplacer = strings.NewReplacer(",", "", "¥", "", "￥", "", "円", "", " ", "", "　", "", "\t", "")

// ParseQuantity parses integer or decimal text. ok is false when the default of 1 was used.
func ParseQuantity(raw string) (qty int, ok bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if n, err := strconv.Atoi(s); err == nil {
		return clampQuantity(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1, false
	}
	return clampQuantity(int(f)), true
}

func clampQuantity(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// ParseAmount parses a tax-excluded yen amount. ok is false when the default of 0 was used.
func ParseAmount(raw string) (amount float64, ok bool) {
	s := amountReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"20060102",
	"2006/1/2",
	"2006-1-2",
}

// ParseDate accepts the date shapes seen in POS exports and returns a UTC day.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// NormalizeDate rewrites a parseable date to YYYY-MM-DD and leaves anything else untouched.
func NormalizeDate(raw string) string {
	t, err := ParseDate(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return t.Format("2006-01-02")
}
