package cml

import (
	"math"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

var dateLayouts = []string{
	dateLayout,
	"02.01.2006",
	"2006/01/02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

var clockLayouts = []string{
	clockLayout,
	"15:04",
	"15:04:05.000",
	"2006-01-02T15:04:05",
}

// parseDecimal parses an amount. Thousands separators written as spaces and
// a comma decimal separator are accepted. ok is false for non-empty input
// that is not a number; the value is zero then.
func parseDecimal(value string) (d decimal.Decimal, ok bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		case ',':
			return '.'
		}
		return r
	}, strings.TrimSpace(value))

	if cleaned == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseInt parses a whole quantity, truncating any fraction. Values outside
// the int range are rejected like any other malformed number.
func parseInt(value string) (int, bool) {
	d, ok := parseDecimal(value)
	if !ok {
		return 0, false
	}
	whole := d.BigInt()
	if !whole.IsInt64() {
		return 0, false
	}
	n := whole.Int64()
	if n > math.MaxInt || n < math.MinInt {
		return 0, false
	}
	return int(n), true
}

// parseDate parses a calendar date. Unknown formats yield the zero time.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseClock parses a time of day, kept on the zero date with second precision
func parseClock(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, true
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), valueTrue)
}

// imageBasename strips every directory component from a document supplied
// image reference. Both slash styles are treated as separators.
func imageBasename(reference string) (string, bool) {
	reference = strings.TrimSpace(strings.ReplaceAll(reference, `\`, "/"))
	if reference == "" {
		return "", false
	}
	name := path.Base(reference)
	switch name {
	case ".", "..", "/":
		return "", false
	}
	return name, true
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(clockLayout)
}
