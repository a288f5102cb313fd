// Package core holds the shared data model of the finance tracker:
// accounts, transactions, savings allocations and the money/date value
// types they are built on.
package core

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Money is an amount in minor units (cents). Using int64 cents keeps all
// arithmetic exact; floats appear only at display boundaries.
type Money struct {
	Cents int64
}

// Units returns the major-unit value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// Abs returns the magnitude of the amount in cents.
func (m Money) Abs() int64 {
	if m.Cents < 0 {
		return -m.Cents
	}
	return m.Cents
}

// ParseSignedToCents converts a signed decimal string to cents with
// half-up rounding on the third decimal place. It accepts both dot
// (12.34) and comma (12,34) separators and an optional leading sign.
// Zero is rejected: a signless amount carries no meaning in the ledger.
//
// Examples:
//
//	ParseSignedToCents("12.34")  -> 1234, nil
//	ParseSignedToCents("-12,34") -> -1234, nil
//	ParseSignedToCents("12.346") -> 1235, nil (rounds up)
func ParseSignedToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}

	// First two fractional digits, half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if cents == 0 {
		return 0, ErrInvalidAmount
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

// Date is a calendar date; the time-of-day portion is always midnight UTC.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ISO renders the date in YYYY-MM-DD form.
func (d Date) ISO() string {
	return d.Format(dateLayout)
}

// YearMonth renders the YYYY-MM prefix used for period-scoped queries.
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}
