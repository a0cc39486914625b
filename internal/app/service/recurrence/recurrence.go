// Package recurrence implements billing-cycle date arithmetic on ISO
// calendar dates (YYYY-MM-DD). All math is anchored to UTC midnights so
// daylight-saving transitions can never shift a due date.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/nebulahq/nebula/pkg/types"
)

var (
	// ErrInvalidDate is returned for malformed or impossible calendar dates.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidCustomDays is returned when a custom_days cycle has a
	// missing or non-positive interval.
	ErrInvalidCustomDays = errors.New("invalid custom days")
)

const isoDateLayout = "2006-01-02"

func parseISODate(s string) (year, month, day int, ok bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return 0, 0, 0, false
	}
	for i, r := range s {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return 0, 0, 0, false
		}
	}
	year = atoi(s[:4])
	month = atoi(s[5:7])
	day = atoi(s[8:10])
	if month < 1 || month > 12 {
		return 0, 0, 0, false
	}
	if day < 1 || day > daysInMonth(year, month) {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func daysInMonth(year, month int) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func formatISODate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// IsValidISODate reports whether s is a well-formed YYYY-MM-DD date whose
// day actually exists in its month.
func IsValidISODate(s string) bool {
	_, _, _, ok := parseISODate(s)
	return ok
}

// AddDays returns date shifted by n calendar days (n may be negative).
func AddDays(date string, n int) (string, error) {
	y, m, d, ok := parseISODate(date)
	if !ok {
		return "", ErrInvalidDate
	}
	return time.Date(y, time.Month(m), d+n, 0, 0, 0, 0, time.UTC).Format(isoDateLayout), nil
}

// AddMonths returns date shifted by n months, clamping the day-of-month to
// the last valid day of the target month (Jan 31 + 1 month = Feb 28/29).
// This matches subscription-billing semantics; time.AddDate would overflow
// into the next month instead.
func AddMonths(date string, n int) (string, error) {
	y, m, d, ok := parseISODate(date)
	if !ok {
		return "", ErrInvalidDate
	}
	total := y*12 + (m - 1) + n
	ty := floorDiv(total, 12)
	tm := total - ty*12 + 1
	dim := daysInMonth(ty, tm)
	if d > dim {
		d = dim
	}
	return formatISODate(ty, tm, d), nil
}

// AddYears returns date shifted by n years with the same end-of-month
// clamping as AddMonths (Feb 29 + 1 year = Feb 28).
func AddYears(date string, n int) (string, error) {
	return AddMonths(date, 12*n)
}

// floorDiv divides rounding toward negative infinity, so negative month
// offsets land in the correct year.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// DiffDays returns the signed whole-day difference from a to b, computed
// between the two UTC midnights. Positive means b is after a.
func DiffDays(a, b string) (int, error) {
	ta, err := time.Parse(isoDateLayout, a)
	if err != nil {
		return 0, ErrInvalidDate
	}
	tb, err := time.Parse(isoDateLayout, b)
	if err != nil {
		return 0, ErrInvalidDate
	}
	return int(tb.Sub(ta) / (24 * time.Hour)), nil
}

// NextDueDateInput describes how a subscription's next due date is derived.
type NextDueDateInput struct {
	StartDate  string
	Cycle      types.PaymentCycle
	CustomDays *int
	// ExplicitNextDueDate, when non-empty and valid, overrides the cycle
	// computation entirely. No consistency check against the cycle is made.
	ExplicitNextDueDate string
}

// ComputeNextDueDate derives the first due date after StartDate according
// to the cycle, or returns the explicit override when one is supplied.
func ComputeNextDueDate(in NextDueDateInput) (string, error) {
	if !IsValidISODate(in.StartDate) {
		return "", fmt.Errorf("start date %q: %w", in.StartDate, ErrInvalidDate)
	}

	if in.ExplicitNextDueDate != "" {
		if !IsValidISODate(in.ExplicitNextDueDate) {
			return "", fmt.Errorf("next due date %q: %w", in.ExplicitNextDueDate, ErrInvalidDate)
		}
		return in.ExplicitNextDueDate, nil
	}

	switch in.Cycle {
	case types.PaymentCycleMonthly:
		return AddMonths(in.StartDate, 1)
	case types.PaymentCycleYearly:
		return AddYears(in.StartDate, 1)
	case types.PaymentCycleCustomDays:
		if in.CustomDays == nil || *in.CustomDays <= 0 {
			return "", ErrInvalidCustomDays
		}
		return AddDays(in.StartDate, *in.CustomDays)
	default:
		return "", fmt.Errorf("payment cycle %q: %w", in.Cycle, ErrInvalidDate)
	}
}
