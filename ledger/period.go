package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE RANGE - Half-open interval for report scoping
// =============================================================================

// DateRange is a half-open interval [From, To). Reports are always scoped
// to a range; an explicit range, a months-back shorthand, or the default
// current-month-to-date.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains returns true if d falls within [From, To).
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.From) && d.Before(r.To)
}

// IsZero reports whether the range is unset.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Valid reports whether the range is well-formed (From strictly before To).
func (r DateRange) Valid() bool {
	return r.From.Before(r.To)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
}

// =============================================================================
// RANGE CONSTRUCTORS
// =============================================================================

// NewDateRange builds a half-open range covering from..to inclusive of both
// business dates (To is the day after `to`).
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: Day(from), To: Day(to).AddDate(0, 0, 1)}
}

// MonthsBack resolves the "n whole calendar months before today" shorthand.
// MonthsBack(2024-03-15, 1) covers the whole of February:
// [2024-02-01, 2024-03-01).
func MonthsBack(today time.Time, n int) DateRange {
	startOfThisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{
		From: startOfThisMonth.AddDate(0, -n, 0),
		To:   startOfThisMonth,
	}
}

// CurrentMonthToDate is the default report scope: the first of the current
// calendar month through today.
func CurrentMonthToDate(today time.Time) DateRange {
	return DateRange{
		From: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC),
		To:   Day(today).AddDate(0, 0, 1),
	}
}
