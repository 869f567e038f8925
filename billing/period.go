package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - One billing month, identified by a "YYYY-MM" token
// =============================================================================

// Period identifies one billing month for a contract. Exactly one invoice
// exists per (contract, period) pair.
type Period string

// PeriodOf returns the period containing the given date.
func PeriodOf(d Date) Period {
	return Period(d.normalize().Format("2006-01"))
}

// ParsePeriod validates a "YYYY-MM" token.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("invalid period %q (use YYYY-MM): %w", s, err)
	}
	return PeriodOf(Date{Time: t}), nil
}

// start returns the first day of the period's month. Periods are produced
// by PeriodOf/NewPeriod and always parse; a malformed token yields the
// zero date, which callers never generate.
func (p Period) start() Date {
	t, err := time.Parse("2006-01", string(p))
	if err != nil {
		return Date{}
	}
	return Date{Time: t}
}

func (p Period) Year() int         { return p.start().Year() }
func (p Period) Month() time.Month { return p.start().Month() }

// Next returns the following calendar month.
func (p Period) Next() Period { return PeriodOf(p.start().AddMonths(1)) }

// Before compares periods chronologically. The token format makes this
// equivalent to string comparison.
func (p Period) Before(other Period) bool { return p < other }

// PeriodsBetween returns every calendar month touched by [start, end],
// ascending. Empty when start is after end.
func PeriodsBetween(start, end Date) []Period {
	if start.After(end) {
		return nil
	}
	var periods []Period
	for p, last := PeriodOf(start), PeriodOf(end); ; p = p.Next() {
		periods = append(periods, p)
		if p == last {
			break
		}
	}
	return periods
}

// DueDateFor returns the due date of an invoice for the given period,
// anchored to the contract start's day-of-month. When the period's month is
// shorter than the anchor day (start on the 31st, February invoice), the due
// date clamps to the last day of that month rather than rolling over.
func DueDateFor(p Period, anchorDay int) Date {
	day := anchorDay
	if max := DaysInMonth(p.Year(), p.Month()); day > max {
		day = max
	}
	return NewDate(p.Year(), p.Month(), day)
}
