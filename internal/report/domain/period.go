package domain

import (
	"fmt"
	"time"
)

// Period is the calendar-month window a report covers.
type Period struct {
	Year  int
	Month time.Month
	Start time.Time // inclusive, local midnight of day 1
	End   time.Time // exclusive, local midnight of day 1 of the next month
}

// ResolvePeriod computes the report period. With year and month both
// zero it resolves to the calendar month before now; with both set it
// validates and uses them directly. Supplying only one is an error.
func ResolvePeriod(year, month int, now time.Time, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.Local
	}
	switch {
	case year == 0 && month == 0:
		first := time.Date(now.In(loc).Year(), now.In(loc).Month(), 1, 0, 0, 0, 0, loc)
		prev := first.AddDate(0, -1, 0)
		year, month = prev.Year(), int(prev.Month())
	case year == 0 || month == 0:
		return Period{}, fmt.Errorf("%w: year and month must be supplied together", ErrInvalidPeriod)
	default:
		if month < 1 || month > 12 {
			return Period{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
		}
		if year < 1000 || year > 9999 {
			return Period{}, fmt.Errorf("%w: year %d is not a 4-digit year", ErrInvalidPeriod, year)
		}
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Period{
		Year:  year,
		Month: time.Month(month),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}, nil
}

// Contains reports whether t falls inside the period window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Key is the deterministic period identifier used in filenames.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
