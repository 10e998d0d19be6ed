// Package recurrence computes successor dates for recurring disposal entries.
//
// Month-based patterns clamp to the last day of the target month, so an entry
// on January 31 recurs on February 28 (or 29). Successors are computed from
// the previous occurrence, which means a clamped date carries forward:
// Jan 31, Feb 28, Mar 28, ...
package recurrence

import (
	"time"

	"github.com/nhle/disposal-planner/internal/model"
)

// Next returns the occurrence following from for pattern p. The second
// return value is false for an unknown pattern, meaning no successor should
// be created. Calendar arithmetic uses from's location.
func Next(from time.Time, p model.RecurrencePattern) (time.Time, bool) {
	switch p {
	case model.RecurrenceDaily:
		return from.AddDate(0, 0, 1), true
	case model.RecurrenceWeekly:
		return from.AddDate(0, 0, 7), true
	case model.RecurrenceBiweekly:
		return from.AddDate(0, 0, 14), true
	case model.RecurrenceMonthly:
		return addMonthsClamped(from, 1), true
	case model.RecurrenceQuarterly:
		return addMonthsClamped(from, 3), true
	case model.RecurrenceYearly:
		return addMonthsClamped(from, 12), true
	default:
		return time.Time{}, false
	}
}

// addMonthsClamped adds n calendar months to t, keeping the day of month
// unless the target month is shorter.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := DaysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in month m of year y.
func DaysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayBounds returns the half-open window [start, end) covering t's calendar
// day in loc. The end is the next midnight, which is not always 24h later.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// WithinBound reports whether next may still be scheduled under end.
// The bound covers the whole calendar day of end in loc; a nil end is unbounded.
func WithinBound(next time.Time, end *time.Time, loc *time.Location) bool {
	if end == nil {
		return true
	}
	_, limit := DayBounds(*end, loc)
	return next.Before(limit)
}
