package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disposal-planner/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestNextIsStrictlyAfter(t *testing.T) {
	starts := []time.Time{
		date(2025, time.January, 6),
		date(2025, time.January, 31),
		date(2024, time.February, 29),
		date(2025, time.December, 31),
	}
	for _, p := range model.RecurrencePatterns {
		for _, d := range starts {
			next, ok := Next(d, p)
			require.True(t, ok, "pattern %s", p)
			assert.True(t, next.After(d), "%s from %s gave %s", p, d, next)
		}
	}
}

func TestNextFixedIntervals(t *testing.T) {
	d := date(2025, time.January, 6)

	cases := []struct {
		pattern model.RecurrencePattern
		want    time.Time
	}{
		{model.RecurrenceDaily, date(2025, time.January, 7)},
		{model.RecurrenceWeekly, date(2025, time.January, 13)},
		{model.RecurrenceBiweekly, date(2025, time.January, 20)},
		{model.RecurrenceMonthly, date(2025, time.February, 6)},
		{model.RecurrenceQuarterly, date(2025, time.April, 6)},
		{model.RecurrenceYearly, date(2026, time.January, 6)},
	}
	for _, tc := range cases {
		t.Run(string(tc.pattern), func(t *testing.T) {
			got, ok := Next(d, tc.pattern)
			require.True(t, ok)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestWeeklyDoesNotDrift(t *testing.T) {
	d := date(2025, time.March, 3)
	first, _ := Next(d, model.RecurrenceWeekly)
	second, _ := Next(first, model.RecurrenceWeekly)

	assert.Equal(t, 7*24*time.Hour, first.Sub(d))
	assert.True(t, second.Equal(d.AddDate(0, 0, 14)))
}

func TestMonthlyClampsToLastDay(t *testing.T) {
	got, ok := Next(date(2025, time.January, 31), model.RecurrenceMonthly)
	require.True(t, ok)
	assert.Equal(t, date(2025, time.February, 28), got)

	got, _ = Next(date(2024, time.January, 31), model.RecurrenceMonthly)
	assert.Equal(t, date(2024, time.February, 29), got)

	got, _ = Next(date(2025, time.November, 30), model.RecurrenceQuarterly)
	assert.Equal(t, date(2026, time.February, 28), got)

	got, _ = Next(date(2024, time.February, 29), model.RecurrenceYearly)
	assert.Equal(t, date(2025, time.February, 28), got)
}

func TestMonthlyKeepsClock(t *testing.T) {
	from := time.Date(2025, time.May, 15, 14, 45, 12, 500, time.UTC)
	got, _ := Next(from, model.RecurrenceMonthly)
	assert.Equal(t, time.Date(2025, time.June, 15, 14, 45, 12, 500, time.UTC), got)
}

func TestNextUnknownPattern(t *testing.T) {
	_, ok := Next(date(2025, time.January, 6), model.RecurrencePattern("fortnightly"))
	assert.False(t, ok)

	_, ok = Next(date(2025, time.January, 6), "")
	assert.False(t, ok)
}

func TestWithinBound(t *testing.T) {
	end := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, WithinBound(date(2025, time.January, 10), &end, time.UTC),
		"end date is inclusive of its whole day")
	assert.False(t, WithinBound(date(2025, time.January, 13), &end, time.UTC))
	assert.True(t, WithinBound(date(2030, time.January, 1), nil, time.UTC))
}

func TestDayBoundsAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	start, end := DayBounds(time.Date(2025, time.March, 30, 12, 0, 0, 0, loc), loc)
	assert.Equal(t, 23*time.Hour, end.Sub(start))
	assert.Equal(t, 0, start.Hour())
}
