package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/familyschedule/internal/calendar"
)

func TestWeekNumber_YearBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		wantYear int
		wantWeek int
	}{
		{"dec 31 2024 belongs to 2025", calendar.Date(2024, time.December, 31), 2025, 1},
		{"jan 1 2021 belongs to 2020", calendar.Date(2021, time.January, 1), 2020, 53},
		{"jan 1 2024 is monday of week 1", calendar.Date(2024, time.January, 1), 2024, 1},
		{"dec 28 is always in last week", calendar.Date(2026, time.December, 28), 2026, 53},
		{"jan 3 2027 still in 2026", calendar.Date(2027, time.January, 3), 2026, 53},
		{"mid year", calendar.Date(2024, time.March, 6), 2024, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, week := calendar.ISOWeek(tt.date)
			assert.Equal(t, tt.wantYear, year)
			assert.Equal(t, tt.wantWeek, week)
			assert.Equal(t, tt.wantWeek, calendar.WeekNumber(tt.date))
		})
	}
}

func TestWeekNumber_IgnoresWallClock(t *testing.T) {
	morning := time.Date(2024, time.December, 29, 0, 0, 1, 0, time.UTC)
	night := time.Date(2024, time.December, 29, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, 52, calendar.WeekNumber(morning))
	assert.Equal(t, 52, calendar.WeekNumber(night))
}

func TestWeekNumber_MatchesStdlib(t *testing.T) {
	day := calendar.Date(2015, time.January, 1)
	for i := 0; i < 366*15; i++ {
		d := day.AddDate(0, 0, i)
		wantYear, wantWeek := d.ISOWeek()
		year, week := calendar.ISOWeek(d)
		require.Equal(t, wantWeek, week, "week of %s", d.Format("2006-01-02"))
		require.Equal(t, wantYear, year, "year of %s", d.Format("2006-01-02"))
	}
}

func TestWeeksInYear(t *testing.T) {
	assert.Equal(t, 53, calendar.WeeksInYear(2020))
	assert.Equal(t, 52, calendar.WeeksInYear(2023))
	assert.Equal(t, 52, calendar.WeeksInYear(2024))
	assert.Equal(t, 53, calendar.WeeksInYear(2026))
	assert.Equal(t, 53, calendar.WeeksInYear(2015))
}

func TestWeekDates(t *testing.T) {
	dates := calendar.WeekDates(10, 2024, 5)
	require.Len(t, dates, 5)
	assert.Equal(t, calendar.Date(2024, time.March, 4), dates[0])
	assert.Equal(t, calendar.Date(2024, time.March, 8), dates[4])
	for i, d := range dates {
		assert.Equal(t, time.Weekday((i+1)%7), d.Weekday())
	}

	full := calendar.WeekDates(1, 2025, 7)
	require.Len(t, full, 7)
	assert.Equal(t, calendar.Date(2024, time.December, 30), full[0])
	assert.Equal(t, calendar.Date(2025, time.January, 5), full[6])

	assert.Equal(t, calendar.Date(2020, time.December, 28), calendar.WeekDates(53, 2020, 1)[0])
}

func TestWeekDates_RoundTrip(t *testing.T) {
	for year := 2018; year <= 2032; year++ {
		for week := 1; week <= calendar.WeeksInYear(year); week++ {
			monday := calendar.WeekDates(week, year, 7)[0]
			require.Equal(t, time.Monday, monday.Weekday())

			gotYear, gotWeek := calendar.ISOWeek(monday)
			require.Equal(t, week, gotWeek, "week %d/%d", week, year)
			require.Equal(t, year, gotYear, "week %d/%d", week, year)
		}
	}
}

func TestShiftWeek(t *testing.T) {
	tests := []struct {
		name             string
		week, year, dir  int
		wantWeek, wantYr int
	}{
		{"forward into new year", 52, 2024, 1, 1, 2025},
		{"back into old year", 1, 2025, -1, 52, 2024},
		{"forward out of week 53", 53, 2020, 1, 1, 2021},
		{"back into week 53", 1, 2021, -1, 53, 2020},
		{"plain forward", 10, 2024, 1, 11, 2024},
		{"multi week jump", 50, 2026, 4, 1, 2027},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week, year := calendar.ShiftWeek(tt.week, tt.year, tt.dir)
			assert.Equal(t, tt.wantWeek, week)
			assert.Equal(t, tt.wantYr, year)
		})
	}
}

func TestValidWeek(t *testing.T) {
	assert.True(t, calendar.ValidWeek(53, 2020))
	assert.False(t, calendar.ValidWeek(53, 2023))
	assert.False(t, calendar.ValidWeek(0, 2023))
	assert.False(t, calendar.ValidWeek(10, 0))
}

func TestFormatWeekRange(t *testing.T) {
	assert.Equal(t, "4-8 mars", calendar.FormatWeekRange(calendar.WeekDates(10, 2024, 5)))
	assert.Equal(t, "29 april – 3 maj", calendar.FormatWeekRange(calendar.WeekDates(18, 2024, 5)))
	assert.Equal(t, "30 december – 5 januari", calendar.FormatWeekRange(calendar.WeekDates(1, 2025, 7)))
	assert.Equal(t, "", calendar.FormatWeekRange(nil))
}

func TestPastFuturePredicates(t *testing.T) {
	now := time.Date(2024, time.March, 6, 15, 30, 0, 0, time.Local)
	current := calendar.WeekDates(10, 2024, 5)
	previous := calendar.WeekDates(9, 2024, 5)
	next := calendar.WeekDates(11, 2024, 5)

	assert.False(t, calendar.IsWeekInPast(current, now))
	assert.False(t, calendar.IsWeekInFuture(current, now))
	assert.True(t, calendar.IsWeekInPast(previous, now))
	assert.False(t, calendar.IsWeekInFuture(previous, now))
	assert.True(t, calendar.IsWeekInFuture(next, now))
	assert.False(t, calendar.IsWeekInPast(next, now))

	assert.True(t, calendar.IsToday(current[2], now))
	assert.False(t, calendar.IsToday(current[1], now))
}

func TestPastPredicate_WeekendHidden(t *testing.T) {
	// Saturday after a Mon..Fri range: the range is over.
	saturday := time.Date(2024, time.March, 9, 8, 0, 0, 0, time.Local)
	assert.True(t, calendar.IsWeekInPast(calendar.WeekDates(10, 2024, 5), saturday))
	assert.False(t, calendar.IsWeekInPast(calendar.WeekDates(10, 2024, 7), saturday))
}
