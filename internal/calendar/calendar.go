package calendar

import (
	"fmt"
	"math"
	"time"
)

// Swedish month names used in week range labels
var monthNames = []string{
	"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december",
}

// Clock abstracts time.Now() so "today" can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the local wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Date returns local midnight of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// Midnight truncates t to midnight of its calendar day in its own location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// thursdayOf shifts the calendar day of t to the Thursday of its ISO week, in UTC.
// Only Y/M/D of t matter, so DST transitions never move the result.
func thursdayOf(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return d.AddDate(0, 0, 4-weekday)
}

// WeekNumber returns the ISO-8601 week number (1..53) of the date.
func WeekNumber(t time.Time) int {
	thursday := thursdayOf(t)
	yearStart := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := thursday.Sub(yearStart).Hours() / 24
	return int(math.Ceil((days + 1) / 7))
}

// ISOWeek returns the ISO week-numbering year and week of the date.
// The year is the year of the week's Thursday and may differ from t.Year()
// around Dec 31 / Jan 1.
func ISOWeek(t time.Time) (year, week int) {
	return thursdayOf(t).Year(), WeekNumber(t)
}

// WeeksInYear returns 52 or 53.
func WeeksInYear(year int) int {
	week := WeekNumber(Date(year, time.December, 31))
	if week == 1 {
		return WeekNumber(Date(year, time.December, 24))
	}
	return week
}

// WeekMonday returns local midnight of the Monday of the given ISO week.
func WeekMonday(week, year int) time.Time {
	jan4 := Date(year, time.January, 4)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(week-1)*7)
}

// WeekDates returns count consecutive dates starting at the Monday of the
// ISO week: 5 yields Mon..Fri, 7 yields Mon..Sun.
func WeekDates(week, year, count int) []time.Time {
	monday := WeekMonday(week, year)
	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, monday.AddDate(0, 0, i))
	}
	return dates
}

// ShiftWeek moves delta weeks from (week, year). Both values are recomputed
// from the resulting Monday, so crossing a year boundary is handled.
func ShiftWeek(week, year, delta int) (int, int) {
	monday := WeekMonday(week, year).AddDate(0, 0, delta*7)
	y, w := ISOWeek(monday)
	return w, y
}

// Supported ISO years.
const (
	MinYear = 1
	MaxYear = 9999
)

// ValidWeek reports whether week exists in the ISO year.
func ValidWeek(week, year int) bool {
	if year < MinYear || year > MaxYear {
		return false
	}
	return week >= 1 && week <= WeeksInYear(year)
}

// FormatWeekRange returns a label like "4-8 mars" or "29 april – 3 maj".
func FormatWeekRange(dates []time.Time) string {
	if len(dates) == 0 {
		return ""
	}
	start := dates[0]
	end := dates[len(dates)-1]

	if start.Month() == end.Month() {
		return fmt.Sprintf("%d-%d %s", start.Day(), end.Day(), monthNames[start.Month()-1])
	}
	return fmt.Sprintf("%d %s – %d %s",
		start.Day(), monthNames[start.Month()-1],
		end.Day(), monthNames[end.Month()-1])
}

// IsToday reports whether t falls on the same calendar day as now.
func IsToday(t, now time.Time) bool {
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	return ty == ny && tm == nm && td == nd
}

// IsWeekInPast reports whether the last date of the range is before today.
func IsWeekInPast(dates []time.Time, now time.Time) bool {
	if len(dates) == 0 {
		return false
	}
	return dates[len(dates)-1].Before(Midnight(now))
}

// IsWeekInFuture reports whether the first date of the range is after today.
func IsWeekInFuture(dates []time.Time, now time.Time) bool {
	if len(dates) == 0 {
		return false
	}
	return dates[0].After(Midnight(now))
}
