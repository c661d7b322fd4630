package schedule

import (
	"fmt"
	"time"

	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/teambition/rrule-go"
)

// IDFunc generates activity and series ids.
type IDFunc func() string

// WeeklyCursors returns start and every date 7 days apart up to and
// including until. Both are treated as calendar dates.
func WeeklyCursors(start, until time.Time) ([]time.Time, error) {
	start = calendar.Midnight(start)
	until = time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, start.Location())
	if until.Before(start) {
		return nil, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: start,
		Until:   until,
	})
	if err != nil {
		return nil, fmt.Errorf("build weekly rule: %w", err)
	}
	return r.All(), nil
}

// Expand builds the candidate activities of a create request viewed at
// (week, year): one per selected day, and when the form is recurring, one
// per selected day of every week from that week's Monday through the
// inclusive end date. Occurrences of a recurring request share a fresh
// series id; week and year of each occurrence come from its own Monday.
func Expand(form *domain.ActivityForm, week, year int, newID IDFunc) ([]domain.Activity, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateWeek(week, year); err != nil {
		return nil, err
	}
	if newID == nil {
		newID = NewActivityID
	}

	if !form.Recurring {
		out := make([]domain.Activity, 0, len(form.Days))
		for _, day := range form.Days {
			a := form.Build(day, week, year)
			a.ID = newID()
			out = append(out, a)
		}
		return out, nil
	}

	monday := calendar.WeekMonday(week, year)
	cursors, err := WeeklyCursors(monday, form.RecurringEnd)
	if err != nil {
		return nil, err
	}
	if len(cursors) == 0 {
		return nil, &domain.ValidationError{
			Field:   "recurringEndDate",
			Message: "end date is before the first week",
		}
	}

	seriesID := newID()
	out := make([]domain.Activity, 0, len(cursors)*len(form.Days))
	for _, cursor := range cursors {
		y, w := calendar.ISOWeek(cursor)
		for _, day := range form.Days {
			a := form.Build(day, w, y)
			a.ID = newID()
			a.SeriesID = seriesID
			out = append(out, a)
		}
	}
	return out, nil
}

// CopyWeek returns copies of every activity in the source week moved to the
// target week, with fresh ids. Series membership is not carried over.
func CopyWeek(activities []domain.Activity, fromWeek, fromYear, toWeek, toYear int, newID IDFunc) []domain.Activity {
	if newID == nil {
		newID = NewActivityID
	}
	var out []domain.Activity
	for _, a := range FilterWeek(activities, fromWeek, fromYear) {
		c := a
		c.ID = newID()
		c.SeriesID = ""
		c.Week = toWeek
		c.Year = toYear
		c.Participants = append([]string(nil), a.Participants...)
		out = append(out, c)
	}
	return out
}
