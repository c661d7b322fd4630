package ics

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/schedule"
)

// ProductID identifies exports from this application.
const ProductID = "-//FamiljensSchema//SE"

const dateTimeLayout = "20060102T150405"

// Filename returns the download name of a week export.
func Filename(week, year int) string {
	return fmt.Sprintf("vecka-%d-%d.ics", week, year)
}

// FormatDateTime renders a calendar date and a "HH:MM" time as YYYYMMDDTHHMMSS.
func FormatDateTime(date time.Time, clock string) (string, error) {
	h, m, err := domain.ParseClock(clock)
	if err != nil {
		return "", err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, time.UTC).Format(dateTimeLayout), nil
}

// escapeText applies RFC 5545 TEXT escaping.
func escapeText(s string) string {
	p := ical.NewProp(ical.PropSummary)
	p.SetText(s)
	return p.Value
}

// EncodeWeek writes the activities of (week, year) as a VCALENDAR with one
// VEVENT per activity. Times are floating local wall-clock times, property
// order is fixed and lines end with CRLF.
func EncodeWeek(w io.Writer, activities []domain.Activity, week, year int, now time.Time) error {
	bw := bufio.NewWriter(w)
	line := func(s string) {
		bw.WriteString(s)
		bw.WriteString("\r\n")
	}

	stamp, _ := FormatDateTime(now, "00:00")

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:" + ProductID)

	for _, a := range schedule.FilterWeek(activities, week, year) {
		if !a.Day.Valid() {
			continue
		}
		date := schedule.ActivityDate(&a)
		start, err := FormatDateTime(date, a.StartTime)
		if err != nil {
			return fmt.Errorf("activity %s: %w", a.ID, err)
		}
		end, err := FormatDateTime(date, a.EndTime)
		if err != nil {
			return fmt.Errorf("activity %s: %w", a.ID, err)
		}

		line("BEGIN:VEVENT")
		line("UID:" + a.ID)
		line("DTSTAMP:" + stamp)
		line("DTSTART:" + start)
		line("DTEND:" + end)
		line("SUMMARY:" + escapeText(summary(&a)))
		if a.Location != "" {
			line("LOCATION:" + escapeText(a.Location))
		}
		if a.Notes != "" {
			line("DESCRIPTION:" + escapeText(a.Notes))
		}
		line("END:VEVENT")
	}

	line("END:VCALENDAR")
	return bw.Flush()
}

func summary(a *domain.Activity) string {
	return strings.TrimSpace(a.Icon + " " + a.Name)
}

// Event builds a go-ical event for an activity. Times are resolved in loc
// and stored as UTC, which CalDAV servers accept without a VTIMEZONE.
func Event(a *domain.Activity, loc *time.Location, now time.Time) (*ical.Event, error) {
	if loc == nil {
		loc = time.Local
	}
	date := schedule.ActivityDate(a)
	start, err := clockOn(date, a.StartTime, loc)
	if err != nil {
		return nil, err
	}
	end, err := clockOn(date, a.EndTime, loc)
	if err != nil {
		return nil, err
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, a.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	event.Props.SetText(ical.PropSummary, summary(a))
	if a.Location != "" {
		event.Props.SetText(ical.PropLocation, a.Location)
	}
	if a.Notes != "" {
		event.Props.SetText(ical.PropDescription, a.Notes)
	}
	if len(a.Participants) > 0 {
		event.Props.SetText(ical.PropCategories, strings.Join(a.Participants, ","))
	}
	return event, nil
}

// Calendar wraps a single activity event into a VCALENDAR object, the unit
// a CalDAV server stores.
func Calendar(a *domain.Activity, loc *time.Location, now time.Time) (*ical.Calendar, error) {
	event, err := Event(a, loc, now)
	if err != nil {
		return nil, err
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Children = append(cal.Children, event.Component)
	return cal, nil
}

func clockOn(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := domain.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, loc), nil
}
