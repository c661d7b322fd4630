package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/familyschedule/internal/calendar"
)

// DefaultIcon is used when an activity has no icon.
const DefaultIcon = "🎯"

// Default times of a blank activity form.
const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "10:00"
)

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Activity is one scheduled occurrence on a (day, ISO week, ISO year).
type Activity struct {
	ID           string   `json:"id"`
	SeriesID     string   `json:"seriesId,omitempty"` // shared by occurrences of one recurring request
	Name         string   `json:"name"`
	Icon         string   `json:"icon"`
	Day          Day      `json:"day"`
	Week         int      `json:"week"`
	Year         int      `json:"year"` // ISO week-numbering year
	Participants []string `json:"participants"`
	StartTime    string   `json:"startTime"` // "HH:MM"
	EndTime      string   `json:"endTime"`   // "HH:MM"
	Location     string   `json:"location,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Color        string   `json:"color,omitempty"` // empty = derive from participants
}

// TimeRange returns formatted time range
func (a *Activity) TimeRange() string {
	return a.StartTime + "-" + a.EndTime
}

// SameSlot reports whether both activities are on the same day of the same week.
func (a *Activity) SameSlot(b *Activity) bool {
	return a.Day == b.Day && a.Week == b.Week && a.Year == b.Year
}

// InWeek reports whether the activity belongs to the ISO week.
func (a *Activity) InWeek(week, year int) bool {
	return a.Week == week && a.Year == year
}

// HasParticipant reports whether member takes part.
func (a *Activity) HasParticipant(memberID string) bool {
	for _, p := range a.Participants {
		if p == memberID {
			return true
		}
	}
	return false
}

// SharesParticipant reports whether at least one member is in both activities.
func (a *Activity) SharesParticipant(b *Activity) bool {
	for _, p := range a.Participants {
		if b.HasParticipant(p) {
			return true
		}
	}
	return false
}

// IsRecurring reports whether the activity belongs to a series.
func (a *Activity) IsRecurring() bool {
	return a.SeriesID != ""
}

// Validate checks the fields a stored activity must have.
func (a *Activity) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return invalid("id", "id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return invalid("name", "name is required")
	}
	if !a.Day.Valid() {
		return invalid("day", "day is required")
	}
	if err := ValidateWeek(a.Week, a.Year); err != nil {
		return err
	}
	if len(a.Participants) == 0 {
		return invalid("participants", "at least one participant is required")
	}
	return ValidateTimes(a.StartTime, a.EndTime)
}

// ValidateWeek checks that the week exists in the ISO year. Week 53 of a
// 52-week year would alias week 1 of the next year.
func ValidateWeek(week, year int) error {
	if !calendar.ValidWeek(week, year) {
		return invalid("week", fmt.Sprintf("week %d does not exist in %d", week, year))
	}
	return nil
}

// ValidateTimes checks "HH:MM" formatting and that end is after start.
func ValidateTimes(start, end string) error {
	if !clockRe.MatchString(start) {
		return invalid("startTime", fmt.Sprintf("invalid time %q (HH:MM)", start))
	}
	if !clockRe.MatchString(end) {
		return invalid("endTime", fmt.Sprintf("invalid time %q (HH:MM)", end))
	}
	// Fixed width, so string order is time order.
	if end <= start {
		return invalid("endTime", "end time must be after start time")
	}
	return nil
}

// ParseClock splits "HH:MM" into hours and minutes.
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if hour, err = strconv.Atoi(h); err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	if minute, err = strconv.Atoi(m); err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	return hour, minute, nil
}

// ActivityForm is the input of a create or edit request.
type ActivityForm struct {
	Name         string    `json:"name"`
	Icon         string    `json:"icon"`
	Days         []Day     `json:"days"`
	Participants []string  `json:"participants"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	Location     string    `json:"location,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Color        string    `json:"color,omitempty"`
	Recurring    bool      `json:"recurring,omitempty"`
	RecurringEnd time.Time `json:"-"` // inclusive end date, used when Recurring
}

// Validate rejects incomplete forms before any activity is built.
func (f *ActivityForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return invalid("name", "name is required")
	}
	if len(f.Days) == 0 {
		return invalid("days", "select at least one day")
	}
	for _, d := range f.Days {
		if !d.Valid() {
			return invalid("days", fmt.Sprintf("invalid day %d", int(d)))
		}
	}
	if len(f.Participants) == 0 {
		return invalid("participants", "select at least one participant")
	}
	if f.Recurring && f.RecurringEnd.IsZero() {
		return invalid("recurringEndDate", "recurring activities need an end date")
	}
	return ValidateTimes(f.StartTime, f.EndTime)
}

// Build returns an activity for one day of one week with the form's fields.
// ID and SeriesID are left to the caller.
func (f *ActivityForm) Build(day Day, week, year int) Activity {
	icon := f.Icon
	if icon == "" {
		icon = DefaultIcon
	}
	return Activity{
		Name:         strings.TrimSpace(f.Name),
		Icon:         icon,
		Day:          day,
		Week:         week,
		Year:         year,
		Participants: append([]string(nil), f.Participants...),
		StartTime:    f.StartTime,
		EndTime:      f.EndTime,
		Location:     f.Location,
		Notes:        f.Notes,
		Color:        f.Color,
	}
}
