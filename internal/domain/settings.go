package domain

import "fmt"

// Settings control what the week grid renders. They are never enforced
// against activity times; out-of-range activities are clipped by renderers.
type Settings struct {
	ShowWeekends bool `json:"showWeekends"`
	DayStart     int  `json:"dayStart"`
	DayEnd       int  `json:"dayEnd"`
}

// DefaultSettings returns Mon..Fri, 07:00-18:00.
func DefaultSettings() Settings {
	return Settings{ShowWeekends: false, DayStart: 7, DayEnd: 18}
}

// Validate checks the hour range.
func (s *Settings) Validate() error {
	if s.DayStart < 0 || s.DayStart > 23 {
		return invalid("dayStart", fmt.Sprintf("hour %d out of range 0..23", s.DayStart))
	}
	if s.DayEnd < 0 || s.DayEnd > 23 {
		return invalid("dayEnd", fmt.Sprintf("hour %d out of range 0..23", s.DayEnd))
	}
	if s.DayEnd <= s.DayStart {
		return invalid("dayEnd", "day end must be after day start")
	}
	return nil
}

// Days returns the displayed days.
func (s *Settings) Days() []Day {
	if s.ShowWeekends {
		return AllDays
	}
	return Weekdays
}
