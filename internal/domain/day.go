package domain

import (
	"fmt"
	"strings"
	"time"
)

// Day is a weekday of the schedule grid, Monday first.
// The value doubles as the index into a week's date list.
type Day int

const (
	DayMonday Day = iota
	DayTuesday
	DayWednesday
	DayThursday
	DayFriday
	DaySaturday
	DaySunday
)

var dayNames = []string{"Måndag", "Tisdag", "Onsdag", "Torsdag", "Fredag", "Lördag", "Söndag"}

var dayNamesShort = []string{"Mån", "Tis", "Ons", "Tor", "Fre", "Lör", "Sön"}

var dayLookup = map[string]Day{
	"måndag": DayMonday, "mån": DayMonday, "monday": DayMonday, "mon": DayMonday, "mo": DayMonday,
	"tisdag": DayTuesday, "tis": DayTuesday, "tuesday": DayTuesday, "tue": DayTuesday, "tu": DayTuesday,
	"onsdag": DayWednesday, "ons": DayWednesday, "wednesday": DayWednesday, "wed": DayWednesday, "we": DayWednesday,
	"torsdag": DayThursday, "tor": DayThursday, "thursday": DayThursday, "thu": DayThursday, "th": DayThursday,
	"fredag": DayFriday, "fre": DayFriday, "friday": DayFriday, "fri": DayFriday, "fr": DayFriday,
	"lördag": DaySaturday, "lör": DaySaturday, "saturday": DaySaturday, "sat": DaySaturday, "sa": DaySaturday,
	"söndag": DaySunday, "sön": DaySunday, "sunday": DaySunday, "sun": DaySunday, "su": DaySunday,
}

// Weekdays are the days shown when weekends are hidden.
var Weekdays = []Day{DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday}

// AllDays is the full Monday..Sunday week.
var AllDays = []Day{DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday}

// Valid reports whether d is Monday..Sunday.
func (d Day) Valid() bool {
	return d >= DayMonday && d <= DaySunday
}

// Name returns the Swedish label for the day
func (d Day) Name() string {
	if !d.Valid() {
		return ""
	}
	return dayNames[d]
}

// ShortName returns the abbreviated Swedish label
func (d Day) ShortName() string {
	if !d.Valid() {
		return ""
	}
	return dayNamesShort[d]
}

func (d Day) String() string {
	return d.Name()
}

// Weekday converts to time.Weekday.
func (d Day) Weekday() time.Weekday {
	return time.Weekday((int(d) + 1) % 7)
}

// DayOf returns the schedule day of a date.
func DayOf(t time.Time) Day {
	return Day((int(t.Weekday()) + 6) % 7)
}

// ParseDay parses Swedish or English day names, full or abbreviated.
func ParseDay(s string) (Day, error) {
	if d, ok := dayLookup[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown day: %q", s)
}

// MarshalText encodes the day as its Swedish label.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day: %d", int(d))
	}
	return []byte(d.Name()), nil
}

// UnmarshalText accepts any label ParseDay understands.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
