package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/domain"
)

// Position is a vertical placement in caller-chosen units.
type Position struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Interval is a half-open [Start, End) range of "HH:MM" strings.
type Interval struct {
	Start string
	End   string
}

// IntervalOf returns the time range of an activity.
func IntervalOf(a *domain.Activity) Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// TimeSlots returns hourly labels "HH:00" from startHour to endHour inclusive.
func TimeSlots(startHour, endHour int) []string {
	var slots []string
	for h := startHour; h <= endHour; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots
}

// CalculatePosition maps a wall-clock range to an offset from baseHour and an
// extent, hourHeight units per hour.
func CalculatePosition(start, end string, hourHeight float64, baseHour int) (Position, error) {
	sh, sm, err := domain.ParseClock(start)
	if err != nil {
		return Position{}, err
	}
	eh, em, err := domain.ParseClock(end)
	if err != nil {
		return Position{}, err
	}

	top := float64((sh-baseHour)*60+sm) / 60 * hourHeight
	height := float64((eh-sh)*60+(em-sm)) / 60 * hourHeight
	return Position{Top: top, Height: height}, nil
}

// Overlaps reports whether two half-open intervals intersect.
// Touching intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return !(a.End <= b.Start || b.End <= a.Start)
}

// ActivitiesOverlap reports whether the time ranges of two activities intersect.
func ActivitiesOverlap(a, b *domain.Activity) bool {
	return Overlaps(IntervalOf(a), IntervalOf(b))
}

// PackOverlapGroups assigns activities to columns. Activities are stably
// sorted by start time, then each joins the first group none of whose
// members it overlaps, or opens a new group. The result is first-fit, not
// a minimum colouring, and identical input always yields identical groups.
func PackOverlapGroups(activities []domain.Activity) [][]domain.Activity {
	sorted := make([]domain.Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	var groups [][]domain.Activity
	for _, a := range sorted {
		placed := false
		for gi := range groups {
			if fitsGroup(groups[gi], &a) {
				groups[gi] = append(groups[gi], a)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []domain.Activity{a})
		}
	}
	return groups
}

func fitsGroup(group []domain.Activity, a *domain.Activity) bool {
	for i := range group {
		if ActivitiesOverlap(&group[i], a) {
			return false
		}
	}
	return true
}

// FindConflicts returns every (candidate, existing) pair on the same day of
// the same week with different ids, overlapping times and a shared participant.
// Existing activities with a candidate's id are skipped, so an edit never
// collides with its own pre-edit version.
func FindConflicts(candidates, existing []domain.Activity) []domain.Conflict {
	var conflicts []domain.Conflict
	for ci := range candidates {
		c := &candidates[ci]
		for ei := range existing {
			e := &existing[ei]
			if e.ID == c.ID {
				continue
			}
			if c.SameSlot(e) && ActivitiesOverlap(c, e) && c.SharesParticipant(e) {
				conflicts = append(conflicts, domain.Conflict{Candidate: *c, Existing: *e})
			}
		}
	}
	return conflicts
}

// ConflictsExist is the pre-commit guard.
func ConflictsExist(candidates, existing []domain.Activity) bool {
	return len(FindConflicts(candidates, existing)) > 0
}

// ExcludeIDs returns activities whose id is not in ids.
func ExcludeIDs(activities []domain.Activity, ids ...string) []domain.Activity {
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	out := make([]domain.Activity, 0, len(activities))
	for _, a := range activities {
		if !skip[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

// FilterWeek returns activities of the ISO week, in input order.
func FilterWeek(activities []domain.Activity, week, year int) []domain.Activity {
	var out []domain.Activity
	for _, a := range activities {
		if a.InWeek(week, year) {
			out = append(out, a)
		}
	}
	return out
}

// FilterDay returns activities of one day of the ISO week sorted by start time.
func FilterDay(activities []domain.Activity, day domain.Day, week, year int) []domain.Activity {
	var out []domain.Activity
	for _, a := range activities {
		if a.Day == day && a.InWeek(week, year) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// NewActivityID returns a random UUID.
func NewActivityID() string {
	return uuid.NewString()
}

// ActivityDate returns local midnight of the calendar date the activity falls on.
func ActivityDate(a *domain.Activity) time.Time {
	return calendar.WeekMonday(a.Week, a.Year).AddDate(0, 0, int(a.Day))
}
