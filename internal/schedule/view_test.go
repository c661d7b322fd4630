package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/schedule"
)

func viewOpts() schedule.ViewOptions {
	return schedule.ViewOptions{
		Settings:   domain.DefaultSettings(),
		Members:    domain.DefaultFamily(),
		HourHeight: 60,
		Now:        time.Date(2024, time.March, 6, 12, 0, 0, 0, time.Local),
	}
}

func TestBuildWeekView(t *testing.T) {
	a1 := act("a1", "09:00", "10:00", "rut")
	a2 := act("a2", "09:30", "10:30", "pim")
	a3 := act("a3", "11:00", "12:00", "siv")
	wed := act("wed", "07:00", "08:00", "pappa")
	wed.Day = domain.DayWednesday
	sat := act("sat", "10:00", "11:00", "rut")
	sat.Day = domain.DaySaturday
	otherWeek := act("other", "09:00", "10:00", "rut")
	otherWeek.Week = 11

	view, err := schedule.BuildWeekView([]domain.Activity{a3, a2, a1, wed, sat, otherWeek}, 10, 2024, viewOpts())
	require.NoError(t, err)

	assert.Equal(t, "4-8 mars", view.Label)
	assert.True(t, view.IsCurrent)
	assert.False(t, view.InPast)
	assert.False(t, view.InFuture)
	assert.Equal(t, schedule.WeekRef{Week: 9, Year: 2024}, view.Prev)
	assert.Equal(t, schedule.WeekRef{Week: 11, Year: 2024}, view.Next)
	assert.Len(t, view.TimeSlots, 12)

	// Weekends hidden: Saturday activity is not rendered.
	require.Len(t, view.Days, 5)

	monday := view.Days[0]
	assert.Equal(t, 2, monday.Columns)
	require.Len(t, monday.Blocks, 3)
	byID := map[string]schedule.Block{}
	for _, b := range monday.Blocks {
		byID[b.Activity.ID] = b
	}
	assert.Equal(t, 0, byID["a1"].Column)
	assert.Equal(t, 0, byID["a3"].Column)
	assert.Equal(t, 1, byID["a2"].Column)
	assert.InDelta(t, 50.0, byID["a2"].Width, 1e-9)
	assert.InDelta(t, 50.0, byID["a2"].Left, 1e-9)
	assert.InDelta(t, 0.0, byID["a1"].Left, 1e-9)
	assert.InDelta(t, 120.0, byID["a1"].Top, 1e-9)
	assert.InDelta(t, 60.0, byID["a1"].Height, 1e-9)
	assert.Equal(t, []string{"#FF6B6B"}, byID["a1"].Colors)

	wednesday := view.Days[2]
	assert.True(t, wednesday.IsToday)
	assert.Equal(t, 1, wednesday.Columns)
	require.Len(t, wednesday.Blocks, 1)
	assert.InDelta(t, 100.0, wednesday.Blocks[0].Width, 1e-9)
	assert.InDelta(t, 0.0, wednesday.Blocks[0].Left, 1e-9)

	assert.Empty(t, view.Days[1].Blocks)
	assert.Equal(t, 0, view.Days[1].Columns)
}

func TestBuildWeekView_Weekends(t *testing.T) {
	sat := act("sat", "10:00", "11:00", "rut")
	sat.Day = domain.DaySaturday
	opts := viewOpts()
	opts.Settings.ShowWeekends = true

	view, err := schedule.BuildWeekView([]domain.Activity{sat}, 10, 2024, opts)
	require.NoError(t, err)
	require.Len(t, view.Days, 7)
	require.Len(t, view.Days[5].Blocks, 1)
	assert.Equal(t, calendar.Date(2024, time.March, 9), view.Days[5].Date)
}

func TestBuildWeekView_YearBoundaryNavigation(t *testing.T) {
	view, err := schedule.BuildWeekView(nil, 1, 2025, viewOpts())
	require.NoError(t, err)
	assert.Equal(t, schedule.WeekRef{Week: 52, Year: 2024}, view.Prev)
	assert.Equal(t, schedule.WeekRef{Week: 2, Year: 2025}, view.Next)
	assert.True(t, view.InFuture)
	assert.False(t, view.IsCurrent)
}

func TestBuildLayerView(t *testing.T) {
	shared := act("shared", "09:00", "10:00", "rut", "pim")
	solo := act("solo", "11:00", "12:00", "pim")

	lanes, err := schedule.BuildLayerView([]domain.Activity{shared, solo}, 10, 2024, viewOpts())
	require.NoError(t, err)
	require.Len(t, lanes, 5)

	rut := lanes[0]
	assert.Equal(t, "rut", rut.Member.ID)
	require.Len(t, rut.Days[0].Blocks, 1)
	assert.Equal(t, "shared", rut.Days[0].Blocks[0].Activity.ID)

	pim := lanes[1]
	require.Len(t, pim.Days[0].Blocks, 2)
	for _, b := range pim.Days[0].Blocks {
		assert.InDelta(t, 100.0, b.Width, 1e-9)
	}
	assert.Equal(t, []string{"#FF6B6B", "#4E9FFF"}, pim.Days[0].Blocks[0].Colors)

	assert.Empty(t, lanes[2].Days[0].Blocks)
}
