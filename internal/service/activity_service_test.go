package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/service"
)

func existing(id string, day domain.Day, start, end string, participants ...string) domain.Activity {
	return domain.Activity{
		ID: id, Name: id, Icon: domain.DefaultIcon, Day: day, Week: 10, Year: 2024,
		Participants: participants, StartTime: start, EndTime: end,
	}
}

func form(start, end string, participants []string, days ...domain.Day) *domain.ActivityForm {
	return &domain.ActivityForm{
		Name: "Dans", Icon: "💃", Days: days, Participants: participants,
		StartTime: start, EndTime: end,
	}
}

func newActivityService(store *memStore) *service.ActivityService {
	svc := service.NewActivityService(store, time.Local)
	svc.SetIDFunc(counterIDs())
	return svc
}

func TestCreate_ConflictGuard(t *testing.T) {
	store := newMemStore(existing("A", domain.DayMonday, "09:00", "10:00", "rut"))
	svc := newActivityService(store)

	_, err := svc.Create(form("09:30", "10:30", []string{"rut"}, domain.DayMonday), 10, 2024)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	all, _ := store.ListActivities()
	assert.Len(t, all, 1)

	created, err := svc.Create(form("09:30", "10:30", []string{"pim"}, domain.DayMonday), 10, 2024)
	require.NoError(t, err)
	require.Len(t, created, 1)
	all, _ = store.ListActivities()
	assert.Len(t, all, 2)
}

func TestCreate_ValidationBeforeGuard(t *testing.T) {
	svc := newActivityService(newMemStore())

	_, err := svc.Create(form("10:00", "09:00", []string{"rut"}, domain.DayMonday), 10, 2024)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Create(form("09:00", "10:00", nil, domain.DayMonday), 10, 2024)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Create(form("09:00", "10:00", []string{"rut"}), 10, 2024)
	assert.True(t, domain.IsValidation(err))
}

func TestCreate_RejectsWeekMissingFromYear(t *testing.T) {
	store := newMemStore()
	svc := newActivityService(store)

	_, err := svc.Create(form("09:00", "10:00", []string{"rut"}, domain.DayMonday), 1, 2024)
	require.NoError(t, err)

	// 2023 has 52 weeks; week 53 would be Monday 2024-01-01 under another label.
	_, err = svc.Create(form("09:30", "10:30", []string{"rut"}, domain.DayMonday), 53, 2023)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Create(form("09:30", "10:30", []string{"pim"}, domain.DayMonday), 10, 0)
	assert.True(t, domain.IsValidation(err))

	_, err = svc.PasteWeek(1, 2024, 53, 2023)
	assert.True(t, domain.IsValidation(err))

	all, _ := store.ListActivities()
	assert.Len(t, all, 1)
}

func TestCreate_RecurringIsAllOrNothing(t *testing.T) {
	// Blocks week 12 only.
	blocker := existing("B", domain.DayWednesday, "17:30", "18:30", "siv")
	blocker.Week = 12
	store := newMemStore(blocker)
	svc := newActivityService(store)

	f := form("17:00", "18:00", []string{"siv", "rut"}, domain.DayWednesday)
	f.Recurring = true
	f.RecurringEnd = calendar.WeekMonday(13, 2024)

	_, err := svc.Create(f, 10, 2024)
	require.Error(t, err)
	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Conflicts, 1)
	assert.Equal(t, "B", ce.Conflicts[0].Existing.ID)

	all, _ := store.ListActivities()
	assert.Len(t, all, 1)
}

func TestCreate_StoreFailureLeavesNothing(t *testing.T) {
	store := newMemStore()
	store.failSave = true
	svc := newActivityService(store)

	f := form("17:00", "18:00", []string{"rut"}, domain.DayMonday)
	_, err := svc.Create(f, 10, 2024)
	require.ErrorIs(t, err, errStoreDown)
	assert.False(t, domain.IsConflict(err))

	all, _ := store.ListActivities()
	assert.Empty(t, all)
}

func TestUpdate_SelfExclusionAndSeries(t *testing.T) {
	store := newMemStore()
	svc := newActivityService(store)

	f := form("17:00", "18:00", []string{"rut"}, domain.DayMonday)
	f.Recurring = true
	f.RecurringEnd = calendar.WeekMonday(12, 2024)
	series, err := svc.Create(f, 10, 2024)
	require.NoError(t, err)
	require.Len(t, series, 3)

	edit := form("17:30", "19:00", []string{"rut"}, domain.DayMonday)
	updated, err := svc.Update(series[1].ID, edit)
	require.NoError(t, err)
	assert.Equal(t, series[1].ID, updated.ID)
	assert.Equal(t, series[1].SeriesID, updated.SeriesID)
	assert.Equal(t, 11, updated.Week)
	assert.Equal(t, "17:30", updated.StartTime)
}

func TestUpdate_Errors(t *testing.T) {
	store := newMemStore(
		existing("A", domain.DayMonday, "09:00", "10:00", "rut"),
		existing("B", domain.DayMonday, "11:00", "12:00", "rut"),
	)
	svc := newActivityService(store)

	_, err := svc.Update("missing", form("09:00", "10:00", []string{"rut"}, domain.DayMonday))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Update("A", form("09:00", "10:00", []string{"rut"}, domain.DayMonday, domain.DayTuesday))
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Update("A", form("10:30", "11:30", []string{"rut"}, domain.DayMonday))
	assert.True(t, domain.IsConflict(err))
	a, _ := store.GetActivity("A")
	assert.Equal(t, "09:00", a.StartTime)
}

func TestDelete(t *testing.T) {
	a := existing("A", domain.DayMonday, "09:00", "10:00", "rut")
	b := existing("B", domain.DayTuesday, "09:00", "10:00", "rut")
	b.SeriesID = "s"
	c := existing("C", domain.DayWednesday, "09:00", "10:00", "rut")
	c.SeriesID = "s"
	store := newMemStore(a, b, c)
	svc := newActivityService(store)

	var changes []service.Change
	unsubscribe := svc.Subscribe(func(ch service.Change) { changes = append(changes, ch) })

	require.NoError(t, svc.Delete("A"))
	assert.ErrorIs(t, svc.Delete("A"), domain.ErrNotFound)

	n, err := svc.DeleteSeries("s")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = svc.DeleteSeries("s")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.Len(t, changes, 2)
	assert.Equal(t, []string{"A"}, changes[0].DeletedIDs)
	assert.ElementsMatch(t, []string{"B", "C"}, changes[1].DeletedIDs)

	unsubscribe()
	_, err = svc.Create(form("09:00", "10:00", []string{"rut"}, domain.DayMonday), 10, 2024)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestPasteWeek(t *testing.T) {
	a := existing("A", domain.DayMonday, "09:00", "10:00", "rut")
	b := existing("B", domain.DayFriday, "15:00", "16:00", "pim")
	store := newMemStore(a, b)
	svc := newActivityService(store)

	pasted, err := svc.PasteWeek(10, 2024, 1, 2025)
	require.NoError(t, err)
	require.Len(t, pasted, 2)
	for _, p := range pasted {
		assert.Equal(t, 1, p.Week)
		assert.Equal(t, 2025, p.Year)
	}

	// Pasting again collides with the first paste.
	_, err = svc.PasteWeek(10, 2024, 1, 2025)
	assert.True(t, domain.IsConflict(err))
	week, _ := svc.ListWeek(1, 2025)
	assert.Len(t, week, 2)

	empty, err := svc.PasteWeek(30, 2024, 31, 2024)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestImport(t *testing.T) {
	store := newMemStore(existing("A", domain.DayMonday, "09:00", "10:00", "rut"))
	svc := newActivityService(store)

	res, err := svc.Import(strings.NewReader(`[
		{"name":"Fotboll","date":"2024-03-05","participants":["pim"],"startTime":"16:00","endTime":"17:00"},
		{"name":"Utan deltagare","date":"2024-03-05","participants":[]}
	]`))
	require.NoError(t, err)
	assert.Len(t, res.Activities, 1)
	assert.Len(t, res.Skipped, 1)
	all, _ := store.ListActivities()
	assert.Len(t, all, 2)

	_, err = svc.Import(strings.NewReader(`{"not":"a list"}`))
	assert.True(t, domain.IsMalformedImport(err))

	// The second record collides with the first: nothing is added.
	_, err = svc.Import(strings.NewReader(`[
		{"name":"X","date":"2024-03-06","participants":["siv"],"startTime":"10:00","endTime":"11:00"},
		{"name":"Y","date":"2024-03-06","participants":["siv"],"startTime":"10:30","endTime":"11:30"}
	]`))
	assert.True(t, domain.IsConflict(err))
	all, _ = store.ListActivities()
	assert.Len(t, all, 2)
}

func TestImport_ReimportOfExportIsUpsert(t *testing.T) {
	a := existing("A", domain.DayMonday, "09:00", "10:00", "rut")
	store := newMemStore(a)
	svc := newActivityService(store)

	_, err := svc.Import(strings.NewReader(`[{"id":"A","name":"A","day":"Måndag","week":10,"year":2024,"participants":["rut"],"startTime":"09:00","endTime":"10:30"}]`))
	require.NoError(t, err)
	got, _ := store.GetActivity("A")
	assert.Equal(t, "10:30", got.EndTime)
}
