package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/service"
	"github.com/tazhate/familyschedule/internal/storage"
)

func TestPushWeeks(t *testing.T) {
	thisWeek := existing("now", domain.DayWednesday, "17:00", "18:00", "rut")
	nextWeek := existing("next", domain.DayMonday, "08:00", "09:00", "pim")
	nextWeek.Week = 11
	farAway := existing("far", domain.DayMonday, "08:00", "09:00", "pim")
	farAway.Week = 20
	broken := existing("broken", domain.DayTuesday, "08:00", "09:00", "pim")

	store := newMemStore(thisWeek, nextWeek, farAway, broken)
	store.synced["gone"] = storage.SyncedObject{ActivityID: "gone", Path: "/cal/gone.ics"}
	store.synced["far"] = storage.SyncedObject{ActivityID: "far", Path: "/cal/far.ics"}

	client := &fakeCalDAV{put: map[string]*ical.Calendar{}, failUID: "broken"}
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)

	svc := service.NewCalendarService(newActivityService(store), store, client, stockholm, fixedClock{now: wednesday})
	require.True(t, svc.IsConfigured())

	res, err := svc.PushWeeks(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	assert.Equal(t, 1, res.Deleted)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "broken")

	assert.Contains(t, client.put, "now")
	assert.Contains(t, client.put, "next")
	assert.NotContains(t, client.put, "far")
	assert.Equal(t, []string{"/cal/gone.ics"}, client.deleted)

	assert.Equal(t, "e-now", store.synced["now"].ETag)
	assert.Contains(t, store.synced, "far")
	assert.NotContains(t, store.synced, "gone")

	start, err := client.put["now"].Events()[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 6, 16, 0, 0, 0, time.UTC), start.UTC())
}

func TestPushWeeks_NotConfigured(t *testing.T) {
	svc := service.NewCalendarService(newActivityService(newMemStore()), newMemStore(), nil, nil, nil)
	assert.False(t, svc.IsConfigured())
	_, err := svc.PushWeeks(context.Background(), 1)
	assert.Error(t, err)
}

func TestFamilyService(t *testing.T) {
	store := newMemStore()
	svc := service.NewFamilyService(store, nil)

	members, err := svc.Members()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultFamily(), members)

	st, err := svc.Settings()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), st)

	assert.True(t, domain.IsValidation(svc.SaveSettings(domain.Settings{DayStart: 18, DayEnd: 7})))
	require.NoError(t, svc.SaveSettings(domain.Settings{ShowWeekends: true, DayStart: 6, DayEnd: 22}))
	st, err = svc.Settings()
	require.NoError(t, err)
	assert.True(t, st.ShowWeekends)

	roster := []domain.FamilyMember{{ID: "ada", Name: "Ada", Color: "#112233", Icon: "👧"}}
	require.NoError(t, svc.SetMembers(roster))
	m, err := svc.Member("ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", m.Name)
	_, err = svc.Member("rut")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.True(t, domain.IsValidation(svc.SetMembers(nil)))
}
