package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tazhate/familyschedule/internal/clients/caldav"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/schedule"
	"github.com/tazhate/familyschedule/internal/storage"
)

var errStoreDown = errors.New("store down")

type memStore struct {
	mu         sync.Mutex
	activities map[string]domain.Activity
	members    []domain.FamilyMember
	settings   *domain.Settings
	synced     map[string]storage.SyncedObject
	failSave   bool
}

func newMemStore(activities ...domain.Activity) *memStore {
	s := &memStore{activities: map[string]domain.Activity{}, synced: map[string]storage.SyncedObject{}}
	for _, a := range activities {
		s.activities[a.ID] = a
	}
	return s
}

func (s *memStore) ListActivities() ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetActivity(id string) (*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *memStore) SaveActivities(activities []domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errStoreDown
	}
	for _, a := range activities {
		s.activities[a.ID] = a
	}
	return nil
}

func (s *memStore) DeleteActivity(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.activities[id]
	delete(s.activities, id)
	return ok, nil
}

func (s *memStore) DeleteSeries(seriesID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, a := range s.activities {
		if a.SeriesID == seriesID {
			delete(s.activities, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListMembers() ([]domain.FamilyMember, error) {
	return s.members, nil
}

func (s *memStore) ReplaceMembers(members []domain.FamilyMember) error {
	s.members = members
	return nil
}

func (s *memStore) GetSettings() (*domain.Settings, error) {
	return s.settings, nil
}

func (s *memStore) SaveSettings(st domain.Settings) error {
	s.settings = &st
	return nil
}

func (s *memStore) ListSyncedObjects() ([]storage.SyncedObject, error) {
	var out []storage.SyncedObject
	for _, o := range s.synced {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityID < out[j].ActivityID })
	return out, nil
}

func (s *memStore) SaveSyncedObject(o storage.SyncedObject) error {
	s.synced[o.ActivityID] = o
	return nil
}

func (s *memStore) DeleteSyncedObject(activityID string) error {
	delete(s.synced, activityID)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func counterIDs() schedule.IDFunc {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type fakeCalDAV struct {
	put     map[string]*ical.Calendar
	deleted []string
	failUID string
}

func (f *fakeCalDAV) IsConfigured() bool { return true }

func (f *fakeCalDAV) PutCalendar(_ context.Context, uid string, cal *ical.Calendar) (caldav.Object, error) {
	if uid == f.failUID {
		return caldav.Object{}, errors.New("503 Service Unavailable")
	}
	f.put[uid] = cal
	return caldav.Object{Path: "/cal/" + uid + ".ics", ETag: "e-" + uid}, nil
}

func (f *fakeCalDAV) Delete(_ context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}
