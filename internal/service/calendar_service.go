package service

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tazhate/familyschedule/internal/calendar"
	"github.com/tazhate/familyschedule/internal/clients/caldav"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/ics"
	"github.com/tazhate/familyschedule/internal/logger"
	"github.com/tazhate/familyschedule/internal/storage"
)

// CalendarClient is the part of the CalDAV client the push uses.
type CalendarClient interface {
	IsConfigured() bool
	PutCalendar(ctx context.Context, uid string, cal *ical.Calendar) (caldav.Object, error)
	Delete(ctx context.Context, path string) error
}

// SyncStore remembers which objects were pushed.
type SyncStore interface {
	ListSyncedObjects() ([]storage.SyncedObject, error)
	SaveSyncedObject(o storage.SyncedObject) error
	DeleteSyncedObject(activityID string) error
}

// CalendarService mirrors activities into an external CalDAV calendar.
type CalendarService struct {
	activities *ActivityService
	store      SyncStore
	client     CalendarClient
	timezone   *time.Location
	clock      calendar.Clock
}

// NewCalendarService creates a new calendar service
func NewCalendarService(activities *ActivityService, store SyncStore, client CalendarClient, tz *time.Location, clock calendar.Clock) *CalendarService {
	if tz == nil {
		tz = time.UTC
	}
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &CalendarService{
		activities: activities,
		store:      store,
		client:     client,
		timezone:   tz,
		clock:      clock,
	}
}

// IsConfigured returns true if CalDAV client is configured
func (s *CalendarService) IsConfigured() bool {
	return s.client != nil && s.client.IsConfigured()
}

// SyncResult contains sync operation results
type SyncResult struct {
	Pushed  int      `json:"pushed"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}

// PushWeeks puts every activity of count weeks starting at the current week
// into the calendar, then removes objects of activities that no longer exist.
// Failures of single objects are collected in the result.
func (s *CalendarService) PushWeeks(ctx context.Context, count int) (*SyncResult, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("CalDAV not configured")
	}
	if count < 1 {
		count = 1
	}

	all, err := s.activities.List()
	if err != nil {
		return nil, err
	}
	synced, err := s.store.ListSyncedObjects()
	if err != nil {
		return nil, fmt.Errorf("list synced objects: %w", err)
	}

	now := s.clock.Now()
	year, week := calendar.ISOWeek(now)
	inRange := make(map[[2]int]bool, count)
	for i := 0; i < count; i++ {
		w, y := calendar.ShiftWeek(week, year, i)
		inRange[[2]int{w, y}] = true
	}

	result := &SyncResult{}
	exists := make(map[string]bool, len(all))
	for i := range all {
		a := &all[i]
		exists[a.ID] = true
		if !inRange[[2]int{a.Week, a.Year}] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.push(ctx, a, now); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", a.ID, err))
			continue
		}
		result.Pushed++
	}

	for _, o := range synced {
		if exists[o.ActivityID] {
			continue
		}
		if err := s.client.Delete(ctx, o.Path); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.ActivityID, err))
			continue
		}
		if err := s.store.DeleteSyncedObject(o.ActivityID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.ActivityID, err))
			continue
		}
		result.Deleted++
	}

	logger.Info("caldav push finished", "pushed", result.Pushed, "deleted", result.Deleted, "errors", len(result.Errors))
	return result, nil
}

func (s *CalendarService) push(ctx context.Context, a *domain.Activity, now time.Time) error {
	cal, err := ics.Calendar(a, s.timezone, now)
	if err != nil {
		return err
	}
	logger.Debug("caldav put", "id", a.ID, "ics", caldav.SerializeCalendar(cal))

	obj, err := s.client.PutCalendar(ctx, a.ID, cal)
	if err != nil {
		return err
	}
	return s.store.SaveSyncedObject(storage.SyncedObject{ActivityID: a.ID, Path: obj.Path, ETag: obj.ETag})
}
