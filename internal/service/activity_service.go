package service

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/importer"
	"github.com/tazhate/familyschedule/internal/logger"
	"github.com/tazhate/familyschedule/internal/schedule"
)

// ActivityStore persists activities. SaveActivities must be all-or-nothing.
type ActivityStore interface {
	ListActivities() ([]domain.Activity, error)
	GetActivity(id string) (*domain.Activity, error)
	SaveActivities(activities []domain.Activity) error
	DeleteActivity(id string) (bool, error)
	DeleteSeries(seriesID string) (int, error)
}

// ChangeKind names what a committed write did.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
	ChangePasted   ChangeKind = "pasted"
	ChangeImported ChangeKind = "imported"
)

// Change is delivered to subscribers after a successful commit.
type Change struct {
	Kind       ChangeKind
	Activities []domain.Activity // written activities
	DeletedIDs []string
}

// Listener receives committed changes.
type Listener func(Change)

// ActivityService applies writes through the conflict guard: build the
// candidates, validate them, reject the whole batch on any conflict, else
// commit the batch in one store call.
type ActivityService struct {
	mu    sync.Mutex
	store ActivityStore
	newID schedule.IDFunc
	loc   *time.Location

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

func NewActivityService(store ActivityStore, loc *time.Location) *ActivityService {
	if loc == nil {
		loc = time.Local
	}
	return &ActivityService{
		store:     store,
		newID:     schedule.NewActivityID,
		loc:       loc,
		listeners: make(map[int]Listener),
	}
}

// SetIDFunc replaces the id generator.
func (s *ActivityService) SetIDFunc(f schedule.IDFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newID = f
}

// Subscribe registers a listener and returns a function that removes it.
func (s *ActivityService) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *ActivityService) notify(c Change) {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(c)
	}
}

// List returns every activity.
func (s *ActivityService) List() ([]domain.Activity, error) {
	activities, err := s.store.ListActivities()
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// ListWeek returns the activities of one ISO week.
func (s *ActivityService) ListWeek(week, year int) ([]domain.Activity, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	return schedule.FilterWeek(all, week, year), nil
}

// Get returns domain.ErrNotFound for unknown ids.
func (s *ActivityService) Get(id string) (*domain.Activity, error) {
	a, err := s.store.GetActivity(id)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("activity %s: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

// Create expands the form viewed at (week, year) and commits every
// occurrence, or none.
func (s *ActivityService) Create(form *domain.ActivityForm, week, year int) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates, err := schedule.Expand(form, week, year, s.newID)
	if err != nil {
		return nil, err
	}
	if err := s.commit(candidates); err != nil {
		return nil, err
	}

	logger.Info("activities created", "name", form.Name, "count", len(candidates), "week", week, "year", year)
	s.notify(Change{Kind: ChangeCreated, Activities: candidates})
	return candidates, nil
}

// Update replaces one activity with the form's fields. The id, series and
// week are kept; the form must select exactly one day.
func (s *ActivityService) Update(id string, form *domain.ActivityForm) (*domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if len(form.Days) != 1 {
		return nil, &domain.ValidationError{Field: "days", Message: "an edit applies to exactly one day"}
	}
	edit := *form
	edit.Recurring = false
	if err := edit.Validate(); err != nil {
		return nil, err
	}

	updated := edit.Build(edit.Days[0], current.Week, current.Year)
	updated.ID = current.ID
	updated.SeriesID = current.SeriesID
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := s.commit([]domain.Activity{updated}); err != nil {
		return nil, err
	}

	logger.Info("activity updated", "id", id)
	s.notify(Change{Kind: ChangeUpdated, Activities: []domain.Activity{updated}})
	return &updated, nil
}

// Delete removes one activity.
func (s *ActivityService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.store.DeleteActivity(id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if !ok {
		return fmt.Errorf("activity %s: %w", id, domain.ErrNotFound)
	}

	logger.Info("activity deleted", "id", id)
	s.notify(Change{Kind: ChangeDeleted, DeletedIDs: []string{id}})
	return nil
}

// DeleteSeries removes every occurrence sharing seriesID.
func (s *ActivityService) DeleteSeries(seriesID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seriesID == "" {
		return 0, &domain.ValidationError{Field: "seriesId", Message: "series id is required"}
	}
	all, err := s.store.ListActivities()
	if err != nil {
		return 0, fmt.Errorf("list activities: %w", err)
	}
	var ids []string
	for _, a := range all {
		if a.SeriesID == seriesID {
			ids = append(ids, a.ID)
		}
	}

	n, err := s.store.DeleteSeries(seriesID)
	if err != nil {
		return 0, fmt.Errorf("delete series: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("series %s: %w", seriesID, domain.ErrNotFound)
	}

	logger.Info("series deleted", "series", seriesID, "count", n)
	s.notify(Change{Kind: ChangeDeleted, DeletedIDs: ids})
	return n, nil
}

// PasteWeek copies a week's activities into another week as one batch.
func (s *ActivityService) PasteWeek(fromWeek, fromYear, toWeek, toYear int) ([]domain.Activity, error) {
	if err := domain.ValidateWeek(fromWeek, fromYear); err != nil {
		return nil, err
	}
	if err := domain.ValidateWeek(toWeek, toYear); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.store.ListActivities()
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	candidates := schedule.CopyWeek(all, fromWeek, fromYear, toWeek, toYear, s.newID)
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := s.commit(candidates); err != nil {
		return nil, err
	}

	logger.Info("week pasted", "from", fmt.Sprintf("%d/%d", fromWeek, fromYear), "to", fmt.Sprintf("%d/%d", toWeek, toYear), "count", len(candidates))
	s.notify(Change{Kind: ChangePasted, Activities: candidates})
	return candidates, nil
}

// Import resolves a JSON payload and commits every resolved activity as
// one batch. A malformed payload or a conflict adds nothing.
func (s *ActivityService) Import(r io.Reader) (importer.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := importer.Read(r, s.newID, s.loc)
	if err != nil {
		return importer.Result{}, err
	}
	if len(res.Activities) == 0 {
		return res, nil
	}
	if err := s.commit(res.Activities); err != nil {
		return importer.Result{}, err
	}

	logger.Info("activities imported", "count", len(res.Activities), "skipped", len(res.Skipped))
	s.notify(Change{Kind: ChangeImported, Activities: res.Activities})
	return res, nil
}

// commit runs the guard and the store write. Callers hold s.mu.
func (s *ActivityService) commit(candidates []domain.Activity) error {
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return err
		}
	}

	existing, err := s.store.ListActivities()
	if err != nil {
		return fmt.Errorf("list activities: %w", err)
	}

	conflicts := schedule.FindConflicts(candidates, existing)
	conflicts = append(conflicts, batchConflicts(candidates)...)
	if len(conflicts) > 0 {
		logger.Warn("write rejected", "conflicts", len(conflicts))
		return &domain.ConflictError{Conflicts: conflicts}
	}

	if err := s.store.SaveActivities(candidates); err != nil {
		return fmt.Errorf("save activities: %w", err)
	}
	return nil
}

// batchConflicts finds collisions between members of one batch.
func batchConflicts(candidates []domain.Activity) []domain.Conflict {
	var conflicts []domain.Conflict
	for i := range candidates {
		conflicts = append(conflicts, schedule.FindConflicts(candidates[i:i+1], candidates[i+1:])...)
	}
	return conflicts
}
