package service

import (
	"fmt"

	"github.com/tazhate/familyschedule/internal/domain"
)

// FamilyStore persists the roster and display settings.
type FamilyStore interface {
	ListMembers() ([]domain.FamilyMember, error)
	ReplaceMembers(members []domain.FamilyMember) error
	GetSettings() (*domain.Settings, error)
	SaveSettings(st domain.Settings) error
}

// FamilyService serves the family roster and grid settings. An empty store
// falls back to the configured default roster and default settings.
type FamilyService struct {
	store    FamilyStore
	defaults []domain.FamilyMember
}

func NewFamilyService(store FamilyStore, defaults []domain.FamilyMember) *FamilyService {
	if len(defaults) == 0 {
		defaults = domain.DefaultFamily()
	}
	return &FamilyService{store: store, defaults: defaults}
}

// Members returns the stored roster or the defaults.
func (s *FamilyService) Members() ([]domain.FamilyMember, error) {
	members, err := s.store.ListMembers()
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if len(members) == 0 {
		return append([]domain.FamilyMember(nil), s.defaults...), nil
	}
	return members, nil
}

// Member returns domain.ErrNotFound for unknown ids.
func (s *FamilyService) Member(id string) (*domain.FamilyMember, error) {
	members, err := s.Members()
	if err != nil {
		return nil, err
	}
	m := domain.FindMember(members, id)
	if m == nil {
		return nil, fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

// SetMembers replaces the roster. Activities referencing removed members
// are left as they are.
func (s *FamilyService) SetMembers(members []domain.FamilyMember) error {
	if err := domain.ValidateRoster(members); err != nil {
		return err
	}
	if err := s.store.ReplaceMembers(members); err != nil {
		return fmt.Errorf("save members: %w", err)
	}
	return nil
}

// Settings returns the stored settings or the defaults.
func (s *FamilyService) Settings() (domain.Settings, error) {
	st, err := s.store.GetSettings()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	if st == nil {
		return domain.DefaultSettings(), nil
	}
	return *st, nil
}

func (s *FamilyService) SaveSettings(st domain.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveSettings(st); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
