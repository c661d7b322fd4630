package storage

import (
	"database/sql"
	"fmt"

	"github.com/tazhate/familyschedule/internal/domain"
)

// === Family members ===

func (s *Storage) ListMembers() ([]domain.FamilyMember, error) {
	rows, err := s.db.Query(`SELECT id, name, color, icon FROM family_members ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.FamilyMember
	for rows.Next() {
		var m domain.FamilyMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Color, &m.Icon); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ReplaceMembers stores the roster in the given order.
func (s *Storage) ReplaceMembers(members []domain.FamilyMember) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM family_members`); err != nil {
			return fmt.Errorf("clear members: %w", err)
		}
		for i, m := range members {
			if _, err := tx.Exec(
				`INSERT INTO family_members (id, name, color, icon, position) VALUES (?, ?, ?, ?, ?)`,
				m.ID, m.Name, m.Color, m.Icon, i,
			); err != nil {
				return fmt.Errorf("insert member %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

// === Settings ===

// GetSettings returns nil when nothing has been saved yet.
func (s *Storage) GetSettings() (*domain.Settings, error) {
	st := &domain.Settings{}
	err := s.db.QueryRow(
		`SELECT show_weekends, day_start, day_end FROM settings WHERE id = 1`,
	).Scan(&st.ShowWeekends, &st.DayStart, &st.DayEnd)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return st, err
}

func (s *Storage) SaveSettings(st domain.Settings) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (id, show_weekends, day_start, day_end) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET show_weekends = excluded.show_weekends,
			day_start = excluded.day_start, day_end = excluded.day_end`,
		st.ShowWeekends, st.DayStart, st.DayEnd,
	)
	return err
}

// === CalDAV push state ===

// SyncedObject is a calendar object previously pushed for an activity.
type SyncedObject struct {
	ActivityID string
	Path       string
	ETag       string
}

func (s *Storage) ListSyncedObjects() ([]SyncedObject, error) {
	rows, err := s.db.Query(`SELECT activity_id, path, COALESCE(etag, '') FROM caldav_objects ORDER BY activity_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []SyncedObject
	for rows.Next() {
		var o SyncedObject
		if err := rows.Scan(&o.ActivityID, &o.Path, &o.ETag); err != nil {
			return nil, err
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

func (s *Storage) SaveSyncedObject(o SyncedObject) error {
	_, err := s.db.Exec(
		`INSERT INTO caldav_objects (activity_id, path, etag, synced_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(activity_id) DO UPDATE SET path = excluded.path, etag = excluded.etag, synced_at = CURRENT_TIMESTAMP`,
		o.ActivityID, o.Path, o.ETag,
	)
	return err
}

func (s *Storage) DeleteSyncedObject(activityID string) error {
	_, err := s.db.Exec(`DELETE FROM caldav_objects WHERE activity_id = ?`, activityID)
	return err
}
