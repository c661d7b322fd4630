package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tazhate/familyschedule/internal/domain"
)

const activityColumns = `id, series_id, name, icon, day, week, year, participants, start_time, end_time, location, notes, color`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*domain.Activity, error) {
	a := &domain.Activity{}
	var day int
	var participants string
	err := row.Scan(&a.ID, &a.SeriesID, &a.Name, &a.Icon, &day, &a.Week, &a.Year, &participants,
		&a.StartTime, &a.EndTime, &a.Location, &a.Notes, &a.Color)
	if err != nil {
		return nil, err
	}
	a.Day = domain.Day(day)
	if err := json.Unmarshal([]byte(participants), &a.Participants); err != nil {
		return nil, fmt.Errorf("decode participants of %s: %w", a.ID, err)
	}
	return a, nil
}

func (s *Storage) queryActivities(query string, args ...any) ([]domain.Activity, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// ListActivities returns every stored activity in a stable order.
func (s *Storage) ListActivities() ([]domain.Activity, error) {
	return s.queryActivities(
		`SELECT ` + activityColumns + ` FROM activities ORDER BY year, week, day, start_time, id`,
	)
}

// ListActivitiesByWeek returns the activities of one ISO week.
func (s *Storage) ListActivitiesByWeek(week, year int) ([]domain.Activity, error) {
	return s.queryActivities(
		`SELECT `+activityColumns+` FROM activities WHERE year = ? AND week = ? ORDER BY day, start_time, id`,
		year, week,
	)
}

// GetActivity returns nil when the id is unknown.
func (s *Storage) GetActivity(id string) (*domain.Activity, error) {
	a, err := scanActivity(s.db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// SaveActivities upserts a batch in one transaction. Either every activity
// is stored or none is.
func (s *Storage) SaveActivities(activities []domain.Activity) error {
	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO activities (` + activityColumns + `)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				series_id = excluded.series_id, name = excluded.name, icon = excluded.icon,
				day = excluded.day, week = excluded.week, year = excluded.year,
				participants = excluded.participants, start_time = excluded.start_time,
				end_time = excluded.end_time, location = excluded.location, notes = excluded.notes,
				color = excluded.color, updated_at = CURRENT_TIMESTAMP`,
		)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range activities {
			a := &activities[i]
			participants, err := json.Marshal(a.Participants)
			if err != nil {
				return fmt.Errorf("encode participants of %s: %w", a.ID, err)
			}
			if _, err := stmt.Exec(a.ID, a.SeriesID, a.Name, a.Icon, int(a.Day), a.Week, a.Year,
				string(participants), a.StartTime, a.EndTime, a.Location, a.Notes, a.Color); err != nil {
				return fmt.Errorf("save activity %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// DeleteActivity removes one activity and reports whether it existed.
func (s *Storage) DeleteActivity(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteSeries removes every occurrence of a series and returns how many.
func (s *Storage) DeleteSeries(seriesID string) (int, error) {
	if seriesID == "" {
		return 0, nil
	}
	res, err := s.db.Exec(`DELETE FROM activities WHERE series_id = ?`, seriesID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
