package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			series_id TEXT DEFAULT '',
			name TEXT NOT NULL,
			icon TEXT DEFAULT '',
			day INTEGER NOT NULL CHECK (day BETWEEN 0 AND 6),
			week INTEGER NOT NULL CHECK (week BETWEEN 1 AND 53),
			year INTEGER NOT NULL,
			participants TEXT NOT NULL DEFAULT '[]',
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			location TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			color TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK (end_time > start_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_week ON activities(year, week)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_series ON activities(series_id)`,
		`CREATE TABLE IF NOT EXISTS family_members (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT NOT NULL,
			icon TEXT DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			show_weekends INTEGER NOT NULL DEFAULT 0,
			day_start INTEGER NOT NULL DEFAULT 7,
			day_end INTEGER NOT NULL DEFAULT 18
		)`,
		// CalDAV push state
		`CREATE TABLE IF NOT EXISTS caldav_objects (
			activity_id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			etag TEXT DEFAULT '',
			synced_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on any error.
func (s *Storage) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
