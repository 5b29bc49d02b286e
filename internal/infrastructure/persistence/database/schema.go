package database

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates all required tables and indexes if they do not exist.
// The statements are idempotent, so repeated startups are safe.
func EnsureSchema(db *DB) error {
	tables := []struct {
		name string
		sql  string
	}{
		{"visitor_fingerprints", "CREATE TABLE IF NOT EXISTS visitor_fingerprints (id TEXT PRIMARY KEY, hash TEXT NOT NULL UNIQUE, server_token TEXT NOT NULL UNIQUE, visits INTEGER NOT NULL DEFAULT 1, user_agent TEXT, ip TEXT, meta TEXT, first_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, last_seen TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)"},
		{"visitor_stats", "CREATE TABLE IF NOT EXISTS visitor_stats (visitor_id TEXT PRIMARY KEY REFERENCES visitor_fingerprints(id), visits INTEGER NOT NULL DEFAULT 0, pages_seen INTEGER NOT NULL DEFAULT 0, total_time_sec REAL NOT NULL DEFAULT 0, max_scroll_depth REAL NOT NULL DEFAULT 0, contact_submits INTEGER NOT NULL DEFAULT 0, shares INTEGER NOT NULL DEFAULT 0)"},
		{"event_log", "CREATE TABLE IF NOT EXISTS event_log (id TEXT PRIMARY KEY, visitor_id TEXT NOT NULL REFERENCES visitor_fingerprints(id), type TEXT NOT NULL, value_num REAL, meta TEXT, created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)"},
		{"achievements", "CREATE TABLE IF NOT EXISTS achievements (id TEXT PRIMARY KEY, slug TEXT NOT NULL UNIQUE, title TEXT NOT NULL, description TEXT NOT NULL, icon TEXT, goal_number REAL)"},
		{"visitor_achievements", "CREATE TABLE IF NOT EXISTS visitor_achievements (id TEXT PRIMARY KEY, visitor_id TEXT NOT NULL REFERENCES visitor_fingerprints(id), achievement_id TEXT NOT NULL REFERENCES achievements(id), progress_number REAL NOT NULL DEFAULT 0, unlocked_at TIMESTAMP, last_progress_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, UNIQUE(visitor_id, achievement_id))"},
	}

	for _, t := range tables {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, t.name).Scan(&name)
		if err == sql.ErrNoRows {
			if _, err := db.Exec(t.sql); err != nil {
				return fmt.Errorf("failed to create table %s: %w", t.name, err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to check table %s existence: %w", t.name, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_event_log_visitor_id ON event_log(visitor_id)",
		"CREATE INDEX IF NOT EXISTS idx_event_log_created_at ON event_log(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_visitor_achievements_visitor_id ON visitor_achievements(visitor_id)",
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
