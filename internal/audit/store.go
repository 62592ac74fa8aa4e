// Package audit persists the phase-tagged event trail of conversion runs to
// SQLite, so fallback and repair decisions stay inspectable after the run.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Event is one recorded run event.
type Event struct {
	ID         int64
	RunID      string
	Phase      string
	BuildingID string
	EventType  string
	Timestamp  time.Time
	Details    map[string]any
}

// Store appends and queries run events.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates a SQLite-backed store. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		building_id TEXT,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		details TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON run_events(run_id);
	CREATE INDEX IF NOT EXISTS idx_event_type ON run_events(event_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one event.
func (s *Store) Append(ctx context.Context, runID, phase, buildingID, eventType string, details map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO run_events (run_id, phase, building_id, event_type, timestamp, details) VALUES (?, ?, ?, ?, ?, ?)",
		runID, phase, buildingID, eventType, time.Now().Unix(), detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ByRun returns all events of one run in append order.
func (s *Store) ByRun(ctx context.Context, runID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, phase, building_id, event_type, timestamp, details FROM run_events WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		var buildingID sql.NullString
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.Phase, &buildingID, &e.EventType, &ts, &detailsJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.BuildingID = buildingID.String
		e.Timestamp = time.Unix(ts, 0)
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }
