package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"schedulebot/internal/timetable"
)

// PreferenceStore persists per-user saved subjects. A saved subject is the
// full resolved identity serialized as JSON, so reuse needs no second
// provider lookup. Last writer wins.
type PreferenceStore struct {
	db *sqlx.DB
}

// NewPreferenceStore wraps an open database handle.
func NewPreferenceStore(db *sqlx.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// SavedGroup returns the user's saved group, if any.
func (s *PreferenceStore) SavedGroup(ctx context.Context, userID int64) (timetable.Group, bool, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT saved_group FROM users WHERE id = $1 AND saved_group IS NOT NULL`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return timetable.Group{}, false, nil
	}
	if err != nil {
		return timetable.Group{}, false, fmt.Errorf("saved group: %w", err)
	}

	var group timetable.Group
	if err := json.Unmarshal(raw, &group); err != nil {
		return timetable.Group{}, false, fmt.Errorf("saved group decode: %w", err)
	}
	return group, true, nil
}

// SaveGroup stores the group as the user's default.
func (s *PreferenceStore) SaveGroup(ctx context.Context, userID int64, group timetable.Group) error {
	raw, err := json.Marshal(group)
	if err != nil {
		return fmt.Errorf("save group encode: %w", err)
	}
	return s.upsert(ctx, userID, "saved_group", raw)
}

// ClearGroup drops the user's saved group.
func (s *PreferenceStore) ClearGroup(ctx context.Context, userID int64) error {
	return s.upsert(ctx, userID, "saved_group", nil)
}

// SavedLecturer returns the user's saved lecturer, if any.
func (s *PreferenceStore) SavedLecturer(ctx context.Context, userID int64) (timetable.Lecturer, bool, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT saved_lecturer FROM users WHERE id = $1 AND saved_lecturer IS NOT NULL`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return timetable.Lecturer{}, false, nil
	}
	if err != nil {
		return timetable.Lecturer{}, false, fmt.Errorf("saved lecturer: %w", err)
	}

	var lect timetable.Lecturer
	if err := json.Unmarshal(raw, &lect); err != nil {
		return timetable.Lecturer{}, false, fmt.Errorf("saved lecturer decode: %w", err)
	}
	return lect, true, nil
}

// SaveLecturer stores the lecturer as the user's default.
func (s *PreferenceStore) SaveLecturer(ctx context.Context, userID int64, lect timetable.Lecturer) error {
	raw, err := json.Marshal(lect)
	if err != nil {
		return fmt.Errorf("save lecturer encode: %w", err)
	}
	return s.upsert(ctx, userID, "saved_lecturer", raw)
}

// ClearLecturer drops the user's saved lecturer.
func (s *PreferenceStore) ClearLecturer(ctx context.Context, userID int64) error {
	return s.upsert(ctx, userID, "saved_lecturer", nil)
}

func (s *PreferenceStore) upsert(ctx context.Context, userID int64, column string, raw []byte) error {
	// column is one of two fixed names, never user input.
	query := fmt.Sprintf(
		`INSERT INTO users (id, %[1]s, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE
		 SET %[1]s = EXCLUDED.%[1]s, updated_at = now()`, column)

	var value any
	if raw != nil {
		value = raw
	}
	if _, err := s.db.ExecContext(ctx, query, userID, value); err != nil {
		return fmt.Errorf("%s upsert: %w", column, err)
	}
	return nil
}
