package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/setlog/internal/models"
)

// SessionOptions carries the per-session overrides chosen at start time.
// Nil fields fall back to the template's own values. targetTotal is never
// overridable; it is always copied from the template.
type SessionOptions struct {
	Sets    *int
	RestSec *int
}

const sessionColumns = `id, template_id, snapshot_name, snapshot_sets,
	snapshot_target_total, snapshot_rest_sec, started_at, ended_at,
	reps_by_set, total_reps, is_achieved`

// CreateSession starts a new session from a template, capturing an
// immutable snapshot of the template parameters.
func (db *DB) CreateSession(ctx context.Context, templateID string, opts SessionOptions) (*models.Session, error) {
	tpl, err := db.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	snap := models.TemplateSnapshot{
		Name:        tpl.Name,
		Sets:        tpl.Sets,
		TargetTotal: tpl.TargetTotal,
		RestSec:     tpl.RestSec,
	}
	if opts.Sets != nil {
		snap.Sets = *opts.Sets
	}
	if opts.RestSec != nil {
		snap.RestSec = *opts.RestSec
	}
	if snap.Sets < 1 {
		return nil, fmt.Errorf("sets override must be >= 1, got %d: %w", snap.Sets, ErrValidation)
	}
	if snap.RestSec < 0 {
		return nil, fmt.Errorf("restSec override must be >= 0, got %d: %w", snap.RestSec, ErrValidation)
	}

	now := time.Now()
	s := &models.Session{
		ID:               models.NewSessionID(now),
		TemplateID:       templateID,
		TemplateSnapshot: snap,
		StartedAt:        now,
		RepsBySet:        []int{},
	}

	_, err = db.sql.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, '[]', 0, 0)`,
		s.ID, s.TemplateID, snap.Name, snap.Sets, snap.TargetTotal, snap.RestSec,
		formatTime(s.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return s, nil
}

// GetSession retrieves one session by id.
func (db *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := db.sql.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, err
}

// DeleteSession removes a session. Deleting an absent id is a no-op.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.sql.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ListSessions returns sessions ordered by started_at descending, scanned
// off the index rather than sorted in memory. limit <= 0 returns all.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// SessionsForTemplate returns all sessions created from one template, in
// index order. The template_id index is an equality lookup, not a
// time-ordered one; callers that need chronology sort in memory.
func (db *DB) SessionsForTemplate(ctx context.Context, templateID string) ([]models.Session, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE template_id = ?`, templateID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions for template: %w", err)
	}
	defer rows.Close()

	var result []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// LastSessionForTemplate returns the most recently started completed
// session for a template, falling back to the most recently started
// session of any state when no completed one exists. The excludeID session
// is never returned, so an engine can't compare a session against itself.
// Returns (nil, nil) when nothing matches.
func (db *DB) LastSessionForTemplate(ctx context.Context, templateID, excludeID string) (*models.Session, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE template_id = ? AND id <> ?
		 ORDER BY started_at DESC`, templateID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions for template: %w", err)
	}
	defer rows.Close()

	var newest *models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		if s.Finished() {
			return s, nil
		}
		if newest == nil {
			newest = s
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return newest, nil
}

// RecordSet writes the rep count for one set and recomputes the derived
// fields. index must be the next unfilled set or an already-filled one
// (overwrite), and always below the snapshot's set count. The command
// either fully applies or leaves the record untouched.
func (db *DB) RecordSet(ctx context.Context, id string, index, reps int) (*models.Session, error) {
	if reps < 0 {
		return nil, fmt.Errorf("reps must be >= 0, got %d: %w", reps, ErrValidation)
	}
	return db.mutateSession(ctx, id, func(s *models.Session) error {
		if index < 0 || index >= s.TemplateSnapshot.Sets || index > len(s.RepsBySet) {
			return fmt.Errorf("set index %d out of range (have %d of %d sets): %w",
				index, len(s.RepsBySet), s.TemplateSnapshot.Sets, ErrValidation)
		}
		if index == len(s.RepsBySet) {
			s.RepsBySet = append(s.RepsBySet, reps)
		} else {
			s.RepsBySet[index] = reps
		}
		return nil
	})
}

// TruncateSets shortens the rep list to n entries (undo) and recomputes
// the derived fields.
func (db *DB) TruncateSets(ctx context.Context, id string, n int) (*models.Session, error) {
	return db.mutateSession(ctx, id, func(s *models.Session) error {
		if n < 0 || n > len(s.RepsBySet) {
			return fmt.Errorf("truncate to %d with %d sets recorded: %w",
				n, len(s.RepsBySet), ErrValidation)
		}
		s.RepsBySet = s.RepsBySet[:n]
		return nil
	})
}

// FinishSession stamps ended_at, making the session terminal, and
// recomputes achievement from the reps recorded so far.
func (db *DB) FinishSession(ctx context.Context, id string, at time.Time) (*models.Session, error) {
	return db.mutateSession(ctx, id, func(s *models.Session) error {
		ended := at
		s.EndedAt = &ended
		return nil
	})
}

// ImportSession inserts a fully-formed session row, keeping its id and
// timestamps; derived fields are recomputed rather than trusted. Returns
// true if inserted, false if the id already existed.
func (db *DB) ImportSession(ctx context.Context, s models.Session) (bool, error) {
	if len(s.RepsBySet) > s.TemplateSnapshot.Sets {
		return false, fmt.Errorf("session %s has %d sets recorded for %d planned: %w",
			s.ID, len(s.RepsBySet), s.TemplateSnapshot.Sets, ErrValidation)
	}
	s.Recompute()

	repsJSON, err := json.Marshal(s.RepsBySet)
	if err != nil {
		return false, fmt.Errorf("encoding reps: %w", err)
	}
	var endedAt any
	if s.EndedAt != nil {
		endedAt = formatTime(*s.EndedAt)
	}

	res, err := db.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TemplateID, s.TemplateSnapshot.Name, s.TemplateSnapshot.Sets,
		s.TemplateSnapshot.TargetTotal, s.TemplateSnapshot.RestSec,
		formatTime(s.StartedAt), endedAt, string(repsJSON), s.TotalReps, s.IsAchieved)
	if err != nil {
		return false, fmt.Errorf("importing session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// mutateSession is the shared read-modify-write transaction behind the
// typed session commands. The mutation runs on the loaded record, derived
// fields are recomputed, and the whole row is written back, so the store
// never persists a rep list inconsistent with its totals.
func (db *DB) mutateSession(ctx context.Context, id string, mutate func(*models.Session) error) (*models.Session, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning session update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := mutate(s); err != nil {
		return nil, err
	}
	s.Recompute()

	repsJSON, err := json.Marshal(s.RepsBySet)
	if err != nil {
		return nil, fmt.Errorf("encoding reps: %w", err)
	}
	var endedAt any
	if s.EndedAt != nil {
		endedAt = formatTime(*s.EndedAt)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, reps_by_set = ?, total_reps = ?, is_achieved = ?
		 WHERE id = ?`,
		endedAt, string(repsJSON), s.TotalReps, s.IsAchieved, s.ID)
	if err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing session update: %w", err)
	}
	return s, nil
}

func scanSession(row interface{ Scan(dest ...any) error }) (*models.Session, error) {
	var s models.Session
	var startedAt, repsJSON string
	var endedAt sql.NullString
	err := row.Scan(&s.ID, &s.TemplateID,
		&s.TemplateSnapshot.Name, &s.TemplateSnapshot.Sets,
		&s.TemplateSnapshot.TargetTotal, &s.TemplateSnapshot.RestSec,
		&startedAt, &endedAt, &repsJSON, &s.TotalReps, &s.IsAchieved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return nil, err
		}
		s.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(repsJSON), &s.RepsBySet); err != nil {
		return nil, fmt.Errorf("decoding reps for session %s: %w", s.ID, err)
	}
	if s.RepsBySet == nil {
		s.RepsBySet = []int{}
	}
	return &s, nil
}
