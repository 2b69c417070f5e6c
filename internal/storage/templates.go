package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/claude/setlog/internal/models"
)

// Preset templates seeded on startup. Fixed ids keep seeding idempotent
// across restarts.
var defaultPresets = []models.Template{
	{ID: "tpl_wide", Name: "懸垂（ワイド）", Sets: 5, TargetTotal: 15, RestSec: 90},
	{ID: "tpl_curl", Name: "アームカール", Sets: 4, TargetTotal: 40, RestSec: 60},
	{ID: "tpl_narrow", Name: "懸垂（ナロー）", Sets: 4, TargetTotal: 12, RestSec: 90},
	{ID: "tpl_dips", Name: "ディップス", Sets: 4, TargetTotal: 20, RestSec: 90},
	{ID: "tpl_v_raise", Name: "Vレイズ", Sets: 3, TargetTotal: 10, RestSec: 60},
}

// Name of the pre-preset default template; seeding removes leftovers.
const legacyDefaultName = "懸垂 7セット"

// TemplateUpdate is a partial template update; nil fields are left as-is.
// updated_at is stamped on every successful update.
type TemplateUpdate struct {
	Name        *string
	Sets        *int
	TargetTotal *int
	RestSec     *int
}

// ListTemplates returns all templates.
func (db *DB) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT id, name, sets, target_total, rest_sec, created_at, updated_at
		 FROM templates`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

// GetTemplate retrieves one template by id.
func (db *DB) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	row := db.sql.QueryRowContext(ctx,
		`SELECT id, name, sets, target_total, rest_sec, created_at, updated_at
		 FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return t, err
}

// CreateTemplate inserts a new template with a fresh id and timestamps.
func (db *DB) CreateTemplate(ctx context.Context, name string, sets, targetTotal, restSec int) (*models.Template, error) {
	if err := validateTemplateFields(name, sets, targetTotal, restSec); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &models.Template{
		ID:          models.NewTemplateID(),
		Name:        name,
		Sets:        sets,
		TargetTotal: targetTotal,
		RestSec:     restSec,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.insertTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTemplate merges the given fields over an existing template and
// stamps updated_at.
func (db *DB) UpdateTemplate(ctx context.Context, id string, upd TemplateUpdate) (*models.Template, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, name, sets, target_total, rest_sec, created_at, updated_at
		 FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Sets != nil {
		t.Sets = *upd.Sets
	}
	if upd.TargetTotal != nil {
		t.TargetTotal = *upd.TargetTotal
	}
	if upd.RestSec != nil {
		t.RestSec = *upd.RestSec
	}
	if err := validateTemplateFields(t.Name, t.Sets, t.TargetTotal, t.RestSec); err != nil {
		return nil, err
	}
	t.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx,
		`UPDATE templates SET name = ?, sets = ?, target_total = ?, rest_sec = ?, updated_at = ?
		 WHERE id = ?`,
		t.Name, t.Sets, t.TargetTotal, t.RestSec, formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return nil, fmt.Errorf("updating template: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing template update: %w", err)
	}
	return t, nil
}

// DeleteTemplate removes a template. Deleting an absent id is a no-op.
func (db *DB) DeleteTemplate(ctx context.Context, id string) error {
	if _, err := db.sql.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	return nil
}

// EnsureDefaultTemplates seeds the preset catalog, inserting each preset
// only if its fixed id is absent, and removes templates left over from the
// legacy single default. Safe to call on every startup. Returns the id of
// the first preset.
func (db *DB) EnsureDefaultTemplates(ctx context.Context) (string, error) {
	now := formatTime(time.Now())
	for _, preset := range defaultPresets {
		_, err := db.sql.ExecContext(ctx,
			`INSERT OR IGNORE INTO templates (id, name, sets, target_total, rest_sec, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			preset.ID, preset.Name, preset.Sets, preset.TargetTotal, preset.RestSec, now, now)
		if err != nil {
			return "", fmt.Errorf("seeding preset %s: %w", preset.ID, err)
		}
	}

	if _, err := db.sql.ExecContext(ctx,
		`DELETE FROM templates WHERE name = ?`, legacyDefaultName); err != nil {
		return "", fmt.Errorf("removing legacy default template: %w", err)
	}

	return defaultPresets[0].ID, nil
}

// ImportTemplate inserts a fully-formed template row, keeping its id and
// timestamps. Returns true if inserted, false if the id already existed.
func (db *DB) ImportTemplate(ctx context.Context, t models.Template) (bool, error) {
	if err := validateTemplateFields(t.Name, t.Sets, t.TargetTotal, t.RestSec); err != nil {
		return false, err
	}
	res, err := db.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO templates (id, name, sets, target_total, rest_sec, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Sets, t.TargetTotal, t.RestSec, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return false, fmt.Errorf("importing template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) insertTemplate(ctx context.Context, t *models.Template) error {
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO templates (id, name, sets, target_total, rest_sec, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Sets, t.TargetTotal, t.RestSec, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return nil
}

// validateTemplateFields enforces the invariants the store accepts from a
// trusted caller. The tighter entry-surface ranges live in the HTTP layer.
func validateTemplateFields(name string, sets, targetTotal, restSec int) error {
	if name == "" {
		return fmt.Errorf("template name is empty: %w", ErrValidation)
	}
	if sets < 1 {
		return fmt.Errorf("sets must be >= 1, got %d: %w", sets, ErrValidation)
	}
	if targetTotal < 1 {
		return fmt.Errorf("targetTotal must be >= 1, got %d: %w", targetTotal, ErrValidation)
	}
	if restSec < 0 {
		return fmt.Errorf("restSec must be >= 0, got %d: %w", restSec, ErrValidation)
	}
	return nil
}

func scanTemplate(row interface{ Scan(dest ...any) error }) (*models.Template, error) {
	var t models.Template
	var createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.Name, &t.Sets, &t.TargetTotal, &t.RestSec, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning template: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
