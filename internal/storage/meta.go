package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetMeta returns the value stored under a settings key.
func (db *DB) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.sql.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta key %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a settings value, overwriting any existing one.
func (db *DB) SetMeta(ctx context.Context, key, value string) error {
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("storing meta: %w", err)
	}
	return nil
}
