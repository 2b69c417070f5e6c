package storage

import (
	"path/filepath"
	"testing"
	"time"
)

// testDB opens a fresh migrated database in a temp directory.
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// TestMigrateIdempotent verifies running migrations twice is a no-op.
func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

// TestFormatTimeOrdering verifies the stored encoding sorts like the
// instants it encodes. .1 vs .15 is the trap: with trailing zeros
// trimmed, "…05.1Z" > "…05.15Z" because 'Z' > '5'.
func TestFormatTimeOrdering(t *testing.T) {
	base := time.Date(2025, 6, 2, 12, 0, 5, 0, time.UTC)
	earlier := formatTime(base.Add(100 * time.Millisecond))
	later := formatTime(base.Add(150 * time.Millisecond))
	if earlier >= later {
		t.Errorf("encoded order: %q >= %q, want string order to match time order", earlier, later)
	}

	got, err := parseTime(later)
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if !got.Equal(base.Add(150 * time.Millisecond)) {
		t.Errorf("round trip = %v, want %v", got, base.Add(150*time.Millisecond))
	}
}

// TestParseTimeVariableFraction verifies rows written with a trimmed
// fraction (or none) still parse.
func TestParseTimeVariableFraction(t *testing.T) {
	for _, s := range []string{
		"2025-06-02T12:00:05Z",
		"2025-06-02T12:00:05.1Z",
		"2025-06-02T12:00:05.100000000Z",
	} {
		if _, err := parseTime(s); err != nil {
			t.Errorf("parseTime(%q): %v", s, err)
		}
	}
}
