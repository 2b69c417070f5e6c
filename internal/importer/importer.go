// Package importer loads a JSON backup exported by the setlog PWA
// (templates plus sessions) into the store.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
)

// Backup is the exported JSON shape.
type Backup struct {
	Templates []models.Template `json:"templates"`
	Sessions  []models.Session  `json:"sessions"`
}

// Result tracks import progress. Duplicates are counted, not errors:
// re-importing the same backup is a no-op.
type Result struct {
	TemplatesInserted   int `json:"templatesInserted"`
	TemplatesDuplicated int `json:"templatesDuplicated"`
	SessionsInserted    int `json:"sessionsInserted"`
	SessionsDuplicated  int `json:"sessionsDuplicated"`
}

// Import reads a backup and inserts every record whose id is not already
// present. Derived session fields are recomputed by the store on insert,
// so a hand-edited backup cannot smuggle in inconsistent totals.
func Import(ctx context.Context, db *storage.DB, r io.Reader, log *slog.Logger) (*Result, error) {
	var backup Backup
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("decoding backup: %w", err)
	}

	result := &Result{}

	for _, t := range backup.Templates {
		if t.ID == "" {
			return result, fmt.Errorf("template %q has no id: %w", t.Name, storage.ErrValidation)
		}
		inserted, err := db.ImportTemplate(ctx, t)
		if err != nil {
			return result, fmt.Errorf("importing template %s: %w", t.ID, err)
		}
		if inserted {
			result.TemplatesInserted++
		} else {
			result.TemplatesDuplicated++
		}
	}

	for _, s := range backup.Sessions {
		if s.ID == "" {
			return result, fmt.Errorf("session for template %q has no id: %w", s.TemplateID, storage.ErrValidation)
		}
		inserted, err := db.ImportSession(ctx, s)
		if err != nil {
			return result, fmt.Errorf("importing session %s: %w", s.ID, err)
		}
		if inserted {
			result.SessionsInserted++
		} else {
			result.SessionsDuplicated++
		}
	}

	log.Info("backup import finished",
		"templates_inserted", result.TemplatesInserted,
		"templates_duplicated", result.TemplatesDuplicated,
		"sessions_inserted", result.SessionsInserted,
		"sessions_duplicated", result.SessionsDuplicated,
	)
	return result, nil
}
