package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewTemplateID returns a fresh template identifier, "tpl_" plus a random
// suffix. Preset templates use fixed ids instead (see storage).
func NewTemplateID() string {
	return "tpl_" + randSuffix()
}

// NewSessionID returns a session identifier encoding the local creation
// time, "ses_yyyyMMdd_HHmmss_rand". Lexicographic order roughly tracks
// creation order; the authoritative ordering is always the startedAt index.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("ses_%s_%s", now.Format("20060102_150405"), randSuffix())
}

// randSuffix returns 16 hex chars (64 random bits), enough that suffix
// collisions never surface as primary-key violations in practice.
func randSuffix() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:8])
}
