package models

import "time"

// Template is a reusable routine definition: how many sets to perform,
// the cumulative rep target, and the default rest between sets.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Sets        int       `json:"sets"`
	TargetTotal int       `json:"targetTotal"`
	RestSec     int       `json:"restSec"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TemplateSnapshot is the immutable copy of template parameters captured
// into a session at creation time. Engine logic reads the snapshot, never
// the live template, so later template edits don't change past sessions.
type TemplateSnapshot struct {
	Name        string `json:"name"`
	Sets        int    `json:"sets"`
	TargetTotal int    `json:"targetTotal"`
	RestSec     int    `json:"restSec"`
}

// Session is one concrete performance of a template.
//
// RepsBySet holds one entry per completed set, in order; its length never
// exceeds Snapshot.Sets. TotalReps and IsAchieved are derived from
// RepsBySet and recomputed by the store on every mutation. A nil EndedAt
// means the session is still in progress; once set, the session is
// terminal and callers must not issue further rep-recording commands.
type Session struct {
	ID               string           `json:"id"`
	TemplateID       string           `json:"templateId"`
	TemplateSnapshot TemplateSnapshot `json:"templateSnapshot"`
	StartedAt        time.Time        `json:"startedAt"`
	EndedAt          *time.Time       `json:"endedAt"`
	RepsBySet        []int            `json:"repsBySet"`
	TotalReps        int              `json:"totalReps"`
	IsAchieved       bool             `json:"isAchieved"`
}

// Finished reports whether the session has ended.
func (s *Session) Finished() bool {
	return s.EndedAt != nil
}

// Recompute refreshes the derived fields from RepsBySet.
func (s *Session) Recompute() {
	s.TotalReps = SumReps(s.RepsBySet)
	s.IsAchieved = s.TotalReps >= s.TemplateSnapshot.TargetTotal
}

// SumReps returns the total of a per-set rep list.
func SumReps(reps []int) int {
	total := 0
	for _, r := range reps {
		total += r
	}
	return total
}

// MaxSetReps returns the highest single-set value, or 0 for an empty list.
func MaxSetReps(reps []int) int {
	max := 0
	for _, r := range reps {
		if r > max {
			max = r
		}
	}
	return max
}

// DefaultSetReps is the fallback rep suggestion when there is no previous
// session to compare against: the target split evenly across sets,
// rounded up.
func DefaultSetReps(snap TemplateSnapshot) int {
	if snap.Sets <= 0 {
		return 0
	}
	return (snap.TargetTotal + snap.Sets - 1) / snap.Sets
}
