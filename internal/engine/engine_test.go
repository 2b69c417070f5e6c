package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// newSession creates a template and an unstarted session from it. restSec
// zero keeps most tests free of the countdown goroutine.
func newSession(t *testing.T, db *storage.DB, sets, target, restSec int) *models.Session {
	t.Helper()
	ctx := context.Background()
	tpl, err := db.CreateTemplate(ctx, "懸垂（ワイド）", sets, target, restSec)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	s, err := db.CreateSession(ctx, tpl.ID, storage.SessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return s
}

func attach(t *testing.T, db *storage.DB, sessionID string) *Engine {
	t.Helper()
	e, err := Attach(context.Background(), db, sessionID, testLogger())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(e.Detach)
	return e
}

// drainEvents empties the event channel and returns the kinds seen.
func drainEvents(e *Engine) []string {
	var kinds []string
	for {
		select {
		case ev := <-e.Events():
			kinds = append(kinds, ev.Kind)
		default:
			return kinds
		}
	}
}

// TestWorkoutLifecycle walks a three-set workout to completion: two sets
// leave the target unmet, the third pushes past it and finishes the
// session.
func TestWorkoutLifecycle(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	s := newSession(t, db, 3, 20, 0)

	e := attach(t, db, s.ID)
	if st := e.Status(); st.State != "awaiting_set" || st.SetIndex != 0 {
		t.Fatalf("initial status = %s/%d, want awaiting_set/0", st.State, st.SetIndex)
	}

	if err := e.RecordSet(ctx, 8); err != nil {
		t.Fatalf("RecordSet(8): %v", err)
	}
	if err := e.RecordSet(ctx, 7); err != nil {
		t.Fatalf("RecordSet(7): %v", err)
	}

	st := e.Status()
	if st.State != "awaiting_set" || st.SetIndex != 2 {
		t.Errorf("status = %s/%d, want awaiting_set/2", st.State, st.SetIndex)
	}
	if st.Session.TotalReps != 15 || st.Session.IsAchieved {
		t.Errorf("session = %d reps achieved=%v, want 15/false", st.Session.TotalReps, st.Session.IsAchieved)
	}

	if err := e.RecordSet(ctx, 6); err != nil {
		t.Fatalf("RecordSet(6): %v", err)
	}

	st = e.Status()
	if st.State != "completed" {
		t.Errorf("state = %s, want completed", st.State)
	}
	if st.Session.TotalReps != 21 || !st.Session.IsAchieved {
		t.Errorf("session = %d reps achieved=%v, want 21/true", st.Session.TotalReps, st.Session.IsAchieved)
	}
	if !st.Session.Finished() {
		t.Error("session not finished after last set")
	}

	kinds := drainEvents(e)
	if len(kinds) == 0 || kinds[len(kinds)-1] != EventCompleted {
		t.Errorf("events = %v, want completed last", kinds)
	}

	// Completed is terminal.
	if err := e.RecordSet(ctx, 5); !errors.Is(err, ErrInvalidState) {
		t.Errorf("record after completion: err = %v, want ErrInvalidState", err)
	}
	if err := e.Undo(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("undo after completion: err = %v, want ErrInvalidState", err)
	}
}

// TestUndo verifies undo discards the previous set's reps and is a no-op
// before any set is recorded.
func TestUndo(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	s := newSession(t, db, 3, 20, 0)
	e := attach(t, db, s.ID)

	// Nothing recorded yet: no-op, not an error.
	if err := e.Undo(ctx); err != nil {
		t.Fatalf("Undo on fresh session: %v", err)
	}

	if err := e.RecordSet(ctx, 8); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	if err := e.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	st := e.Status()
	if st.SetIndex != 0 || len(st.Session.RepsBySet) != 0 {
		t.Errorf("after undo: index=%d reps=%v, want 0/[]", st.SetIndex, st.Session.RepsBySet)
	}
	if st.Session.TotalReps != 0 {
		t.Errorf("TotalReps = %d after undo, want 0", st.Session.TotalReps)
	}

	// Record-then-undo round trips: re-record works.
	if err := e.RecordSet(ctx, 9); err != nil {
		t.Fatalf("RecordSet after undo: %v", err)
	}
	if got := e.Status().Session.RepsBySet; len(got) != 1 || got[0] != 9 {
		t.Errorf("RepsBySet = %v, want [9]", got)
	}
}

// TestUndoFromResting verifies undo cancels the countdown and reopens the
// set that was just recorded.
func TestUndoFromResting(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	s := newSession(t, db, 3, 20, 60)
	e := attach(t, db, s.ID)

	if err := e.RecordSet(ctx, 8); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	if st := e.Status(); st.State != "resting" {
		t.Fatalf("state = %s, want resting", st.State)
	}

	if err := e.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	st := e.Status()
	if st.State != "awaiting_set" || st.SetIndex != 0 {
		t.Errorf("after undo: %s/%d, want awaiting_set/0", st.State, st.SetIndex)
	}
	if len(st.Session.RepsBySet) != 0 {
		t.Errorf("RepsBySet = %v after undo, want empty", st.Session.RepsBySet)
	}
}

// TestRestFlow verifies the countdown starts after a non-final set, skip
// ends it immediately, and adjust moves the remaining time with a zero
// floor.
func TestRestFlow(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	s := newSession(t, db, 3, 20, 60)
	e := attach(t, db, s.ID)

	if err := e.SkipRest(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("skip while awaiting: err = %v, want ErrInvalidState", err)
	}
	if err := e.AdjustRest(15); !errors.Is(err, ErrInvalidState) {
		t.Errorf("adjust while awaiting: err = %v, want ErrInvalidState", err)
	}

	if err := e.RecordSet(ctx, 8); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	st := e.Status()
	if st.State != "resting" || st.SetIndex != 1 {
		t.Fatalf("status = %s/%d, want resting/1", st.State, st.SetIndex)
	}
	if st.SecondsLeft <= 0 || st.SecondsLeft > 60 {
		t.Errorf("SecondsLeft = %d, want (0, 60]", st.SecondsLeft)
	}

	if err := e.AdjustRest(15); err != nil {
		t.Fatalf("AdjustRest(+15): %v", err)
	}
	if got := e.Status().SecondsLeft; got < 70 || got > 75 {
		t.Errorf("SecondsLeft after +15 = %d, want ~75", got)
	}

	if err := e.AdjustRest(-1000); err != nil {
		t.Fatalf("AdjustRest(-1000): %v", err)
	}
	if got := e.Status().SecondsLeft; got != 0 {
		t.Errorf("SecondsLeft after big negative = %d, want 0", got)
	}
	if got := e.Status().State; got != "resting" {
		t.Errorf("state after adjust = %s, want resting (adjust never changes state)", got)
	}

	drainEvents(e)
	if err := e.SkipRest(); err != nil {
		t.Fatalf("SkipRest: %v", err)
	}
	st = e.Status()
	if st.State != "awaiting_set" || st.SecondsLeft != 0 {
		t.Errorf("after skip: %s/%ds, want awaiting_set/0s", st.State, st.SecondsLeft)
	}

	kinds := drainEvents(e)
	found := false
	for _, k := range kinds {
		if k == EventRestDone {
			found = true
		}
	}
	if !found {
		t.Errorf("events after skip = %v, want rest_done", kinds)
	}
}

// TestZeroRestSkipsCountdown verifies a zero rest interval goes straight
// to the next set.
func TestZeroRestSkipsCountdown(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	s := newSession(t, db, 2, 10, 0)
	e := attach(t, db, s.ID)

	if err := e.RecordSet(ctx, 5); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	if st := e.Status(); st.State != "awaiting_set" || st.SetIndex != 1 {
		t.Errorf("status = %s/%d, want awaiting_set/1", st.State, st.SetIndex)
	}
}

// TestFinishEarly verifies an unfinished workout can be closed out with
// achievement judged on what was recorded.
func TestFinishEarly(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	s := newSession(t, db, 3, 20, 60)
	e := attach(t, db, s.ID)

	if err := e.RecordSet(ctx, 8); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	// Finishing from Resting stops the countdown too.
	if err := e.FinishEarly(ctx); err != nil {
		t.Fatalf("FinishEarly: %v", err)
	}

	st := e.Status()
	if st.State != "completed" {
		t.Errorf("state = %s, want completed", st.State)
	}
	if st.Session.TotalReps != 8 || st.Session.IsAchieved {
		t.Errorf("session = %d/achieved=%v, want 8/false", st.Session.TotalReps, st.Session.IsAchieved)
	}

	if err := e.FinishEarly(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second FinishEarly: err = %v, want ErrInvalidState", err)
	}
}

// TestAttachResumes verifies a detached session picks up where it left
// off, and attaching a finished session lands in the completed state.
func TestAttachResumes(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	s := newSession(t, db, 3, 20, 0)

	e := attach(t, db, s.ID)
	if err := e.RecordSet(ctx, 8); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	e.Detach()

	e2 := attach(t, db, s.ID)
	st := e2.Status()
	if st.State != "awaiting_set" || st.SetIndex != 1 {
		t.Errorf("resumed status = %s/%d, want awaiting_set/1", st.State, st.SetIndex)
	}

	if err := e2.FinishEarly(ctx); err != nil {
		t.Fatalf("FinishEarly: %v", err)
	}
	e2.Detach()

	e3 := attach(t, db, s.ID)
	if st := e3.Status(); st.State != "completed" {
		t.Errorf("re-attached finished session state = %s, want completed", st.State)
	}
}

// TestSuggestedReps verifies the comparison session drives suggestions,
// with the even split as fallback.
func TestSuggestedReps(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()

	tpl, err := db.CreateTemplate(ctx, "懸垂（ワイド）", 3, 20, 0)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	// No history: ceil(20/3) = 7 for every set.
	s1, err := db.CreateSession(ctx, tpl.ID, storage.SessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	e1 := attach(t, db, s1.ID)
	if got := e1.SuggestedReps(); got != 7 {
		t.Errorf("SuggestedReps with no history = %d, want 7", got)
	}
	if _, ok := e1.PreviousReps(); ok {
		t.Error("PreviousReps reported a value with no history")
	}

	// Complete the first session as 8,7,6.
	for _, reps := range []int{8, 7, 6} {
		if err := e1.RecordSet(ctx, reps); err != nil {
			t.Fatalf("RecordSet(%d): %v", reps, err)
		}
	}
	e1.Detach()

	// Second session compares against the first, set by set.
	s2, err := db.CreateSession(ctx, tpl.ID, storage.SessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	e2 := attach(t, db, s2.ID)

	if got := e2.SuggestedReps(); got != 8 {
		t.Errorf("set 0 suggestion = %d, want 8", got)
	}
	prev, ok := e2.PreviousReps()
	if !ok || prev != 8 {
		t.Errorf("set 0 previous = %d/%v, want 8/true", prev, ok)
	}

	if err := e2.RecordSet(ctx, 10); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	if got := e2.SuggestedReps(); got != 7 {
		t.Errorf("set 1 suggestion = %d, want 7", got)
	}
}

// TestSuggestedRepsBeyondHistory verifies the fallback kicks in when the
// current session has more sets than the comparison one recorded.
func TestSuggestedRepsBeyondHistory(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()

	tpl, err := db.CreateTemplate(ctx, "ディップス", 4, 20, 0)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	s1, err := db.CreateSession(ctx, tpl.ID, storage.SessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	e1 := attach(t, db, s1.ID)
	if err := e1.RecordSet(ctx, 9); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	if err := e1.FinishEarly(ctx); err != nil {
		t.Fatalf("FinishEarly: %v", err)
	}
	e1.Detach()

	s2, err := db.CreateSession(ctx, tpl.ID, storage.SessionOptions{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	e2 := attach(t, db, s2.ID)

	if got := e2.SuggestedReps(); got != 9 {
		t.Errorf("set 0 suggestion = %d, want 9 from history", got)
	}
	if err := e2.RecordSet(ctx, 9); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	// Set 1 has no historical counterpart: ceil(20/4) = 5.
	if got := e2.SuggestedReps(); got != 5 {
		t.Errorf("set 1 suggestion = %d, want 5 fallback", got)
	}
}
