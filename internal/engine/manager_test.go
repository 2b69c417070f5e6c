package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/claude/setlog/internal/storage"
)

// TestManagerSingleActive verifies one engine at a time: starting a
// second session detaches the first, restarting the same session returns
// the existing engine.
func TestManagerSingleActive(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	m := NewManager(db, testLogger())

	s1 := newSession(t, db, 3, 20, 0)
	s2 := newSession(t, db, 3, 20, 0)

	e1, err := m.Start(ctx, s1.ID)
	if err != nil {
		t.Fatalf("Start(s1): %v", err)
	}

	again, err := m.Start(ctx, s1.ID)
	if err != nil {
		t.Fatalf("Start(s1) again: %v", err)
	}
	if again != e1 {
		t.Error("restarting the same session returned a new engine")
	}

	e2, err := m.Start(ctx, s2.ID)
	if err != nil {
		t.Fatalf("Start(s2): %v", err)
	}
	if e2 == e1 {
		t.Error("different session returned the same engine")
	}

	// s1 is no longer active.
	if _, err := m.Get(s1.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(s1) after switch: err = %v, want ErrNotFound", err)
	}
	got, err := m.Get(s2.ID)
	if err != nil {
		t.Fatalf("Get(s2): %v", err)
	}
	if got != e2 {
		t.Error("Get(s2) returned a different engine")
	}

	m.Shutdown()
}

// TestManagerSwitchKeepsRecord verifies abandoning a workout leaves its
// persisted record intact for later resumption.
func TestManagerSwitchKeepsRecord(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	m := NewManager(db, testLogger())

	s1 := newSession(t, db, 3, 20, 0)
	s2 := newSession(t, db, 3, 20, 0)

	e1, err := m.Start(ctx, s1.ID)
	if err != nil {
		t.Fatalf("Start(s1): %v", err)
	}
	if err := e1.RecordSet(ctx, 8); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}

	if _, err := m.Start(ctx, s2.ID); err != nil {
		t.Fatalf("Start(s2): %v", err)
	}

	// Resume s1: the recorded set survived the detach.
	e1b, err := m.Start(ctx, s1.ID)
	if err != nil {
		t.Fatalf("Start(s1) resume: %v", err)
	}
	st := e1b.Status()
	if st.SetIndex != 1 || len(st.Session.RepsBySet) != 1 || st.Session.RepsBySet[0] != 8 {
		t.Errorf("resumed status = index %d reps %v, want 1/[8]", st.SetIndex, st.Session.RepsBySet)
	}

	m.Shutdown()
}

func TestManagerStop(t *testing.T) {
	db := testStore(t)
	ctx := context.Background()
	m := NewManager(db, testLogger())

	s := newSession(t, db, 3, 20, 0)
	if _, err := m.Start(ctx, s.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Stopping a different id leaves the active engine alone.
	m.Stop("ses_other")
	if _, err := m.Get(s.ID); err != nil {
		t.Fatalf("Get after unrelated Stop: %v", err)
	}

	m.Stop(s.ID)
	if _, err := m.Get(s.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after Stop: err = %v, want ErrNotFound", err)
	}
}

func TestManagerStartMissingSession(t *testing.T) {
	db := testStore(t)
	m := NewManager(db, testLogger())

	if _, err := m.Start(context.Background(), "ses_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
