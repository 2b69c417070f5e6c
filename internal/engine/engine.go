package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
)

// State is the explicit workout state. It is derived from the persisted
// record exactly once, at attach, and carried as a tag from then on
// instead of being re-inferred from nullable fields.
type State int

const (
	// StateAwaitingSet means the engine is waiting for the rep count of
	// the current set.
	StateAwaitingSet State = iota
	// StateResting means the rest countdown between sets is running.
	StateResting
	// StateCompleted is terminal.
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateAwaitingSet:
		return "awaiting_set"
	case StateResting:
		return "resting"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInvalidState is returned when an operation is invoked from a state
// that does not permit it, e.g. recording a set on a completed session.
var ErrInvalidState = errors.New("invalid workout state")

// Event kinds emitted on the engine's event channel. RestTick fires once
// per second while resting; RestDone carries the audible-cue signal for
// the UI; Completed fires when the session ends.
const (
	EventRestTick  = "rest_tick"
	EventRestDone  = "rest_done"
	EventCompleted = "completed"
)

// Event is one engine notification for the UI.
type Event struct {
	Kind        string `json:"kind"`
	SetIndex    int    `json:"setIndex"`
	SecondsLeft int    `json:"secondsLeft"`
}

// Status is a point-in-time view of the workout for display.
type Status struct {
	State         string          `json:"state"`
	SetIndex      int             `json:"setIndex"`
	SecondsLeft   int             `json:"secondsLeft"`
	Session       *models.Session `json:"session"`
	SuggestedReps int             `json:"suggestedReps"`
	PreviousReps  *int            `json:"previousReps"`
}

// Engine drives one active workout session through set entry, rest
// countdown, undo, and completion. It is the sole mutator of its session
// while attached; all writes go through the store's typed commands. The
// rest timer is a goroutine owned by the engine and stopped whenever the
// engine leaves Resting, completes, or is detached.
type Engine struct {
	mu sync.Mutex

	store *storage.DB
	log   *slog.Logger

	session  *models.Session
	previous *models.Session

	state      State
	setIndex   int
	restLeft   int
	restCancel chan struct{}

	events chan Event
}

// Attach loads a session and builds an engine positioned at its current
// state: Completed if the session has ended, otherwise awaiting the first
// unfilled set. It also fetches the comparison session for the template,
// excluding the session being attached.
func Attach(ctx context.Context, store *storage.DB, sessionID string, log *slog.Logger) (*Engine, error) {
	s, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prev, err := store.LastSessionForTemplate(ctx, s.TemplateID, s.ID)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:    store,
		log:      log,
		session:  s,
		previous: prev,
		setIndex: len(s.RepsBySet),
		events:   make(chan Event, 64),
	}
	if s.Finished() {
		e.state = StateCompleted
	} else {
		e.state = StateAwaitingSet
	}
	return e, nil
}

// Events returns the engine's notification channel. Sends never block;
// a slow consumer drops ticks, not state.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// SessionID returns the id of the attached session.
func (e *Engine) SessionID() string {
	return e.session.ID
}

// Status returns a snapshot of the current workout state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := *e.session
	st := Status{
		State:         e.state.String(),
		SetIndex:      e.setIndex,
		SecondsLeft:   e.restLeft,
		Session:       &sess,
		SuggestedReps: e.suggestedRepsLocked(),
	}
	if prev, ok := e.previousRepsLocked(); ok {
		st.PreviousReps = &prev
	}
	return st
}

// RecordSet stores the rep count for the current set. On the last set it
// finishes the session; otherwise it starts the rest countdown (or goes
// straight to the next set when the snapshot's rest is zero).
func (e *Engine) RecordSet(ctx context.Context, reps int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateAwaitingSet {
		return fmt.Errorf("record set from %s: %w", e.state, ErrInvalidState)
	}

	k := e.setIndex
	s, err := e.store.RecordSet(ctx, e.session.ID, k, reps)
	if err != nil {
		return err
	}
	e.session = s

	if k >= s.TemplateSnapshot.Sets-1 {
		return e.finishLocked(ctx)
	}

	e.setIndex = k + 1
	rest := s.TemplateSnapshot.RestSec
	if rest <= 0 {
		return nil
	}
	e.state = StateResting
	e.startRestLocked(rest)
	return nil
}

// Undo steps back to the previous set, discarding its recorded reps.
// From Resting it returns to re-enter the set that was just finished.
// A no-op when no set has been recorded yet; never available once
// completed.
func (e *Engine) Undo(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateCompleted:
		return fmt.Errorf("undo from %s: %w", e.state, ErrInvalidState)
	case StateResting:
		e.stopRestLocked()
		e.state = StateAwaitingSet
	}

	target := e.setIndex - 1
	if target < 0 {
		return nil
	}

	s, err := e.store.TruncateSets(ctx, e.session.ID, target)
	if err != nil {
		return err
	}
	e.session = s
	e.setIndex = target
	return nil
}

// SkipRest ends the rest countdown immediately.
func (e *Engine) SkipRest() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateResting {
		return fmt.Errorf("skip rest from %s: %w", e.state, ErrInvalidState)
	}
	e.stopRestLocked()
	e.restLeft = 0
	e.state = StateAwaitingSet
	e.emit(Event{Kind: EventRestDone, SetIndex: e.setIndex})
	return nil
}

// AdjustRest adds delta seconds to the countdown, floored at zero,
// without changing state.
func (e *Engine) AdjustRest(delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateResting {
		return fmt.Errorf("adjust rest from %s: %w", e.state, ErrInvalidState)
	}
	e.restLeft += delta
	if e.restLeft < 0 {
		e.restLeft = 0
	}
	return nil
}

// FinishEarly completes the session without requiring all sets to be
// filled; achievement is evaluated from the reps recorded so far.
func (e *Engine) FinishEarly(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateCompleted {
		return fmt.Errorf("finish from %s: %w", e.state, ErrInvalidState)
	}
	e.stopRestLocked()
	return e.finishLocked(ctx)
}

// Detach stops the rest timer and releases the engine. The session record
// is left as persisted; re-attaching resumes from it.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopRestLocked()
}

// SuggestedReps returns the default rep entry for the current set: the
// comparison session's reps for the same set when available, otherwise
// the target split evenly across sets.
func (e *Engine) SuggestedReps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suggestedRepsLocked()
}

// PreviousReps returns the comparison session's reps for the current set,
// for "previous: N" display.
func (e *Engine) PreviousReps() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previousRepsLocked()
}

func (e *Engine) suggestedRepsLocked() int {
	if prev, ok := e.previousRepsLocked(); ok {
		return prev
	}
	return models.DefaultSetReps(e.session.TemplateSnapshot)
}

func (e *Engine) previousRepsLocked() (int, bool) {
	if e.previous == nil || e.setIndex >= len(e.previous.RepsBySet) {
		return 0, false
	}
	return e.previous.RepsBySet[e.setIndex], true
}

func (e *Engine) finishLocked(ctx context.Context) error {
	s, err := e.store.FinishSession(ctx, e.session.ID, time.Now())
	if err != nil {
		return err
	}
	e.session = s
	e.state = StateCompleted
	e.emit(Event{Kind: EventCompleted, SetIndex: e.setIndex})
	return nil
}

// startRestLocked begins the countdown goroutine. mu must be held.
func (e *Engine) startRestLocked(seconds int) {
	e.restLeft = seconds
	cancel := make(chan struct{})
	e.restCancel = cancel
	go e.restLoop(cancel)
}

// stopRestLocked cancels any running countdown. mu must be held.
func (e *Engine) stopRestLocked() {
	if e.restCancel != nil {
		close(e.restCancel)
		e.restCancel = nil
	}
}

func (e *Engine) restLoop(cancel chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.mu.Lock()
			if e.state != StateResting {
				e.mu.Unlock()
				return
			}
			e.restLeft--
			if e.restLeft <= 0 {
				e.restLeft = 0
				e.state = StateAwaitingSet
				e.restCancel = nil
				idx := e.setIndex
				e.mu.Unlock()
				e.emit(Event{Kind: EventRestDone, SetIndex: idx})
				return
			}
			ev := Event{Kind: EventRestTick, SetIndex: e.setIndex, SecondsLeft: e.restLeft}
			e.mu.Unlock()
			e.emit(ev)

		case <-cancel:
			return
		}
	}
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
