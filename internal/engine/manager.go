package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/setlog/internal/storage"
)

// Manager enforces the single-workout-at-a-time rule: at most one engine
// exists, and no two engines ever hold the same session concurrently.
type Manager struct {
	mu     sync.Mutex
	store  *storage.DB
	log    *slog.Logger
	active *Engine
}

// NewManager creates a manager over the given store.
func NewManager(store *storage.DB, log *slog.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// Start attaches an engine to the given session. If that session already
// has the active engine, it is returned as-is; any engine on a different
// session is detached first (navigating to a new workout abandons the
// old countdown, not the old record).
func (m *Manager) Start(ctx context.Context, sessionID string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		if m.active.SessionID() == sessionID {
			return m.active, nil
		}
		m.log.Info("detaching previous workout", "session_id", m.active.SessionID())
		m.active.Detach()
		m.active = nil
	}

	e, err := Attach(ctx, m.store, sessionID, m.log)
	if err != nil {
		return nil, err
	}
	m.active = e
	return e, nil
}

// Get returns the active engine for a session id.
func (m *Manager) Get(sessionID string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.SessionID() != sessionID {
		return nil, fmt.Errorf("no active workout for session %s: %w", sessionID, storage.ErrNotFound)
	}
	return m.active, nil
}

// Stop detaches the engine for a session id, if it is the active one.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.SessionID() == sessionID {
		m.active.Detach()
		m.active = nil
	}
}

// Shutdown detaches whatever engine is active. Called on process exit so
// the rest timer goroutine stops before the store closes.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.active.Detach()
		m.active = nil
	}
}
