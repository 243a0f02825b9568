package scan

import (
	"sync"

	"intake-app/notify"
)

// Manager is the in-memory session registry. Sessions live here from
// creation until they are discarded or the process exits; there is no
// resumable-session concept, an abandoned scope is simply lost.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	checker  CodeChecker
	notifier notify.Notifier
	observer Observer
	newID    func() int64
}

func NewManager(newID func() int64, checker CodeChecker, notifier notify.Notifier, observer Observer) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		checker:  checker,
		notifier: notifier,
		observer: observer,
		newID:    newID,
	}
}

// Create opens a fresh empty scope and registers it.
func (m *Manager) Create(cfg Config, header Header) *Session {
	s := NewSession(m.newID(), cfg, header, m.checker, m.notifier, m.observer)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Discard closes a session (aborting any in-flight validation) and drops
// it from the registry.
func (m *Manager) Discard(id int64) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
