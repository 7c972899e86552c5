package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/pkg/metrics"
)

// Manager owns the live sessions of a process.
type Manager struct {
	cfg  Config
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager handing cfg and deps to every session.
func NewManager(cfg Config, deps Deps) *Manager {
	return &Manager{cfg: cfg, deps: deps, sessions: make(map[string]*Session)}
}

// Open starts a session for client.
func (m *Manager) Open(client Client) *Session {
	s := New(uuid.NewString(), m.cfg, m.deps, client)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	s.log.Debug("session opened")
	return s
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close stops and forgets a session. Unknown ids are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	s.log.Debug("session closed")
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Broadcast offers a newly created station to every session.
func (m *Manager) Broadcast(st domain.Station) {
	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.RUnlock()

	for _, s := range live {
		_ = s.IngestStation(st)
	}
}

// HandleStationCreated adapts Broadcast to an event-bus handler.
func (m *Manager) HandleStationCreated(_ context.Context, st *domain.Station) error {
	if st != nil {
		m.Broadcast(*st)
	}
	return nil
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range live {
		s.Close()
		metrics.ActiveSessions.Dec()
	}
}
