package controller

import (
	"sync"
	"time"

	"latidos/metrics"

	"github.com/apex/log"
)

// Manager owns the controllers of all browser sessions.
type Manager struct {
	mu       sync.Mutex
	deps     Deps
	ttl      time.Duration
	sessions map[string]*Controller
}

func NewManager(deps Deps, ttl time.Duration) *Manager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		sessions: make(map[string]*Controller),
	}
}

// Get returns the controller of an existing session.
func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[id]
	return c, ok
}

// Open returns the controller of the session, creating it when needed.
func (m *Manager) Open(id string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.sessions[id]; ok {
		return c
	}
	c := New(id, m.deps)
	m.sessions[id] = c
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	log.WithField("session", id).Debug("Session opened")
	return c
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many went.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.deps.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, c := range m.sessions {
		if c.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		log.Infof("Expired %d idle sessions", removed)
	}
	return removed
}

// Wait blocks until the background work of every session has finished.
func (m *Manager) Wait() {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		controllers = append(controllers, c)
	}
	m.mu.Unlock()

	for _, c := range controllers {
		c.Wait()
	}
}
