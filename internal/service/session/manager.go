package session

import (
	"log"
	"sync"

	"github.com/lithammer/shortuuid/v4"
)

// Manager keeps conversation sessions in memory. Sessions never share state.
type Manager struct {
	deps Dependencies
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager bootstraps the in-memory registry.
func NewManager(deps Dependencies, opts Options) *Manager {
	return &Manager{
		deps:     deps,
		opts:     opts,
		sessions: make(map[string]*Controller),
	}
}

// Create provisions a session awaiting its persona.
func (m *Manager) Create() *Controller {
	ctrl := NewController(shortuuid.New(), m.deps, m.opts)

	m.mu.Lock()
	m.sessions[ctrl.ID()] = ctrl
	m.mu.Unlock()

	log.Printf("[session] created %s", ctrl.ID())
	return ctrl
}

// Get retrieves a session by identifier.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ctrl, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// Delete 丢弃会话，对应页面重置。
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	log.Printf("[session] deleted %s", id)
	return nil
}

// Len 当前会话数量。
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
