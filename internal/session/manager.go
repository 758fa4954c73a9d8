// Package session tracks live SSE connections so asynchronous JSON-RPC
// responses can be routed back to the caller that issued them.
package session

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/editorbridge/internal/logging"
	"github.com/opencode-ai/editorbridge/internal/protocol"
)

// Session represents one open SSE connection.
type Session struct {
	ID string
	ch chan protocol.Response
}

// Manager owns the session table. Sessions are created when a client opens
// an SSE stream and removed exactly once when that stream closes.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create allocates a new session and returns its id. ULIDs carry 80 bits of
// randomness, so uniqueness holds by construction rather than by checking.
func (m *Manager) Create() string {
	id := ulid.Make().String()

	m.mu.Lock()
	m.sessions[id] = &Session{ID: id}
	m.mu.Unlock()

	return id
}

// Attach binds an outbound response channel to the session. The transport
// layer reads from the returned channel until the connection closes.
func (m *Manager) Attach(id string) (<-chan protocol.Response, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if s.ch == nil {
		// Small buffer: a slow client drops responses rather than wedging
		// the dispatcher.
		s.ch = make(chan protocol.Response, 16)
	}
	return s.ch, true
}

// Get reports whether a session exists.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Deliver routes a response to the session's stream. Delivery to a removed
// or unattached session is a silent no-op: a closed stream is the only
// cancellation primitive, and in-flight results simply have nowhere to go.
func (m *Manager) Deliver(id string, resp protocol.Response) bool {
	m.mu.RLock()
	s, ok := m.sessions[id]
	var ch chan protocol.Response
	if ok {
		ch = s.ch
	}
	m.mu.RUnlock()

	if !ok || ch == nil {
		return false
	}

	select {
	case ch <- resp:
		return true
	default:
		logging.Warn().Str("sessionId", id).Msg("response dropped: session channel full")
		return false
	}
}

// Remove deletes a session. Safe to call more than once.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
