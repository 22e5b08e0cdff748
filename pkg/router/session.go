package router

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/cardgrid/pkg/core"
	"github.com/gabrielmiguelok/cardgrid/pkg/limits"
	"github.com/gabrielmiguelok/cardgrid/pkg/transport"
)

// infoBuffer is how many pending server-side notifications a session holds
// before new ones are dropped.
const infoBuffer = 8

// LiveSession binds one WebSocket connection to one component instance.
type LiveSession struct {
	ID        string
	Component core.Component
	Socket    *core.Socket
	Transport transport.Transport
	Params    core.Params
	Session   core.Session
	CreatedAt time.Time

	info    chan any
	events  *limits.Bucket
	release func()

	mounted    bool
	terminated bool
	version    uint64

	mu sync.Mutex
}

func newLiveSession(comp core.Component, tr transport.Transport, params core.Params, session core.Session) *LiveSession {
	id := uuid.NewString()
	return &LiveSession{
		ID:        id,
		Component: comp,
		Socket:    core.NewSocket(id, NewTransportAdapter(tr)),
		Transport: tr,
		Params:    params,
		Session:   session,
		CreatedAt: time.Now(),
		info:      make(chan any, infoBuffer),
	}
}

// Topic returns the socket topic.
func (s *LiveSession) Topic() string {
	return s.Socket.Topic()
}

// Deliver queues a server-side notification for the component. It reports
// false when the queue is full.
func (s *LiveSession) Deliver(msg any) bool {
	select {
	case s.info <- msg:
		return true
	default:
		return false
	}
}

// IsMounted reports whether Mount has succeeded.
func (s *LiveSession) IsMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

func (s *LiveSession) setMounted() {
	s.mu.Lock()
	s.mounted = true
	s.mu.Unlock()
}

func (s *LiveSession) nextVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	return s.version
}

// Version returns the number of renders sent so far.
func (s *LiveSession) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// terminate runs Terminate exactly once and releases the limiter slot.
func (s *LiveSession) terminate(reason core.TerminateReason) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	release := s.release
	s.mu.Unlock()

	if release != nil {
		release()
	}
	s.Component.Terminate(context.Background(), reason)
	s.Socket.Close()
}

// SessionManager tracks live sessions.
type SessionManager struct {
	sessions map[string]*LiveSession
	mu       sync.RWMutex
}

// NewSessionManager creates an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*LiveSession),
	}
}

// Add registers a session.
func (m *SessionManager) Add(s *LiveSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get returns a session by ID.
func (m *SessionManager) Get(id string) (*LiveSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove forgets a session.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of active sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// All returns a snapshot of the active sessions.
func (m *SessionManager) All() []*LiveSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*LiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	return result
}

// Idle returns the sessions with no socket activity for longer than ttl.
func (m *SessionManager) Idle(ttl time.Duration) []*LiveSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var idle []*LiveSession
	for _, s := range m.sessions {
		if now.Sub(s.Socket.LastActivity()) > ttl {
			idle = append(idle, s)
		}
	}
	return idle
}
