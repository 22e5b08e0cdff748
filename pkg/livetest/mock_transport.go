package livetest

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/cardgrid/pkg/core"
)

// MockTransport implements core.Transport and records what is sent.
type MockTransport struct {
	ID string

	sent   []core.Message
	closed bool
	err    error

	mu sync.Mutex
}

// NewMockTransport creates a connected mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		ID: "test-" + uuid.NewString()[:8],
	}
}

// Send records msg, or returns the error set with FailWith.
func (m *MockTransport) Send(msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if m.closed {
		return core.ErrSocketClosed
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected reports whether Close has not been called.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// FailWith makes every following Send return err. A nil err clears it.
func (m *MockTransport) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of the recorded messages.
func (m *MockTransport) Sent() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Message(nil), m.sent...)
}

// SentEvents returns the event names of the recorded messages in order.
func (m *MockTransport) SentEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]string, len(m.sent))
	for i, msg := range m.sent {
		events[i] = msg.Event
	}
	return events
}
