package core

import (
	"sync"
	"testing"
)

// MockTransport implements Transport for testing.
type MockTransport struct {
	connected bool
	messages  []Message
	mu        sync.Mutex
}

func NewMockTransport() *MockTransport {
	return &MockTransport{connected: true}
}

func (m *MockTransport) Send(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrSocketClosed
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockTransport) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Message, len(m.messages))
	copy(result, m.messages)
	return result
}

func TestNewSocket(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())

	if socket.ID() != "test-id" {
		t.Errorf("expected ID 'test-id', got '%s'", socket.ID())
	}
	if socket.Topic() != "lv:test-id" {
		t.Errorf("expected topic 'lv:test-id', got '%s'", socket.Topic())
	}
	if !socket.IsConnected() {
		t.Error("expected socket to be connected")
	}
	if socket.Assigns() == nil {
		t.Error("expected assigns to be initialized")
	}
}

func TestSocket_Push(t *testing.T) {
	transport := NewMockTransport()
	socket := NewSocket("test-id", transport)

	if err := socket.Push("render", map[string]any{"html": "<p></p>"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	messages := transport.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Event != "render" || messages[0].Topic != "lv:test-id" {
		t.Errorf("unexpected message %+v", messages[0])
	}
}

func TestSocket_Send_Closed(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())
	socket.Close()

	if err := socket.Send(Message{Event: "test"}); err != ErrSocketClosed {
		t.Errorf("expected ErrSocketClosed, got %v", err)
	}
	if socket.IsConnected() {
		t.Error("expected socket to be disconnected")
	}
}

func TestSocket_Send_Concurrent(t *testing.T) {
	transport := NewMockTransport()
	socket := NewSocket("test-id", transport)

	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				socket.Push("tick", nil)
			}
		}()
	}
	wg.Wait()

	if n := len(transport.Messages()); n != goroutines*perGoroutine {
		t.Errorf("expected %d messages, got %d", goroutines*perGoroutine, n)
	}
}

func TestChangeTracker(t *testing.T) {
	a := NewAssigns()

	a.Set("open", -1)
	a.Set("html", "<p>x</p>")
	if got := a.Tracker().GetChanged(); len(got) != 2 || got[0] != "html" || got[1] != "open" {
		t.Errorf("expected [html open], got %v", got)
	}

	a.Set("open", -1)
	if a.Tracker().HasChanges() {
		t.Error("expected writing the same value not to be a change")
	}

	a.Set("open", 2)
	if !a.Tracker().HasChanges() {
		t.Error("expected a change after writing a new value")
	}
	if a.GetInt("open") != 2 {
		t.Errorf("expected 2, got %d", a.GetInt("open"))
	}

	a.Tracker().Reset()
	if a.Tracker().HasChanges() || a.Tracker().Version() != 0 {
		t.Error("expected reset tracker")
	}
}
