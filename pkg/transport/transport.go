// Package transport carries protocol messages between the browser and a
// live session.
package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gabrielmiguelok/cardgrid/pkg/protocol"
)

// Common transport errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendTimeout      = errors.New("send timeout")
	ErrTransportFull    = errors.New("transport buffer full")
)

// Transport is a bidirectional message stream.
type Transport interface {
	// Connect establishes the connection (client side).
	Connect(ctx context.Context) error

	// Send queues a message for the peer.
	Send(msg *protocol.Message) error

	// Receive returns a channel for incoming messages.
	Receive() <-chan *protocol.Message

	// Done is closed once the transport has shut down.
	Done() <-chan struct{}

	// Close terminates the connection.
	Close() error

	// IsConnected returns true if connected.
	IsConnected() bool
}

// Config holds transport tuning.
type Config struct {
	// ReadTimeout is the longest the peer may stay silent.
	ReadTimeout time.Duration

	// WriteTimeout bounds a single frame write and a blocked Send.
	WriteTimeout time.Duration

	// PingInterval is how often to send WebSocket pings.
	PingInterval time.Duration

	// MaxMessageSize is the maximum inbound frame size in bytes.
	MaxMessageSize int64

	SendBufferSize    int
	ReceiveBufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendBufferSize:    64,
		ReceiveBufferSize: 64,
	}
}

// BaseTransport provides the channel plumbing shared by transports.
type BaseTransport struct {
	config    *Config
	connected bool
	sendCh    chan *protocol.Message
	recvCh    chan *protocol.Message
	closeCh   chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
}

// NewBaseTransport creates a new base transport.
func NewBaseTransport(config *Config) *BaseTransport {
	if config == nil {
		config = DefaultConfig()
	}
	return &BaseTransport{
		config:  config,
		sendCh:  make(chan *protocol.Message, config.SendBufferSize),
		recvCh:  make(chan *protocol.Message, config.ReceiveBufferSize),
		closeCh: make(chan struct{}),
	}
}

// Config returns the transport configuration.
func (t *BaseTransport) Config() *Config {
	return t.config
}

// IsConnected returns the connection status.
func (t *BaseTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// SetConnected updates the connection status.
func (t *BaseTransport) SetConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = connected
}

// Receive returns the receive channel.
func (t *BaseTransport) Receive() <-chan *protocol.Message {
	return t.recvCh
}

// Done returns a channel closed on shutdown.
func (t *BaseTransport) Done() <-chan struct{} {
	return t.closeCh
}

// Close marks the transport closed. It is safe to call more than once.
func (t *BaseTransport) Close() error {
	t.closeOnce.Do(func() {
		t.SetConnected(false)
		close(t.closeCh)
	})
	return nil
}

// enqueue waits up to the write timeout for room in the send buffer.
func (t *BaseTransport) enqueue(msg *protocol.Message) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}

	timer := time.NewTimer(t.config.WriteTimeout)
	defer timer.Stop()

	select {
	case t.sendCh <- msg:
		return nil
	case <-t.closeCh:
		return ErrConnectionClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}
