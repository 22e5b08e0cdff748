// Package pubsub fans server-side notifications out to live sessions.
package pubsub

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
)

// channelWrapper wraps a channel with sync.Once for safe closing.
type channelWrapper struct {
	ch        chan []byte
	closeOnce sync.Once
}

func newChannelWrapper(size int) *channelWrapper {
	return &channelWrapper{
		ch: make(chan []byte, size),
	}
}

func (cw *channelWrapper) close() {
	cw.closeOnce.Do(func() {
		close(cw.ch)
	})
}

// Common pubsub errors.
var (
	ErrPubSubClosed = errors.New("pubsub is closed")
)

// DefaultBufferSize is the per-subscriber queue length.
const DefaultBufferSize = 64

// PubSub is the interface for pub/sub implementations.
type PubSub interface {
	// Subscribe adds a handler for a topic.
	Subscribe(topic string, handler func(msg []byte)) (Subscription, error)

	// Publish sends a message to all subscribers of a topic.
	Publish(topic string, msg []byte) error

	// Close shuts down the pubsub system.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe removes this subscription.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// MemoryPubSub is an in-memory pub/sub for a single process. Each
// subscriber has its own bounded queue; when it is full new messages to that
// subscriber are dropped.
type MemoryPubSub struct {
	topics     map[string]map[string]*channelWrapper
	subs       map[string]*memorySubscription
	nextID     int
	closed     bool
	bufferSize int
	logger     logging.Logger
	dropped    atomic.Int64
	mu         sync.RWMutex
}

// Option configures a MemoryPubSub.
type Option func(*MemoryPubSub)

// WithBufferSize sets the per-subscriber queue length.
func WithBufferSize(n int) Option {
	return func(ps *MemoryPubSub) {
		if n > 0 {
			ps.bufferSize = n
		}
	}
}

// WithLogger sets the logger used for dropped messages and handler panics.
func WithLogger(l logging.Logger) Option {
	return func(ps *MemoryPubSub) {
		if l != nil {
			ps.logger = l
		}
	}
}

// NewMemoryPubSub creates a new in-memory pub/sub.
func NewMemoryPubSub(opts ...Option) *MemoryPubSub {
	ps := &MemoryPubSub{
		topics:     make(map[string]map[string]*channelWrapper),
		subs:       make(map[string]*memorySubscription),
		bufferSize: DefaultBufferSize,
		logger:     logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Subscribe adds a handler for a topic. The handler runs on its own
// goroutine and sees messages in publish order.
func (ps *MemoryPubSub) Subscribe(topic string, handler func(msg []byte)) (Subscription, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return nil, ErrPubSubClosed
	}

	if ps.topics[topic] == nil {
		ps.topics[topic] = make(map[string]*channelWrapper)
	}

	ps.nextID++
	subID := topic + "-" + strconv.Itoa(ps.nextID)

	chWrapper := newChannelWrapper(ps.bufferSize)
	ps.topics[topic][subID] = chWrapper

	ctx, cancel := context.WithCancel(context.Background())

	sub := &memorySubscription{
		id:        subID,
		topic:     topic,
		ps:        ps,
		chWrapper: chWrapper,
		cancel:    cancel,
	}
	ps.subs[subID] = sub

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ps.logger.Error("pubsub handler panicked",
					logging.String("topic", topic),
					logging.Any("panic", r),
				)
			}
		}()

		for {
			select {
			case msg, ok := <-chWrapper.ch:
				if !ok || sub.closed.Load() {
					return
				}
				handler(msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// Publish sends a message to all subscribers of a topic.
func (ps *MemoryPubSub) Publish(topic string, msg []byte) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed {
		return ErrPubSubClosed
	}

	subscribers := ps.topics[topic]
	if subscribers == nil {
		return nil
	}

	msgCopy := make([]byte, len(msg))
	copy(msgCopy, msg)

	for subID, chWrapper := range subscribers {
		if sub := ps.subs[subID]; sub != nil && sub.closed.Load() {
			continue
		}

		select {
		case chWrapper.ch <- msgCopy:
		default:
			ps.dropped.Add(1)
			ps.logger.Warn("subscriber queue full, dropping message",
				logging.String("topic", topic),
				logging.String("subscription", subID),
			)
		}
	}

	return nil
}

// Close shuts down the pubsub system.
func (ps *MemoryPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return nil
	}

	ps.closed = true

	for _, sub := range ps.subs {
		sub.closed.Store(true)
		sub.cancel()
	}
	for _, subscribers := range ps.topics {
		for _, chWrapper := range subscribers {
			chWrapper.close()
		}
	}

	ps.topics = make(map[string]map[string]*channelWrapper)
	ps.subs = make(map[string]*memorySubscription)

	return nil
}

// SubscriberCount returns the number of subscribers for a topic.
func (ps *MemoryPubSub) SubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.topics[topic])
}

// Dropped returns how many deliveries were dropped on full queues.
func (ps *MemoryPubSub) Dropped() int64 {
	return ps.dropped.Load()
}

type memorySubscription struct {
	id        string
	topic     string
	ps        *MemoryPubSub
	chWrapper *channelWrapper
	closed    atomic.Bool
	cancel    context.CancelFunc
}

// Unsubscribe removes this subscription. It is safe to call concurrently
// with Publish and Close, and more than once.
func (s *memorySubscription) Unsubscribe() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.cancel()

	s.ps.mu.Lock()
	defer s.ps.mu.Unlock()

	if subscribers := s.ps.topics[s.topic]; subscribers != nil {
		delete(subscribers, s.id)
		if len(subscribers) == 0 {
			delete(s.ps.topics, s.topic)
		}
	}

	delete(s.ps.subs, s.id)

	s.chWrapper.close()

	return nil
}

func (s *memorySubscription) Topic() string {
	return s.topic
}

// IsClosed returns true if the subscription is closed.
func (s *memorySubscription) IsClosed() bool {
	return s.closed.Load()
}
