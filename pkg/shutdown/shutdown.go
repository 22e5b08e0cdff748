// Package shutdown runs ordered cleanup hooks when the process is asked to
// stop.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
)

// Common shutdown errors.
var (
	ErrShutdownTimeout = errors.New("shutdown timed out")
	ErrAlreadyClosed   = errors.New("shutdown handler already closed")
)

// Hook priorities. Lower runs earlier.
const (
	// PriorityHTTP stops accepting requests.
	PriorityHTTP = 100

	// PriorityLive terminates live sessions.
	PriorityLive = 200

	// PriorityWatcher stops content watching.
	PriorityWatcher = 300

	// PriorityPubSub closes the notification bus.
	PriorityPubSub = 400
)

// Hook represents a shutdown hook.
type Hook struct {
	// Name identifies the hook for logging.
	Name string

	// Priority determines execution order (lower = earlier).
	Priority int

	Fn func(ctx context.Context) error
}

// Config configures the shutdown handler.
type Config struct {
	// Timeout bounds the whole shutdown.
	Timeout time.Duration

	// Signals are the OS signals to listen for.
	Signals []os.Signal

	Logger logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
		Signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
		Logger:  logging.NopLogger{},
	}
}

// Handler manages graceful shutdown.
type Handler struct {
	config *Config
	hooks  []Hook
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

// NewHandler creates a new shutdown handler.
func NewHandler(config *Config) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = logging.NopLogger{}
	}

	return &Handler{
		config: config,
		done:   make(chan struct{}),
	}
}

// Register adds a shutdown hook.
func (h *Handler) Register(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// RegisterFunc registers fn as a hook.
func (h *Handler) RegisterFunc(name string, priority int, fn func(ctx context.Context) error) {
	h.Register(Hook{
		Name:     name,
		Priority: priority,
		Fn:       fn,
	})
}

// CloserHook wraps anything with a Close method.
func CloserHook(name string, priority int, closer interface{ Close() error }) Hook {
	return Hook{
		Name:     name,
		Priority: priority,
		Fn: func(ctx context.Context) error {
			return closer.Close()
		},
	}
}

// Wait blocks until a signal arrives or ctx is done, then runs the hooks.
// It returns nil without running hooks if Shutdown was already called.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.config.Signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		h.config.Logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case <-ctx.Done():
		h.config.Logger.Info("shutdown requested")
	case <-h.done:
		return nil
	}

	return h.Shutdown()
}

// Shutdown runs every hook in priority order. Hooks of equal priority keep
// their registration order. A failing hook does not stop later ones.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrAlreadyClosed
	}
	h.closed = true
	close(h.done)

	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Priority < hooks[j].Priority
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	log := h.config.Logger
	var errs []error
	for _, hook := range hooks {
		start := time.Now()
		err := hook.Fn(ctx)

		if err != nil {
			log.Error("shutdown hook failed",
				logging.String("hook", hook.Name),
				logging.Duration("duration", time.Since(start)),
				logging.Err(err),
			)
			errs = append(errs, err)
		} else {
			log.Debug("shutdown hook done",
				logging.String("hook", hook.Name),
				logging.Duration("duration", time.Since(start)),
			)
		}

		if ctx.Err() != nil {
			return errors.Join(append(errs, ErrShutdownTimeout)...)
		}
	}

	return errors.Join(errs...)
}

// Done returns a channel closed once shutdown has begun.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
