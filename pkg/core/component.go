// Package core provides the abstractions shared by live components and the
// router that drives them.
package core

import (
	"context"
	"io"
	"strconv"
)

// Component is a stateful server-side view. The router calls its methods
// from a single goroutine per session.
type Component interface {
	// Name identifies the component type in logs.
	Name() string

	// Mount is called once when the component is connected.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the current HTML representation of the component.
	Render(ctx context.Context) Renderer

	// HandleEvent processes a client event such as a click.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// HandleInfo processes messages that do not come from the client, such
	// as pubsub notifications.
	HandleInfo(ctx context.Context, msg any) error

	// Terminate is called when the component is being destroyed.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Renderer writes HTML.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc is an adapter to allow ordinary functions to be used as Renderers.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Params contains query parameters from the connection.
type Params map[string]string

// Get returns a parameter value or empty string if not found.
func (p Params) Get(key string) string {
	return p[key]
}

// GetDefault returns a parameter value or the default if not found.
func (p Params) GetDefault(key, defaultValue string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return defaultValue
}

// GetInt parses a parameter as an integer. ok is false when the parameter
// is absent or not a number.
func (p Params) GetInt(key string) (int, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Session contains data passed from the HTTP handler.
type Session map[string]any

// Get returns a session value.
func (s Session) Get(key string) any {
	return s[key]
}

// GetString returns a session value as string.
func (s Session) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// TerminateReason indicates why a component is being terminated.
type TerminateReason int

const (
	// TerminateNormal indicates clean disconnection.
	TerminateNormal TerminateReason = iota
	// TerminateShutdown indicates server shutdown.
	TerminateShutdown
	// TerminateError indicates termination due to an error.
	TerminateError
	// TerminateTimeout indicates termination due to inactivity.
	TerminateTimeout
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	case TerminateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// BaseComponent provides default implementations for Component methods.
// Embed it to avoid implementing unused methods.
type BaseComponent struct {
	socket  *Socket
	assigns *Assigns
}

// SetSocket sets the socket for the component (called by the router).
func (bc *BaseComponent) SetSocket(s *Socket) {
	bc.socket = s
}

// Socket returns the component's socket, or nil outside a live session.
func (bc *BaseComponent) Socket() *Socket {
	return bc.socket
}

// Assigns returns the component's assigns store.
func (bc *BaseComponent) Assigns() *Assigns {
	if bc.assigns == nil {
		bc.assigns = NewAssigns()
	}
	return bc.assigns
}

// Name returns an empty string (override in your component).
func (bc *BaseComponent) Name() string {
	return ""
}

// Mount does nothing by default.
func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

// HandleEvent does nothing by default.
func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

// HandleInfo does nothing by default.
func (bc *BaseComponent) HandleInfo(ctx context.Context, msg any) error {
	return nil
}

// Terminate does nothing by default.
func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}
