// Package router serves live components over HTTP and WebSocket.
//
// A plain GET mounts a fresh component and writes its full HTML. A WebSocket
// upgrade on the same path starts a session: the client joins, sends events,
// and receives a full re-render whenever the component's assigns change.
// Each session handles its messages on a single goroutine.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gabrielmiguelok/cardgrid/pkg/core"
	"github.com/gabrielmiguelok/cardgrid/pkg/limits"
	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
	"github.com/gabrielmiguelok/cardgrid/pkg/metrics"
	"github.com/gabrielmiguelok/cardgrid/pkg/pool"
	"github.com/gabrielmiguelok/cardgrid/pkg/protocol"
	"github.com/gabrielmiguelok/cardgrid/pkg/pubsub"
	"github.com/gabrielmiguelok/cardgrid/pkg/transport"
)

// Common router errors.
var (
	ErrNilRenderer  = errors.New("component returned nil renderer")
	ErrNotJoined    = errors.New("session has not joined")
	ErrShuttingDown = errors.New("server is shutting down")
	ErrPanic        = errors.New("component panicked")
)

// ParamCodec selects the wire format of one connection, overriding the
// router default. Browsers send "json".
const ParamCodec = "codec"

// Factory creates a fresh component for each page view or connection.
type Factory func() core.Component

// Router dispatches live routes.
type Router struct {
	mux      chi.Router
	sessions *SessionManager

	codec           protocol.Codec
	pubsub          pubsub.PubSub
	logger          logging.Logger
	timeouts        core.TimeoutConfig
	transportConfig *transport.Config
	wsConfig        *transport.WebSocketConfig
	contentSub      pubsub.Subscription
	limiter         *limits.SessionLimiter
	eventRate       float64
	eventBurst      int
	metrics         *metrics.Metrics

	// mu orders session registration against Shutdown.
	mu      sync.Mutex
	closing atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Router.
type Option func(*Router)

// WithCodec sets the wire codec for live sessions.
func WithCodec(c protocol.Codec) Option {
	return func(r *Router) {
		if c != nil {
			r.codec = c
		}
	}
}

// WithPubSub forwards content-change notifications published on ps to
// every live session.
func WithPubSub(ps pubsub.PubSub) Option {
	return func(r *Router) {
		r.pubsub = ps
	}
}

// WithLogger sets the router logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimeouts sets component and connection timeouts.
func WithTimeouts(t core.TimeoutConfig) Option {
	return func(r *Router) {
		r.timeouts = t
	}
}

// WithWebSocketConfig sets the origin policy for upgrades.
func WithWebSocketConfig(c *transport.WebSocketConfig) Option {
	return func(r *Router) {
		if c != nil {
			r.wsConfig = c
		}
	}
}

// WithSessionLimit refuses upgrades with 503 once l has no free slot for
// the client address.
func WithSessionLimit(l *limits.SessionLimiter) Option {
	return func(r *Router) {
		r.limiter = l
	}
}

// WithEventRate limits each session to rate events per second with the
// given burst. Join, heartbeat and leave are not counted. A rate of zero
// disables the limit.
func WithEventRate(rate float64, burst int) Option {
	return func(r *Router) {
		r.eventRate = rate
		r.eventBurst = burst
	}
}

// WithMetrics records sessions, events and renders in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:      chi.NewRouter(),
		sessions: NewSessionManager(),
		codec:    protocol.NewJSONCodec(),
		logger:   logging.NopLogger{},
		timeouts: core.DefaultTimeoutConfig(),
		wsConfig: transport.DefaultWebSocketConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.transportConfig = transport.DefaultConfig()
	r.transportConfig.ReadTimeout = r.timeouts.WebSocketRead
	r.transportConfig.WriteTimeout = r.timeouts.WebSocketWrite

	if r.pubsub != nil {
		sub, err := pubsub.SubscribeContent(r.pubsub, r.contentChanged)
		if err != nil {
			r.logger.Warn("content subscription failed", logging.Err(err))
		} else {
			r.contentSub = sub
		}
	}
	return r
}

func (r *Router) contentChanged(ev pubsub.ContentChanged) {
	total := r.sessions.Count()
	if n := r.Broadcast(ev); n < total {
		r.logger.Warn("session info queue full, dropping content change",
			logging.Int("dropped", total-n),
		)
	}
}

func (r *Router) renderError(w http.ResponseWriter, req *http.Request, err error) {
	r.logger.Error("live render failed",
		logging.String("path", req.URL.Path),
		logging.Err(err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Live registers a live route.
func (r *Router) Live(path string, factory Factory) {
	r.mux.Get(path, func(w http.ResponseWriter, req *http.Request) {
		if isWebSocketRequest(req) {
			r.handleWebSocket(w, req, factory())
			return
		}
		r.renderPage(w, req, factory())
	})
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Sessions returns the session manager.
func (r *Router) Sessions() *SessionManager {
	return r.sessions
}

// Broadcast queues msg for every live session's HandleInfo. It returns how
// many sessions accepted it.
func (r *Router) Broadcast(msg any) int {
	n := 0
	for _, s := range r.sessions.All() {
		if s.Deliver(msg) {
			n++
		}
	}
	return n
}

// renderPage mounts a throwaway component and writes its HTML.
func (r *Router) renderPage(w http.ResponseWriter, req *http.Request, comp core.Component) {
	ctx, cancel := context.WithTimeout(req.Context(), r.timeouts.ComponentMount)
	defer cancel()

	params := extractParams(req)
	session := extractSession(req)
	defer comp.Terminate(context.Background(), core.TerminateNormal)

	err := r.guard(r.logger, "mount", func() error {
		return comp.Mount(ctx, params, session)
	})
	if err != nil {
		r.renderError(w, req, fmt.Errorf("mount %s: %w", comp.Name(), err))
		return
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := r.renderTo(ctx, r.logger, comp, buf); err != nil {
		r.renderError(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleWebSocket upgrades the request and starts a session loop.
func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request, comp core.Component) {
	if r.closing.Load() {
		http.Error(w, ErrShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}

	var ip string
	if r.limiter != nil {
		ip = limits.ClientIP(req)
		if err := r.limiter.Acquire(ip); err != nil {
			r.logger.Warn("live session refused",
				logging.String("ip", ip),
				logging.Err(err),
			)
			if r.metrics != nil {
				r.metrics.SessionsRejected.Inc(rejectReason(err))
			}
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	release := func() {
		if r.limiter != nil {
			r.limiter.Release(ip)
		}
	}

	codec := r.codec
	if name := req.URL.Query().Get(ParamCodec); name != "" {
		c, err := protocol.Lookup(name)
		if err != nil {
			release()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		codec = c
	}

	tr := transport.NewWebSocketTransport(r.transportConfig,
		transport.WithCodec(codec),
		transport.WithLogger(r.logger),
		transport.WithSecurity(r.wsConfig),
	)
	if err := tr.Upgrade(w, req); err != nil {
		release()
		r.logger.Warn("websocket upgrade failed", logging.Err(err))
		return
	}

	s := newLiveSession(comp, tr, extractParams(req), extractSession(req))
	s.release = release
	if r.eventRate > 0 {
		s.events = limits.NewBucket(r.eventRate, r.eventBurst)
	}
	if bc, ok := comp.(interface{ SetSocket(*core.Socket) }); ok {
		bc.SetSocket(s.Socket)
	}

	log := r.logger.With(
		logging.String("session", s.ID),
		logging.String("component", comp.Name()),
	)

	r.mu.Lock()
	if r.closing.Load() {
		r.mu.Unlock()
		s.terminate(core.TerminateShutdown)
		log.Info("session refused, router shutting down")
		return
	}
	r.sessions.Add(s)
	r.wg.Add(1)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SessionsActive.Inc()
		r.metrics.SessionsTotal.Inc()
	}
	log.Info("session connected", logging.Int("sessions", r.sessions.Count()))

	ctx := logging.ContextWithLogger(context.Background(), log)

	go func() {
		defer r.wg.Done()
		r.run(ctx, s)
	}()
}

// run is the per-session loop. Client messages and server-side
// notifications are handled in arrival order, one at a time.
func (r *Router) run(ctx context.Context, s *LiveSession) {
	log := logging.L(ctx)
	reason := core.TerminateNormal
	defer func() {
		r.sessions.Remove(s.ID)
		s.terminate(reason)
		if r.metrics != nil {
			r.metrics.SessionsActive.Dec()
		}
		log.Info("session closed", logging.String("reason", reason.String()))
	}()

	for {
		select {
		case msg := <-s.Transport.Receive():
			s.Socket.UpdateActivity()
			if !r.handleMessage(ctx, s, msg) {
				return
			}

		case info := <-s.info:
			r.handleInfo(ctx, s, info)

		case <-s.Transport.Done():
			if r.closing.Load() {
				reason = core.TerminateShutdown
			}
			return
		}
	}
}

// handleMessage processes one client message. It returns false when the
// session should end.
func (r *Router) handleMessage(ctx context.Context, s *LiveSession, msg *protocol.Message) bool {
	switch msg.Event {
	case protocol.EventJoin:
		r.handleJoin(ctx, s, msg)

	case protocol.EventHeartbeat:
		r.send(ctx, s, protocol.OkReply(msg.Ref, s.Topic(), nil))

	case protocol.EventLeave:
		r.send(ctx, s, protocol.OkReply(msg.Ref, s.Topic(), nil))
		return false

	default:
		if !s.IsMounted() {
			r.send(ctx, s, protocol.ErrorReply(msg.Ref, s.Topic(), ErrNotJoined.Error()))
			return true
		}

		if r.metrics != nil {
			r.metrics.Events.Inc(msg.Event)
		}
		if s.events != nil && !s.events.Allow() {
			if r.metrics != nil {
				r.metrics.EventErrors.Inc(msg.Event)
			}
			r.send(ctx, s, protocol.ErrorReply(msg.Ref, s.Topic(), limits.ErrRateLimitExceeded.Error()))
			return true
		}

		payload := msg.Payload
		if payload == nil {
			payload = make(map[string]any)
		}

		evCtx, cancel := context.WithTimeout(ctx, r.timeouts.ComponentEvent)
		err := r.guard(logging.L(ctx), "event", func() error {
			return s.Component.HandleEvent(evCtx, msg.Event, payload)
		})
		cancel()

		if err != nil {
			if r.metrics != nil {
				r.metrics.EventErrors.Inc(msg.Event)
			}
			logging.L(ctx).Debug("event rejected",
				logging.String("event", msg.Event),
				logging.Err(err),
			)
			r.send(ctx, s, protocol.ErrorReply(msg.Ref, s.Topic(), err.Error()))
			return true
		}

		if msg.Ref != "" {
			r.send(ctx, s, protocol.OkReply(msg.Ref, s.Topic(), nil))
		}
		r.pushRender(ctx, s)
	}
	return true
}

// handleJoin mounts the component on first join and replies with the full
// page.
func (r *Router) handleJoin(ctx context.Context, s *LiveSession, msg *protocol.Message) {
	log := logging.L(ctx)

	if !s.IsMounted() {
		mountCtx, cancel := context.WithTimeout(ctx, r.timeouts.ComponentMount)
		err := r.guard(log, "mount", func() error {
			return s.Component.Mount(mountCtx, s.Params, s.Session)
		})
		cancel()

		if err != nil {
			log.Error("mount failed", logging.Err(err))
			r.send(ctx, s, protocol.ErrorReply(msg.Ref, s.Topic(), err.Error()))
			return
		}
		s.setMounted()
	}

	html, err := r.renderString(ctx, s)
	if err != nil {
		log.Error("render failed", logging.Err(err))
		r.send(ctx, s, protocol.ErrorReply(msg.Ref, s.Topic(), err.Error()))
		return
	}

	r.send(ctx, s, protocol.OkReply(msg.Ref, s.Topic(), map[string]any{
		"html": html,
		"v":    s.nextVersion(),
	}))
}

func (r *Router) handleInfo(ctx context.Context, s *LiveSession, info any) {
	if !s.IsMounted() {
		return
	}

	infoCtx, cancel := context.WithTimeout(ctx, r.timeouts.ComponentEvent)
	err := r.guard(logging.L(ctx), "info", func() error {
		return s.Component.HandleInfo(infoCtx, info)
	})
	cancel()

	if err != nil {
		logging.L(ctx).Warn("info handling failed",
			logging.String("info", fmt.Sprintf("%T", info)),
			logging.Err(err),
		)
	}
	r.pushRender(ctx, s)
}

// pushRender sends a full render when the component's assigns changed.
// Components without assigns are always re-rendered.
func (r *Router) pushRender(ctx context.Context, s *LiveSession) {
	var tracker *core.ChangeTracker
	if ap, ok := s.Component.(interface{ Assigns() *core.Assigns }); ok {
		tracker = ap.Assigns().Tracker()
		if !tracker.HasChanges() {
			return
		}
	}

	html, err := r.renderString(ctx, s)
	if err != nil {
		logging.L(ctx).Error("render failed", logging.Err(err))
		return
	}
	r.send(ctx, s, protocol.RenderMessage(s.Topic(), html, s.nextVersion()))

	if tracker != nil {
		tracker.Reset()
	}
}

func (r *Router) renderString(ctx context.Context, s *LiveSession) (string, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if err := r.renderTo(ctx, logging.L(ctx), s.Component, buf); err != nil {
		return "", err
	}
	if ap, ok := s.Component.(interface{ Assigns() *core.Assigns }); ok {
		ap.Assigns().Tracker().Reset()
	}
	return buf.String(), nil
}

func (r *Router) send(ctx context.Context, s *LiveSession, msg *protocol.Message) {
	if err := s.Transport.Send(msg); err != nil {
		logging.L(ctx).Debug("send failed",
			logging.String("event", msg.Event),
			logging.Err(err),
		)
	}
}

// Sweep closes sessions idle for longer than the session idle timeout. It
// runs until ctx is done.
func (r *Router) Sweep(ctx context.Context) {
	interval := r.timeouts.SessionIdle / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, s := range r.sessions.Idle(r.timeouts.SessionIdle) {
				r.logger.Info("closing idle session", logging.String("session", s.ID))
				s.terminate(core.TerminateTimeout)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops accepting connections, terminates every session and waits
// for their loops to finish or ctx to expire.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closing.Store(true)
	sessions := r.sessions.All()
	sub := r.contentSub
	r.contentSub = nil
	r.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	for _, s := range sessions {
		s.terminate(core.TerminateShutdown)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Router) renderTo(ctx context.Context, log logging.Logger, comp core.Component, buf *bytes.Buffer) error {
	start := time.Now()
	err := r.guard(log, "render", func() error {
		renderer := comp.Render(ctx)
		if renderer == nil {
			return ErrNilRenderer
		}
		return renderer.Render(ctx, buf)
	})
	if err == nil {
		r.metrics.ObserveRender(time.Since(start), buf.Len())
	}
	return err
}

// guard runs a component callback, turning a panic into an error wrapping
// ErrPanic. The session survives it.
func (r *Router) guard(log logging.Logger, stage string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.metrics != nil {
				r.metrics.Panics.Inc()
			}
			log.Error("component panic",
				logging.String("stage", stage),
				logging.Any("panic", rec),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return fn()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, limits.ErrTooManyFromIP):
		return "per_ip"
	case errors.Is(err, limits.ErrServerFull):
		return "full"
	default:
		return "other"
	}
}

// extractParams copies the first value of each query parameter.
func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// extractSession exposes request cookies to the component.
func extractSession(req *http.Request) core.Session {
	session := make(core.Session)
	for _, cookie := range req.Cookies() {
		session["cookie:"+cookie.Name] = cookie.Value
	}
	return session
}

// isWebSocketRequest checks if this is a WebSocket upgrade request.
func isWebSocketRequest(req *http.Request) bool {
	return strings.Contains(strings.ToLower(req.Header.Get("Upgrade")), "websocket")
}
