package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
	"github.com/gabrielmiguelok/cardgrid/pkg/protocol"
)

// WebSocket security errors
var (
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// WebSocketConfig configures WebSocket security settings.
type WebSocketConfig struct {
	// AllowedOrigins lists extra origins for WebSocket connections. If
	// empty and InsecureDevMode is false, only same-origin connections are
	// allowed.
	AllowedOrigins []string

	// InsecureDevMode disables origin validation. Development only.
	InsecureDevMode bool
}

// DefaultWebSocketConfig returns secure default configuration.
func DefaultWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		AllowedOrigins:  nil,
		InsecureDevMode: false,
	}
}

// originPatterns converts the allowed origins into host patterns for
// websocket.AcceptOptions.
func (c *WebSocketConfig) originPatterns() []string {
	if c == nil {
		return nil
	}
	patterns := make([]string, 0, len(c.AllowedOrigins))
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" {
			patterns = append(patterns, "*")
			continue
		}
		if u, err := url.Parse(allowed); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, allowed)
	}
	return patterns
}

// WebSocketTransport implements Transport over a WebSocket connection.
type WebSocketTransport struct {
	*BaseTransport
	conn     *websocket.Conn
	url      string
	wsConfig *WebSocketConfig
	codec    protocol.Codec
	logger   logging.Logger
	mu       sync.Mutex
}

// WebSocketOption configures a WebSocketTransport.
type WebSocketOption func(*WebSocketTransport)

// WithCodec sets the frame codec. JSON is the default.
func WithCodec(c protocol.Codec) WebSocketOption {
	return func(t *WebSocketTransport) {
		if c != nil {
			t.codec = c
		}
	}
}

// WithLogger sets the transport logger.
func WithLogger(l logging.Logger) WebSocketOption {
	return func(t *WebSocketTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithSecurity sets the origin policy.
func WithSecurity(c *WebSocketConfig) WebSocketOption {
	return func(t *WebSocketTransport) {
		if c != nil {
			t.wsConfig = c
		}
	}
}

// NewWebSocketTransport creates a new WebSocket transport.
func NewWebSocketTransport(config *Config, opts ...WebSocketOption) *WebSocketTransport {
	t := &WebSocketTransport{
		BaseTransport: NewBaseTransport(config),
		wsConfig:      DefaultWebSocketConfig(),
		codec:         protocol.NewJSONCodec(),
		logger:        logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Codec returns the frame codec.
func (t *WebSocketTransport) Codec() protocol.Codec {
	return t.codec
}

// isOriginAllowed checks if the origin is allowed for WebSocket connections.
func (t *WebSocketTransport) isOriginAllowed(origin string, requestHost string) bool {
	if t.wsConfig != nil && t.wsConfig.InsecureDevMode {
		return true
	}

	// Browsers always send Origin; its absence means a non-browser client.
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if originURL.Host == requestHost {
		return true
	}

	if t.wsConfig != nil {
		for _, allowed := range t.wsConfig.AllowedOrigins {
			if allowed == "*" || allowed == origin {
				return true
			}
			if allowedURL, err := url.Parse(allowed); err == nil && allowedURL.Host != "" {
				if allowedURL.Host == originURL.Host {
					return true
				}
			}
		}
	}

	return false
}

// SetURL sets the WebSocket URL for client-side connections.
func (t *WebSocketTransport) SetURL(url string) {
	t.url = url
}

// Connect dials the configured URL (client side).
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	if t.url == "" {
		return fmt.Errorf("websocket URL not set")
	}

	conn, _, err := websocket.Dial(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}

	t.start(conn)
	return nil
}

// Upgrade upgrades an HTTP connection to WebSocket (server side). The
// origin is checked first; a rejected origin gets a 403.
func (t *WebSocketTransport) Upgrade(w http.ResponseWriter, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if !t.isOriginAllowed(origin, r.Host) {
		t.logger.Warn("websocket origin rejected",
			logging.String("origin", origin),
			logging.String("host", r.Host),
		)
		http.Error(w, "Forbidden: Origin not allowed", http.StatusForbidden)
		return ErrOriginNotAllowed
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: t.wsConfig != nil && t.wsConfig.InsecureDevMode,
		OriginPatterns:     t.wsConfig.originPatterns(),
	})
	if err != nil {
		return fmt.Errorf("accept websocket: %w", err)
	}

	t.start(conn)
	return nil
}

func (t *WebSocketTransport) start(conn *websocket.Conn) {
	conn.SetReadLimit(t.config.MaxMessageSize)

	t.mu.Lock()
	t.conn = conn
	t.SetConnected(true)
	t.mu.Unlock()

	go t.readLoop()
	go t.writeLoop()
	go t.pingLoop()
}

// Send queues a message for the peer.
func (t *WebSocketTransport) Send(msg *protocol.Message) error {
	return t.enqueue(msg)
}

// Close closes the WebSocket connection.
func (t *WebSocketTransport) Close() error {
	t.BaseTransport.Close()

	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "closing")
	}
	return nil
}

func (t *WebSocketTransport) currentConn() *websocket.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// readLoop decodes inbound frames onto the receive channel.
func (t *WebSocketTransport) readLoop() {
	defer t.Close()

	for {
		conn := t.currentConn()
		if conn == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), t.config.ReadTimeout)
		_, data, err := conn.Read(ctx)
		cancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				t.logger.Debug("websocket read ended", logging.Err(err))
			}
			return
		}

		msg, err := t.codec.Decode(data)
		if err != nil {
			t.logger.Debug("dropping undecodable frame",
				logging.Err(err),
				logging.Int("size", len(data)),
			)
			continue
		}

		select {
		case t.recvCh <- msg:
		case <-t.closeCh:
			return
		default:
			t.logger.Warn("receive buffer full, dropping message",
				logging.String("event", msg.Event),
			)
		}
	}
}

// writeLoop encodes queued messages onto the connection.
func (t *WebSocketTransport) writeLoop() {
	typ := websocket.MessageText
	if t.codec.Binary() {
		typ = websocket.MessageBinary
	}

	for {
		select {
		case msg := <-t.sendCh:
			conn := t.currentConn()
			if conn == nil {
				return
			}

			data, err := t.codec.Encode(msg)
			if err != nil {
				t.logger.Error("encode message",
					logging.String("event", msg.Event),
					logging.Err(err),
				)
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
			err = conn.Write(ctx, typ, data)
			cancel()

			if err != nil {
				t.logger.Debug("websocket write failed", logging.Err(err))
				t.Close()
				return
			}

		case <-t.closeCh:
			return
		}
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (t *WebSocketTransport) pingLoop() {
	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn := t.currentConn()
			if conn == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				t.logger.Debug("websocket ping failed", logging.Err(err))
			}
		case <-t.closeCh:
			return
		}
	}
}
