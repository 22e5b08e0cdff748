package core

import (
	"time"
)

// TimeoutConfig bounds how long the router waits on a component or a
// connection.
type TimeoutConfig struct {
	// ComponentMount bounds Mount, which includes fetching content.
	ComponentMount time.Duration

	// ComponentEvent bounds HandleEvent and HandleInfo. A reload event
	// fetches content, so this should not be much lower than ComponentMount.
	ComponentEvent time.Duration

	// WebSocketRead is the longest a connection may stay silent.
	WebSocketRead time.Duration

	// WebSocketWrite bounds one frame write.
	WebSocketWrite time.Duration

	// SessionIdle closes sessions with no activity for this long.
	SessionIdle time.Duration

	// GracefulShutdown is the timeout for graceful shutdown.
	GracefulShutdown time.Duration
}

// DefaultTimeoutConfig returns the production timeouts.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		ComponentMount:   10 * time.Second,
		ComponentEvent:   10 * time.Second,
		WebSocketRead:    90 * time.Second,
		WebSocketWrite:   10 * time.Second,
		SessionIdle:      30 * time.Minute,
		GracefulShutdown: 15 * time.Second,
	}
}

// Validate reports the first non-positive timeout.
func (c TimeoutConfig) Validate() error {
	checks := []struct {
		name string
		d    time.Duration
	}{
		{"component mount", c.ComponentMount},
		{"component event", c.ComponentEvent},
		{"websocket read", c.WebSocketRead},
		{"websocket write", c.WebSocketWrite},
		{"session idle", c.SessionIdle},
		{"graceful shutdown", c.GracefulShutdown},
	}
	for _, chk := range checks {
		if chk.d <= 0 {
			return configError(chk.name + " timeout must be positive")
		}
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }
