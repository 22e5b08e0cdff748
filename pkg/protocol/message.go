// Package protocol defines the messages exchanged between the live client
// and the server.
package protocol

import (
	"time"
)

// Client-to-server events.
const (
	EventJoin      = "join"
	EventLeave     = "leave"
	EventHeartbeat = "heartbeat"
	EventCardClick = "card_click"
	EventViewport  = "viewport"
	EventReload    = "reload"
)

// Server-to-client events.
const (
	EventReply  = "reply"
	EventRender = "render"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is one frame on the live connection.
type Message struct {
	// Ref correlates a reply with its request.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic is the socket topic, "lv:<socket-id>".
	Topic string `json:"topic" msgpack:"topic"`

	Event string `json:"event" msgpack:"event"`

	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp is Unix milliseconds.
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`
}

// NewMessage creates a new message stamped with the current time.
func NewMessage(topic, event string, payload map[string]any) *Message {
	return &Message{
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRef adds a reference ID to the message.
func (m *Message) WithRef(ref string) *Message {
	m.Ref = ref
	return m
}

// GetPayloadInt retrieves an integer value from the payload.
func (m *Message) GetPayloadInt(key string) (int, bool) {
	return Int(m.Payload, key)
}

// Int reads an integer from a decoded payload. JSON numbers arrive as
// float64 and msgpack numbers as sized integers; both are accepted.
// Fractional values are rejected.
func Int(payload map[string]any, key string) (int, bool) {
	switch v := payload[key].(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		if float32(int(v)) != v {
			return 0, false
		}
		return int(v), true
	case float64:
		if float64(int(v)) != v {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// OkReply answers ref with a successful response.
func OkReply(ref, topic string, response map[string]any) *Message {
	return NewMessage(topic, EventReply, map[string]any{
		"status":   StatusOK,
		"response": response,
	}).WithRef(ref)
}

// ErrorReply answers ref with a failure reason.
func ErrorReply(ref, topic, reason string) *Message {
	return NewMessage(topic, EventReply, map[string]any{
		"status":   StatusError,
		"response": map[string]any{"reason": reason},
	}).WithRef(ref)
}

// RenderMessage carries a full page render.
func RenderMessage(topic, html string, version uint64) *Message {
	return NewMessage(topic, EventRender, map[string]any{
		"html": html,
		"v":    version,
	})
}
