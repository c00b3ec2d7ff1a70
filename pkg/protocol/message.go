// Package protocol defines the wire messages exchanged between the intake
// page and the live host.
package protocol

import "time"

// Client-to-server and server-to-client event names.
const (
	EventRender = "render"
	EventAlert  = "alert"
	EventError  = "error"
)

// Message is one frame on the live connection.
type Message struct {
	// Ref correlates a client event with the server reply.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic is the socket channel, "lv:<socket id>".
	Topic string `json:"topic,omitempty" msgpack:"topic,omitempty"`

	// Event is the client interaction ("next", "submit", ...) or the
	// server push ("render", "alert", ...).
	Event string `json:"event" msgpack:"event"`

	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp in unix milliseconds, set on server pushes.
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`
}

// NewMessage creates a server push stamped with the current time.
func NewMessage(topic, event string, payload map[string]any) *Message {
	return &Message{
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRef sets the correlation ref.
func (m *Message) WithRef(ref string) *Message {
	m.Ref = ref
	return m
}

// PayloadString returns a string payload value or "".
func (m *Message) PayloadString(key string) string {
	if v, ok := m.Payload[key].(string); ok {
		return v
	}
	return ""
}

// PayloadInt returns a numeric payload value as int. JSON decodes numbers
// as float64 and MessagePack as one of the integer types; both are handled.
func (m *Message) PayloadInt(key string) (int, bool) {
	return ToInt(m.Payload[key])
}

// ToInt converts decoded numeric values to int.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
