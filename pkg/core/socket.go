package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Common socket errors.
var (
	ErrSocketClosed = errors.New("socket is closed")
	ErrSendFailed   = errors.New("failed to send message")
)

// Transport delivers messages to the connected client.
type Transport interface {
	Send(msg Message) error
	Close() error
	IsConnected() bool
}

// InfoFunc delivers a server-side message back into the owning component.
// Hosts serialise it with client events.
type InfoFunc func(msg any)

// Message is a server-to-client push.
type Message struct {
	Ref     string         `json:"ref,omitempty" msgpack:"ref,omitempty"`
	Topic   string         `json:"topic" msgpack:"topic"`
	Event   string         `json:"event" msgpack:"event"`
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Socket is a component's handle on its connection.
type Socket struct {
	id          string
	connectedAt time.Time
	transport   Transport
	info        InfoFunc
	closed      bool
	mu          sync.RWMutex
}

// NewSocket creates a socket bound to transport. info may be nil, in which
// case SendInfo drops messages.
func NewSocket(id string, transport Transport, info InfoFunc) *Socket {
	return &Socket{
		id:          id,
		connectedAt: time.Now(),
		transport:   transport,
		info:        info,
	}
}

func (s *Socket) ID() string {
	return s.id
}

func (s *Socket) ConnectedAt() time.Time {
	return s.connectedAt
}

// Topic is the channel name messages for this socket are addressed to.
func (s *Socket) Topic() string {
	return "lv:" + s.id
}

// IsConnected reports whether the socket can still deliver pushes.
func (s *Socket) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.transport != nil && s.transport.IsConnected()
}

// Push sends an event to the client.
func (s *Socket) Push(event string, payload map[string]any) error {
	s.mu.RLock()
	closed := s.closed
	transport := s.transport
	s.mu.RUnlock()

	if closed || transport == nil || !transport.IsConnected() {
		return ErrSocketClosed
	}

	msg := Message{Topic: s.Topic(), Event: event, Payload: payload}
	if err := transport.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// SendInfo hands msg to the host, which calls the component's HandleInfo.
// Safe to call from any goroutine.
func (s *Socket) SendInfo(msg any) {
	s.mu.RLock()
	closed := s.closed
	info := s.info
	s.mu.RUnlock()

	if closed || info == nil {
		return
	}
	info(msg)
}

// Close detaches the socket. Later pushes fail and infos are dropped.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	transport := s.transport
	s.mu.Unlock()

	if transport != nil {
		return transport.Close()
	}
	return nil
}
