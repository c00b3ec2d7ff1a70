package livetest

import (
	"sync"

	"github.com/vetcare/intake/pkg/core"
)

// Transport implements core.Transport and records every push.
type Transport struct {
	sent      []core.Message
	connected bool
	sendErr   error
	mu        sync.Mutex
}

// NewTransport creates a connected recording transport.
func NewTransport() *Transport {
	return &Transport{connected: true}
}

// Send records a sent message.
func (tr *Transport) Send(msg core.Message) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.sendErr != nil {
		return tr.sendErr
	}
	if !tr.connected {
		return core.ErrSocketClosed
	}
	tr.sent = append(tr.sent, msg)
	return nil
}

// Close marks the transport as disconnected.
func (tr *Transport) Close() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.connected = false
	return nil
}

func (tr *Transport) IsConnected() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.connected
}

// FailSends makes every later Send return err. Pass nil to recover.
func (tr *Transport) FailSends(err error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.sendErr = err
}

// Sent returns a copy of all recorded messages.
func (tr *Transport) Sent() []core.Message {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	out := make([]core.Message, len(tr.sent))
	copy(out, tr.sent)
	return out
}

// Reset drops the recorded messages.
func (tr *Transport) Reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.sent = nil
}
