// Package transport carries live frames between the intake page and the
// host over a websocket.
package transport

import (
	"errors"
	"time"
)

// Common transport errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendTimeout      = errors.New("send timeout")
)

// Config holds connection tuning.
type Config struct {
	// WriteTimeout bounds a single frame write and a blocked Send.
	WriteTimeout time.Duration

	// PingInterval is how often heartbeats are sent. Zero disables them.
	PingInterval time.Duration

	// MaxMessageSize is the largest frame accepted from the client.
	MaxMessageSize int64

	// SendBufferSize is the number of frames queued for the writer.
	SendBufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBufferSize: 64,
	}
}
