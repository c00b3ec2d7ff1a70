// Package core provides the component abstractions hosted by the live layer.
package core

import (
	"context"
	"io"
)

// Component is a stateful server-side view. The live host mounts one
// instance per connection and calls every method from a single goroutine
// at a time.
type Component interface {
	// Name returns the component type identifier.
	Name() string

	// Mount is called once when the component is attached to a connection.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the current HTML representation.
	Render(ctx context.Context) Renderer

	// HandleEvent processes a client interaction.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// HandleInfo processes a server-side message, typically the result of
	// background work started from HandleEvent.
	HandleInfo(ctx context.Context, msg any) error

	// Terminate is called when the connection goes away.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Renderer writes HTML.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// SocketSetter is implemented by components that want their socket.
type SocketSetter interface {
	SetSocket(s *Socket)
}

// Params contains URL query parameters of the mounting request.
type Params map[string]string

// Get returns a parameter value or empty string.
func (p Params) Get(key string) string {
	return p[key]
}

// GetDefault returns a parameter value or def when absent.
func (p Params) GetDefault(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Session carries request-scoped data captured when the component mounts,
// such as the anti-forgery token and forwarded cookies.
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
	TerminateNormal TerminateReason = iota
	TerminateShutdown
	TerminateError
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	default:
		return "unknown"
	}
}

// BaseComponent provides no-op defaults. Embed it and override what you need.
type BaseComponent struct {
	socket  *Socket
	assigns *Assigns
}

// SetSocket is called by the host before Mount.
func (bc *BaseComponent) SetSocket(s *Socket) {
	bc.socket = s
}

// Socket returns the component's socket, nil before the host attached one.
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

func (bc *BaseComponent) Name() string {
	return ""
}

func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

func (bc *BaseComponent) HandleInfo(ctx context.Context, msg any) error {
	return nil
}

func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}
