// Package livetest mounts components without a browser or websocket so
// their events, info messages and rendered HTML can be asserted directly.
package livetest

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetcare/intake/pkg/core"
)

// View is a mounted component under test.
type View struct {
	t         testing.TB
	ctx       context.Context
	component core.Component
	transport *Transport
	socket    *core.Socket
	infos     chan any
	params    core.Params
	session   core.Session
	rendered  string
}

// MountOption configures the test mount.
type MountOption func(*View)

// WithParams sets mount parameters.
func WithParams(params core.Params) MountOption {
	return func(v *View) {
		v.params = params
	}
}

// WithSession sets session data.
func WithSession(session core.Session) MountOption {
	return func(v *View) {
		v.session = session
	}
}

// WithContext sets the context passed to every component call.
func WithContext(ctx context.Context) MountOption {
	return func(v *View) {
		v.ctx = ctx
	}
}

// Mount attaches a recording socket to comp, mounts it and renders once.
// The component is terminated when the test ends.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *View {
	t.Helper()

	v := &View{
		t:         t,
		ctx:       context.Background(),
		component: comp,
		transport: NewTransport(),
		infos:     make(chan any, 16),
		params:    core.Params{},
		session:   core.Session{},
	}
	for _, opt := range opts {
		opt(v)
	}

	v.socket = core.NewSocket(uuid.NewString(), v.transport, func(msg any) {
		v.infos <- msg
	})
	if setter, ok := comp.(core.SocketSetter); ok {
		setter.SetSocket(v.socket)
	}

	require.NoError(t, comp.Mount(v.ctx, v.params, v.session), "mount")
	v.render()

	t.Cleanup(func() {
		_ = comp.Terminate(context.Background(), core.TerminateNormal)
		_ = v.socket.Close()
	})
	return v
}

// Event delivers a client event and re-renders. The handler's error is
// returned so tests can assert on rejected events.
func (v *View) Event(name string, payload map[string]any) error {
	v.t.Helper()

	if payload == nil {
		payload = map[string]any{}
	}
	err := v.component.HandleEvent(v.ctx, name, payload)
	v.render()
	return err
}

// MustEvent is Event that fails the test on error.
func (v *View) MustEvent(name string, payload map[string]any) *View {
	v.t.Helper()
	require.NoError(v.t, v.Event(name, payload), "event %s", name)
	return v
}

// AwaitInfo waits for the next message sent through Socket.SendInfo,
// delivers it to HandleInfo and re-renders.
func (v *View) AwaitInfo(timeout time.Duration) any {
	v.t.Helper()

	select {
	case msg := <-v.infos:
		require.NoError(v.t, v.component.HandleInfo(v.ctx, msg), "handle info")
		v.render()
		return msg
	case <-time.After(timeout):
		v.t.Fatalf("no info message within %s", timeout)
		return nil
	}
}

// PendingInfos reports how many info messages are queued.
func (v *View) PendingInfos() int {
	return len(v.infos)
}

// Rendered returns the HTML of the last render.
func (v *View) Rendered() string {
	return v.rendered
}

// AssertText asserts the rendered HTML contains text.
func (v *View) AssertText(text string) {
	v.t.Helper()
	assert.Contains(v.t, v.rendered, text)
}

// AssertNoText asserts the rendered HTML does not contain text.
func (v *View) AssertNoText(text string) {
	v.t.Helper()
	assert.NotContains(v.t, v.rendered, text)
}

// AssertAssign asserts an assign value. The component must expose its
// assigns through an Assigns() method.
func (v *View) AssertAssign(key string, want any) {
	v.t.Helper()

	holder, ok := v.component.(interface{ Assigns() *core.Assigns })
	require.True(v.t, ok, "component has no assigns")
	assert.Equal(v.t, want, holder.Assigns().Get(key), "assign %s", key)
}

// Pushed returns the messages pushed to the client with the given event.
func (v *View) Pushed(event string) []core.Message {
	var out []core.Message
	for _, msg := range v.transport.Sent() {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

// Transport exposes the recording transport.
func (v *View) Transport() *Transport {
	return v.transport
}

// Socket returns the socket attached to the component.
func (v *View) Socket() *core.Socket {
	return v.socket
}

func (v *View) render() {
	v.t.Helper()

	var buf bytes.Buffer
	require.NoError(v.t, v.component.Render(v.ctx).Render(v.ctx, &buf), "render")
	v.rendered = buf.String()
}

// Count returns the number of occurrences of substr in the rendered HTML.
func (v *View) Count(substr string) int {
	return strings.Count(v.rendered, substr)
}
