// Package live hosts server-side components: it renders the first page,
// upgrades the follow-up websocket and runs one component per connection.
package live

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/google/uuid"

	"github.com/vetcare/intake/pkg/core"
	"github.com/vetcare/intake/pkg/logging"
	"github.com/vetcare/intake/pkg/protocol"
	"github.com/vetcare/intake/pkg/transport"
)

//go:embed layout.html
var layoutHTML string

var layout = template.Must(template.New("layout").Parse(layoutHTML))

// Factory creates a fresh component instance.
type Factory func() core.Component

// SessionObserver is told when live sessions open and close.
type SessionObserver interface {
	SessionOpened()
	SessionClosed()
}

// Host serves one component type.
type Host struct {
	factory   Factory
	title     string
	livePath  string
	scriptURL string
	origins   transport.OriginPolicy
	tconfig   *transport.Config
	tokens    TokenSource
	logger    logging.Logger
	observer  SessionObserver
}

// Option configures a Host.
type Option func(*Host)

func WithTitle(title string) Option {
	return func(h *Host) {
		h.title = title
	}
}

// WithLivePath sets the websocket URL the page connects back to.
func WithLivePath(path string) Option {
	return func(h *Host) {
		h.livePath = path
	}
}

// WithScript sets the URL of the binding script.
func WithScript(url string) Option {
	return func(h *Host) {
		h.scriptURL = url
	}
}

func WithOriginPolicy(p transport.OriginPolicy) Option {
	return func(h *Host) {
		h.origins = p
	}
}

func WithTransportConfig(c *transport.Config) Option {
	return func(h *Host) {
		h.tconfig = c
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(h *Host) {
		h.tokens = ts
	}
}

func WithLogger(l logging.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

func WithObserver(o SessionObserver) Option {
	return func(h *Host) {
		h.observer = o
	}
}

// NewHost creates a host for components built by factory.
func NewHost(factory Factory, opts ...Option) *Host {
	h := &Host{
		factory:   factory,
		title:     "Live",
		livePath:  "/live",
		scriptURL: "/static/intake.js",
		tconfig:   transport.DefaultConfig(),
		tokens:    DefaultTokenSource(),
		logger:    logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type page struct {
	Title     string
	LivePath  string
	ScriptURL string
	Body      template.HTML
}

// ServePage renders a freshly mounted component inside the page layout.
// Nothing is kept after the response; the websocket mounts its own instance.
func (h *Host) ServePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	comp := h.factory()

	if err := comp.Mount(ctx, paramsFrom(r), h.tokens.Session(r)); err != nil {
		h.logger.Error("mount failed", logging.String("component", comp.Name()), logging.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer comp.Terminate(ctx, core.TerminateNormal)

	var body bytes.Buffer
	if err := comp.Render(ctx).Render(ctx, &body); err != nil {
		h.logger.Error("render failed", logging.String("component", comp.Name()), logging.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var out bytes.Buffer
	err := layout.Execute(&out, page{
		Title:     h.title,
		LivePath:  h.livePath,
		ScriptURL: h.scriptURL,
		Body:      template.HTML(body.String()),
	})
	if err != nil {
		h.logger.Error("layout failed", logging.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(out.Bytes())
}

// ServeLive upgrades to a websocket and runs a component until the client
// goes away or the request context ends.
func (h *Host) ServeLive(w http.ResponseWriter, r *http.Request) {
	conn, err := transport.Accept(w, r, h.origins, h.tconfig)
	if err != nil {
		h.logger.Warn("websocket rejected",
			logging.String("origin", r.Header.Get("Origin")),
			logging.Err(err),
		)
		return
	}

	id := uuid.NewString()
	logger := h.logger.With(
		logging.String("socket_id", id),
		logging.String("codec", conn.Codec().Name()),
	)

	ctx, cancel := context.WithCancel(logging.ContextWithLogger(r.Context(), logger))
	defer cancel()

	s := &session{
		comp:   h.factory(),
		conn:   conn,
		infos:  make(chan any, 16),
		done:   ctx.Done(),
		logger: logger,
	}
	s.socket = core.NewSocket(id, conn, s.deliverInfo)
	defer s.socket.Close()

	if setter, ok := s.comp.(core.SocketSetter); ok {
		setter.SetSocket(s.socket)
	}

	if err := s.comp.Mount(ctx, paramsFrom(r), h.tokens.Session(r)); err != nil {
		logger.Error("mount failed", logging.Err(err))
		s.pushError("", err)
		return
	}

	if h.observer != nil {
		h.observer.SessionOpened()
		defer h.observer.SessionClosed()
	}
	logger.Info("session started", logging.String("component", s.comp.Name()))

	reason := s.run(ctx)

	if err := s.comp.Terminate(context.WithoutCancel(ctx), reason); err != nil {
		logger.Warn("terminate failed", logging.Err(err))
	}
	logger.Info("session ended", logging.String("reason", reason.String()))
}

func paramsFrom(r *http.Request) core.Params {
	params := core.Params{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

// session owns one mounted component. Only run's goroutine touches it, so
// client events and info messages are handled one at a time.
type session struct {
	comp   core.Component
	conn   *transport.WebSocket
	socket *core.Socket
	infos  chan any
	done   <-chan struct{}
	logger logging.Logger
}

func (s *session) deliverInfo(msg any) {
	select {
	case s.infos <- msg:
	case <-s.done:
	}
}

func (s *session) run(ctx context.Context) core.TerminateReason {
	events := make(chan *protocol.Message)
	go s.readLoop(ctx, events)

	s.render(ctx, "")

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return core.TerminateNormal
			}
			s.handleEvent(ctx, msg)

		case info := <-s.infos:
			if err := s.comp.HandleInfo(ctx, info); err != nil {
				s.logger.Warn("info handler failed", logging.Err(err))
			}
			s.render(ctx, "")

		case <-ctx.Done():
			return core.TerminateShutdown
		}
	}
}

func (s *session) readLoop(ctx context.Context, events chan<- *protocol.Message) {
	defer close(events)

	for {
		msg, err := s.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrInvalidMessage) {
				s.logger.Debug("dropping invalid frame", logging.Err(err))
				continue
			}
			return
		}

		select {
		case events <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) handleEvent(ctx context.Context, msg *protocol.Message) {
	payload := msg.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	if err := s.comp.HandleEvent(ctx, msg.Event, payload); err != nil {
		s.logger.Warn("event failed", logging.String("event", msg.Event), logging.Err(err))
		s.pushError(msg.Ref, err)
	}
	s.render(ctx, msg.Ref)
}

func (s *session) render(ctx context.Context, ref string) {
	var buf bytes.Buffer
	if err := s.comp.Render(ctx).Render(ctx, &buf); err != nil {
		s.logger.Error("render failed", logging.Err(err))
		s.pushError(ref, err)
		return
	}

	err := s.conn.Send(core.Message{
		Ref:     ref,
		Topic:   s.socket.Topic(),
		Event:   protocol.EventRender,
		Payload: map[string]any{"html": buf.String()},
	})
	if err != nil {
		s.logger.Debug("render push failed", logging.Err(err))
	}
}

func (s *session) pushError(ref string, err error) {
	_ = s.conn.Send(core.Message{
		Ref:     ref,
		Topic:   s.socket.Topic(),
		Event:   protocol.EventError,
		Payload: map[string]any{"reason": err.Error()},
	})
}
