package intake

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vetcare/intake/internal/metrics"
	"github.com/vetcare/intake/internal/submission"
	"github.com/vetcare/intake/pkg/core"
	"github.com/vetcare/intake/pkg/live"
	"github.com/vetcare/intake/pkg/logging"
	"github.com/vetcare/intake/pkg/protocol"
)

// Client events.
const (
	EventNext     = "next"
	EventPrevious = "previous"
	EventGoto     = "goto"
	EventChange   = "change"
	EventInput    = "input"
	EventSubmit   = "submit"
	EventReset    = "reset"
)

// submissionResult travels from the submit goroutine back into the
// component as an info message.
type submissionResult struct {
	Ticket  Ticket
	Message string
	Err     error
}

// Options wires a Component's collaborators.
type Options struct {
	Client  *submission.Client
	Logger  logging.Logger
	Metrics *metrics.IntakeMetrics
}

// Component is the live view of the intake wizard. One instance exists
// per connection.
type Component struct {
	core.BaseComponent

	wizard  *Wizard
	client  *submission.Client
	creds   submission.Credentials
	logger  logging.Logger
	metrics *metrics.IntakeMetrics

	// lives until Terminate; submissions run under it
	bg   context.Context
	stop context.CancelFunc
}

// NewComponent creates an unmounted wizard component.
func NewComponent(opts Options) *Component {
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger{}
	}
	if opts.Client == nil {
		opts.Client = submission.NewClient("http://localhost:5000")
	}
	return &Component{
		client:  opts.Client,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Factory returns a constructor suitable for live.NewHost.
func Factory(opts Options) live.Factory {
	return func() core.Component {
		return NewComponent(opts)
	}
}

func (c *Component) Name() string {
	return "patient-intake"
}

// Mount captures the anti-forgery token and cookies of the mounting
// request and starts a wizard on step 0.
func (c *Component) Mount(ctx context.Context, params core.Params, session core.Session) error {
	c.creds = submission.Credentials{CSRFToken: session.GetString(live.SessionCSRFToken)}
	if cookies, ok := session.Get(live.SessionCookies).([]*http.Cookie); ok {
		c.creds.Cookies = cookies
	}

	if socket := c.Socket(); socket != nil {
		c.logger = c.logger.With(logging.String("socket_id", socket.ID()))
	}
	c.wizard = NewWizard(WithLogger(c.logger))
	c.bg, c.stop = context.WithCancel(context.WithoutCancel(ctx))

	c.sync()
	return nil
}

// Terminate abandons any submission still running.
func (c *Component) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if c.stop != nil {
		c.stop()
	}
	return nil
}

// Wizard exposes the state machine, mainly for tests.
func (c *Component) Wizard() *Wizard {
	return c.wizard
}

func (c *Component) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	before := c.wizard.CurrentStep()

	var err error
	switch event {
	case EventNext:
		if !c.wizard.Next() && c.wizard.HasErrors(before) {
			c.metrics.ObserveValidationFailure(Steps[before].Name)
		}

	case EventPrevious:
		c.wizard.Previous()

	case EventGoto:
		step, ok := protocol.ToInt(payload["step"])
		if !ok {
			err = errors.New("goto: missing step")
			break
		}
		// only completed steps can be revisited directly
		if step <= before {
			c.wizard.GoToStep(step)
		}

	case EventChange, EventInput:
		field, _ := payload["field"].(string)
		value, ok := payload["value"].(string)
		if !ok {
			err = fmt.Errorf("%s %q: value must be a string", event, field)
			break
		}
		if serr := c.wizard.SetValue(field, value); serr != nil {
			err = fmt.Errorf("%s %q: %w", event, field, serr)
		}

	case EventSubmit:
		err = c.submit(ctx)

	case EventReset:
		c.wizard.Reset()

	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	if after := c.wizard.CurrentStep(); after != before {
		c.metrics.ObserveStep(Steps[after].Name)
	}
	c.flushAlert()
	c.sync()
	return err
}

// HandleInfo applies a submission result. Results for an abandoned
// attempt are dropped.
func (c *Component) HandleInfo(ctx context.Context, msg any) error {
	res, ok := msg.(submissionResult)
	if !ok {
		return nil
	}

	if err := c.finish(res); err != nil {
		return err
	}
	c.flushAlert()
	c.sync()
	return nil
}

func (c *Component) submit(ctx context.Context) error {
	ticket, payload, err := c.wizard.BeginSubmit()

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.metrics.ObserveValidationFailure(Steps[verr.Step].Name)
		return nil
	case errors.Is(err, ErrSubmissionInFlight), errors.Is(err, ErrAlreadySubmitted):
		c.logger.Debug("submit ignored", logging.String("reason", err.Error()))
		return nil
	case err != nil:
		return err
	}

	submitter := submission.Submitter{Client: c.client, Creds: c.creds}

	socket := c.Socket()
	if socket == nil {
		msg, err := submitter.SubmitCase(ctx, payload)
		return c.finish(submissionResult{Ticket: ticket, Message: msg, Err: err})
	}

	bg := c.bg
	go func() {
		msg, err := submitter.SubmitCase(bg, payload)
		socket.SendInfo(submissionResult{Ticket: ticket, Message: msg, Err: err})
	}()
	return nil
}

func (c *Component) finish(res submissionResult) error {
	err := c.wizard.FinishSubmit(res.Ticket, SubmitResult{Message: res.Message, Err: res.Err})
	if errors.Is(err, ErrStaleSubmission) || errors.Is(err, ErrNotSubmitting) {
		c.logger.Debug("dropping submission result", logging.Int("ticket", int(res.Ticket)))
		return nil
	}
	return err
}

// flushAlert pushes a newly raised alert so the page can show it modally.
func (c *Component) flushAlert() {
	msg, ok := c.wizard.TakeAlert()
	if !ok {
		return
	}
	socket := c.Socket()
	if socket == nil {
		return
	}
	if err := socket.Push(protocol.EventAlert, map[string]any{"message": msg}); err != nil {
		c.logger.Debug("alert push failed", logging.Err(err))
	}
}

func (c *Component) sync() {
	c.Assigns().SetAll(map[string]any{
		"step":            c.wizard.CurrentStep(),
		"status":          c.wizard.Status().String(),
		"alert":           c.wizard.Alert(),
		"submit_label":    c.wizard.SubmitLabel(),
		"submit_disabled": c.wizard.SubmitDisabled(),
	})
}
