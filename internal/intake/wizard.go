// Package intake implements the veterinary patient-intake wizard: step
// navigation, required-field gating, the review summary and the single
// case submission.
package intake

import (
	"context"

	"github.com/vetcare/intake/pkg/forms"
	"github.com/vetcare/intake/pkg/logging"
)

// Ticket identifies one submission attempt. Results carrying an older
// ticket are discarded.
type Ticket uint64

// SubmitResult is what came back from the backend for a ticket.
type SubmitResult struct {
	Message string
	Err     error
}

// Submitter delivers a payload to the clinic backend and returns the
// backend's success message.
type Submitter interface {
	SubmitCase(ctx context.Context, payload map[string]string) (string, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, payload map[string]string) (string, error)

func (f SubmitterFunc) SubmitCase(ctx context.Context, payload map[string]string) (string, error) {
	return f(ctx, payload)
}

// Wizard is the intake state machine. It is not safe for concurrent use;
// the live host serialises every call for a connection.
type Wizard struct {
	form   *forms.Form
	steps  []Step
	values *forms.Values

	current  int
	status   Status
	progress []ProgressState

	// inline errors by field ID, at most one per field
	errors map[string]string
	review map[string]string

	alert        string
	alertPending bool

	submitLabel    string
	submitDisabled bool
	showReview     bool
	showSuccess    bool
	successMessage string

	ticket Ticket
	logger logging.Logger
}

// WizardOption configures a Wizard.
type WizardOption func(*Wizard)

// WithLogger sets the wizard's logger.
func WithLogger(l logging.Logger) WizardOption {
	return func(w *Wizard) {
		w.logger = l
	}
}

// NewWizard creates a wizard over the intake catalog, showing step 0.
func NewWizard(opts ...WizardOption) *Wizard {
	w := &Wizard{
		form:        CaseForm,
		steps:       Steps,
		values:      forms.NewValues(),
		progress:    make([]ProgressState, len(Steps)),
		errors:      make(map[string]string),
		review:      make(map[string]string),
		submitLabel: SubmitLabelIdle,
		showReview:  true,
		logger:      logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.GoToStep(0)
	return w
}

// GoToStep makes target the only active panel and re-marks the progress
// indicator. Out-of-range targets are ignored, as is any navigation while
// a submission is pending or after it succeeded. Entering the review step
// refreshes the review summary.
func (w *Wizard) GoToStep(target int) {
	if target < 0 || target >= len(w.steps) {
		return
	}
	if w.status == StatusSubmitting || w.status == StatusSubmitted {
		return
	}

	for i := range w.progress {
		switch {
		case i < target:
			w.progress[i] = ProgressCompleted
		case i == target:
			w.progress[i] = ProgressActive
		default:
			w.progress[i] = ProgressPending
		}
	}

	if target == len(w.steps)-1 {
		w.UpdateReviewSection()
		w.status = StatusReviewing
	} else {
		w.status = StatusEditing
	}

	w.alert, w.alertPending = "", false

	w.logger.Debug("step changed",
		logging.Int("from", w.current),
		logging.Int("to", target),
	)
	w.current = target
}

// CheckStep validates the required fields of step, marking each blank one
// with the inline message and clearing the marking of the others.
func (w *Wizard) CheckStep(step int) ValidationResult {
	result := ValidationResult{Step: step}
	if step < 0 || step >= len(w.steps) {
		return result
	}

	for _, id := range w.steps[step].Fields {
		field, ok := w.form.Field(id)
		if !ok || !field.Required {
			continue
		}
		if msg := field.Validate(w.values.Get(id)); msg != "" {
			w.errors[id] = msg
			result.Invalid = append(result.Invalid, id)
		} else {
			delete(w.errors, id)
		}
	}

	result.Valid = len(result.Invalid) == 0
	if !result.Valid {
		w.logger.Info("step incomplete",
			logging.Int("step", step),
			logging.Any("fields", result.Invalid),
		)
	}
	return result
}

// ValidateStep reports whether every required field of step is filled.
func (w *Wizard) ValidateStep(step int) bool {
	return w.CheckStep(step).Valid
}

// Next advances one step when the current step is complete.
func (w *Wizard) Next() bool {
	if !w.ValidateStep(w.current) {
		return false
	}
	before := w.current
	w.GoToStep(w.current + 1)
	return w.current != before
}

// Previous goes back one step without validating. Earlier steps stay
// completed; the step left behind and every later one return to pending.
func (w *Wizard) Previous() {
	w.GoToStep(w.current - 1)
}

// UpdateReviewSection rebuilds the review summary from the current values.
func (w *Wizard) UpdateReviewSection() {
	for _, field := range w.form.Fields {
		w.review[field.ID] = field.Display(w.values.Get(field.ID))
	}
}

// Payload maps the current values onto the backend's case keys.
func (w *Wizard) Payload() map[string]string {
	return w.form.Payload(w.values)
}

// BeginSubmit re-validates the current step and, when it passes, puts the
// wizard into the busy state and returns the payload to send. A failed
// validation raises the incomplete alert and returns a *ValidationError.
func (w *Wizard) BeginSubmit() (Ticket, map[string]string, error) {
	switch w.status {
	case StatusSubmitting:
		return 0, nil, ErrSubmissionInFlight
	case StatusSubmitted:
		return 0, nil, ErrAlreadySubmitted
	}

	if result := w.CheckStep(w.current); !result.Valid {
		w.raise(AlertIncomplete)
		return 0, nil, result.Err()
	}

	payload := w.Payload()

	w.alert, w.alertPending = "", false
	w.submitDisabled = true
	w.submitLabel = SubmitLabelBusy
	w.status = StatusSubmitting
	w.ticket++

	w.logger.Info("submitting case", logging.Int("ticket", int(w.ticket)))
	return w.ticket, payload, nil
}

// FinishSubmit applies the backend's answer for ticket.
func (w *Wizard) FinishSubmit(ticket Ticket, result SubmitResult) error {
	if w.status != StatusSubmitting {
		return ErrNotSubmitting
	}
	if ticket != w.ticket {
		return ErrStaleSubmission
	}

	if result.Err != nil {
		w.raise(failureAlert(result.Err))
		w.submitDisabled = false
		w.submitLabel = SubmitLabelIdle
		w.status = StatusSubmissionFailed
		w.logger.Warn("case submission failed", logging.Err(result.Err))
		return nil
	}

	w.showReview = false
	w.showSuccess = true
	w.successMessage = result.Message
	w.status = StatusSubmitted
	w.logger.Info("case submitted", logging.String("message", result.Message))
	return nil
}

// Submit runs a whole submission synchronously through s. It returns the
// validation or transport error, if any, after the wizard state has been
// updated accordingly.
func (w *Wizard) Submit(ctx context.Context, s Submitter) error {
	ticket, payload, err := w.BeginSubmit()
	if err != nil {
		return err
	}

	msg, err := s.SubmitCase(ctx, payload)
	if ferr := w.FinishSubmit(ticket, SubmitResult{Message: msg, Err: err}); ferr != nil {
		return ferr
	}
	return err
}

// Reset clears every value and marking and returns to step 0. A
// submission still in flight is abandoned; its result will be ignored.
func (w *Wizard) Reset() {
	w.values.Clear()
	w.showSuccess = false
	w.showReview = true
	w.successMessage = ""
	clear(w.errors)
	clear(w.review)
	w.alert = ""
	w.alertPending = false
	w.submitLabel = SubmitLabelIdle
	w.submitDisabled = false
	w.ticket++
	w.status = StatusEditing
	w.current = 0
	w.GoToStep(0)
	w.logger.Debug("wizard reset")
}

// SetValue records the raw value of a field.
func (w *Wizard) SetValue(id, value string) error {
	if _, ok := w.form.Field(id); !ok {
		return ErrUnknownField
	}
	w.values.Set(id, value)
	return nil
}

// Value returns the raw value of a field.
func (w *Wizard) Value(id string) string {
	return w.values.Get(id)
}

func (w *Wizard) raise(msg string) {
	w.alert = msg
	w.alertPending = true
}

// TakeAlert returns an alert raised since the last call.
func (w *Wizard) TakeAlert() (string, bool) {
	if !w.alertPending {
		return "", false
	}
	w.alertPending = false
	return w.alert, true
}

func (w *Wizard) CurrentStep() int { return w.current }
func (w *Wizard) Status() Status { return w.status }
func (w *Wizard) Alert() string { return w.alert }
func (w *Wizard) SubmitLabel() string { return w.submitLabel }
func (w *Wizard) SubmitDisabled() bool { return w.submitDisabled }
func (w *Wizard) ReviewVisible() bool { return w.showReview }
func (w *Wizard) SuccessVisible() bool { return w.showSuccess }
func (w *Wizard) SuccessMessage() string { return w.successMessage }

// ActivePanel returns the index of the one visible step panel.
func (w *Wizard) ActivePanel() int { return w.current }

// Progress returns the marking of progress node i.
func (w *Wizard) Progress(i int) ProgressState {
	if i < 0 || i >= len(w.progress) {
		return ProgressPending
	}
	return w.progress[i]
}

// FieldError returns the inline message attached to a field, "" if none.
func (w *Wizard) FieldError(id string) string {
	return w.errors[id]
}

// Invalid reports whether a field is currently marked invalid.
func (w *Wizard) Invalid(id string) bool {
	_, ok := w.errors[id]
	return ok
}

// HasErrors reports whether any field of step carries an inline error.
func (w *Wizard) HasErrors(step int) bool {
	if step < 0 || step >= len(w.steps) {
		return false
	}
	for _, id := range w.steps[step].Fields {
		if w.Invalid(id) {
			return true
		}
	}
	return false
}

// ReviewText returns the summary text of review-<id>.
func (w *Wizard) ReviewText(id string) string {
	return w.review[id]
}
