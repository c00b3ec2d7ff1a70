package intake

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSubmissionInFlight is returned when a submission is started while
	// another one has not finished.
	ErrSubmissionInFlight = errors.New("submission already in flight")

	// ErrAlreadySubmitted is returned when submitting a case that was accepted.
	ErrAlreadySubmitted = errors.New("case already submitted")

	// ErrNotSubmitting is returned by FinishSubmit when no submission is pending.
	ErrNotSubmitting = errors.New("no submission in flight")

	// ErrStaleSubmission is returned by FinishSubmit for a ticket issued
	// before the last reset or submission.
	ErrStaleSubmission = errors.New("stale submission result")

	ErrUnknownField = errors.New("unknown field")
	ErrUnknownEvent = errors.New("unknown event")
)

// Alert texts.
const (
	AlertIncomplete     = "Please complete all required fields before submitting."
	AlertSubmitFailed   = "Submission failed"
	SubmitLabelIdle     = "CONFIRM"
	SubmitLabelBusy     = "Processing..."
	submitFailurePrefix = AlertSubmitFailed + ": "
)

// ValidationError lists the required fields of a step that are blank.
type ValidationError struct {
	Step   int
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d: required fields missing: %s", e.Step, strings.Join(e.Fields, ", "))
}

// ValidationResult is the outcome of checking one step.
type ValidationResult struct {
	Step    int
	Valid   bool
	Invalid []string
}

// Err returns a *ValidationError when the step is invalid, nil otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Step: r.Step, Fields: r.Invalid}
}

// failureAlert builds the alert shown when the backend rejects a case.
func failureAlert(err error) string {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = AlertSubmitFailed
	}
	return submitFailurePrefix + msg
}
