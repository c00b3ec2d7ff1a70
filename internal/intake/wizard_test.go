package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetcare/intake/pkg/forms"
)

// fillRequired sets every required field of the catalog.
func fillRequired(t *testing.T, w *Wizard) {
	t.Helper()
	values := map[string]string{
		"ownerName":    "Ada Lovelace",
		"ownerPhone":   "0712345678",
		"ownerEmail":   "ada@example.com",
		"ownerAddress": "Nairobi",
		"petName":      "Rex",
		"petSpecies":   "dog",
		"petGender":    "male",
	}
	for id, v := range values {
		require.NoError(t, w.SetValue(id, v))
	}
}

// walkToReview fills the required fields and presses Next until review.
func walkToReview(t *testing.T, w *Wizard) {
	t.Helper()
	fillRequired(t, w)
	for w.CurrentStep() < ReviewStep {
		require.True(t, w.Next(), "next from step %d", w.CurrentStep())
	}
}

func assertOnlyActive(t *testing.T, w *Wizard, k int) {
	t.Helper()
	assert.Equal(t, k, w.ActivePanel())
	for i := range Steps {
		switch {
		case i < k:
			assert.Equal(t, ProgressCompleted, w.Progress(i), "node %d", i)
		case i == k:
			assert.Equal(t, ProgressActive, w.Progress(i), "node %d", i)
		default:
			assert.Equal(t, ProgressPending, w.Progress(i), "node %d", i)
		}
	}
}

func TestNewWizard_StartsOnFirstStep(t *testing.T) {
	w := NewWizard()

	assert.Equal(t, 0, w.CurrentStep())
	assert.Equal(t, StatusEditing, w.Status())
	assert.Equal(t, SubmitLabelIdle, w.SubmitLabel())
	assert.False(t, w.SubmitDisabled())
	assert.True(t, w.ReviewVisible())
	assert.False(t, w.SuccessVisible())
	assertOnlyActive(t, w, 0)
}

func TestGoToStep_OutOfRangeIsNoop(t *testing.T) {
	w := NewWizard()
	w.GoToStep(2)

	for _, s := range []int{-1, -100, len(Steps), len(Steps) + 7} {
		w.GoToStep(s)
		assert.Equal(t, 2, w.CurrentStep(), "target %d", s)
		assertOnlyActive(t, w, 2)
	}
}

func TestGoToStep_MarksProgress(t *testing.T) {
	w := NewWizard()
	for k := range Steps {
		w.GoToStep(k)
		assertOnlyActive(t, w, k)
	}
	for k := len(Steps) - 1; k >= 0; k-- {
		w.GoToStep(k)
		assertOnlyActive(t, w, k)
	}
}

func TestGoToStep_ReviewSetsStatus(t *testing.T) {
	w := NewWizard()
	w.GoToStep(ReviewStep)
	assert.Equal(t, StatusReviewing, w.Status())

	w.GoToStep(1)
	assert.Equal(t, StatusEditing, w.Status())
}

func TestValidateStep(t *testing.T) {
	w := NewWizard()

	assert.False(t, w.ValidateStep(StepOwner))
	for _, id := range Steps[StepOwner].Fields {
		assert.Equal(t, forms.RequiredMessage, w.FieldError(id), id)
		assert.True(t, w.Invalid(id))
	}

	require.NoError(t, w.SetValue("ownerName", "Ada"))
	require.NoError(t, w.SetValue("ownerPhone", "   "))
	result := w.CheckStep(StepOwner)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"ownerPhone", "ownerEmail", "ownerAddress"}, result.Invalid)
	assert.Empty(t, w.FieldError("ownerName"), "filled field is cleared")

	var verr *ValidationError
	require.ErrorAs(t, result.Err(), &verr)
	assert.Equal(t, StepOwner, verr.Step)

	fillRequired(t, w)
	assert.True(t, w.ValidateStep(StepOwner))
	assert.False(t, w.HasErrors(StepOwner))
	assert.NoError(t, w.CheckStep(StepOwner).Err())
}

func TestValidateStep_Idempotent(t *testing.T) {
	w := NewWizard()
	fillRequired(t, w)
	require.NoError(t, w.SetValue("ownerEmail", ""))

	w.ValidateStep(StepOwner)
	w.ValidateStep(StepOwner)

	assert.Equal(t, forms.RequiredMessage, w.FieldError("ownerEmail"))
	assert.Len(t, w.errors, 1)
}

func TestValidateStep_OutOfRange(t *testing.T) {
	w := NewWizard()
	assert.False(t, w.ValidateStep(-1))
	assert.False(t, w.ValidateStep(len(Steps)))
}

func TestValidateStep_StepsWithoutRequiredFields(t *testing.T) {
	w := NewWizard()
	assert.True(t, w.ValidateStep(StepVitals))
	assert.True(t, w.ValidateStep(StepClinical))
	assert.True(t, w.ValidateStep(StepReview))
}

func TestNext_BlockedByEmptyRequiredFields(t *testing.T) {
	w := NewWizard()

	assert.False(t, w.Next())
	assert.Equal(t, 0, w.CurrentStep())
	assert.True(t, w.Invalid("ownerName"))
	assert.True(t, w.Invalid("ownerPhone"))

	_, raised := w.TakeAlert()
	assert.False(t, raised, "next never alerts")
}

func TestNext_AdvancesAndStopsAtReview(t *testing.T) {
	w := NewWizard()
	walkToReview(t, w)

	assert.Equal(t, ReviewStep, w.CurrentStep())
	assert.False(t, w.Next(), "no step after review")
	assert.Equal(t, ReviewStep, w.CurrentStep())
}

func TestPrevious(t *testing.T) {
	w := NewWizard()
	w.Previous()
	assert.Equal(t, 0, w.CurrentStep())

	walkToReview(t, w)
	w.Previous()
	assert.Equal(t, StepClinical, w.CurrentStep())
	assertOnlyActive(t, w, StepClinical)

	// nodes left behind are reset, not left completed
	w.Previous()
	assertOnlyActive(t, w, StepVitals)
	assert.Equal(t, ProgressPending, w.Progress(StepClinical))
	assert.Equal(t, ProgressPending, w.Progress(ReviewStep))
}

func TestPrevious_DoesNotRevalidate(t *testing.T) {
	w := NewWizard()
	fillRequired(t, w)
	require.True(t, w.Next())

	// the owner step becomes invalid again, but node 0 stays completed
	// until the user walks back onto it
	require.NoError(t, w.SetValue("ownerName", ""))
	require.True(t, w.Next())
	assert.Equal(t, ProgressCompleted, w.Progress(StepOwner))

	w.Previous()
	assert.Equal(t, StepPatient, w.CurrentStep())
	assert.Equal(t, ProgressCompleted, w.Progress(StepOwner))
	assert.False(t, w.Invalid("ownerName"))
}

func TestUpdateReviewSection(t *testing.T) {
	w := NewWizard()
	walkToReview(t, w)

	assert.Equal(t, "Rex", w.ReviewText("petName"))
	assert.Equal(t, "Ada Lovelace", w.ReviewText("ownerName"))
	assert.Equal(t, "Dog", w.ReviewText("petSpecies"))
	assert.Equal(t, "Male", w.ReviewText("petGender"))
	assert.Equal(t, forms.NotAvailable, w.ReviewText("petBreed"))
	assert.Equal(t, forms.NotAvailable, w.ReviewText("neutering_status"))
	assert.Equal(t, forms.NotAvailable, w.ReviewText("followUp"))

	w.GoToStep(StepVitals)
	require.NoError(t, w.SetValue("weight", "12.5"))
	require.NoError(t, w.SetValue("neutering_status", "Spayed"))
	w.GoToStep(ReviewStep)
	assert.Equal(t, "12.5", w.ReviewText("weight"))
	assert.Equal(t, "Spayed", w.ReviewText("neutering_status"))
}

func TestUpdateReviewSection_UnselectedRequiredSelect(t *testing.T) {
	w := NewWizard()
	w.GoToStep(ReviewStep)
	assert.Equal(t, "Select species", w.ReviewText("petSpecies"))
	assert.Equal(t, "", w.ReviewText("ownerName"))
}

func TestPayload_AllKeysRawValues(t *testing.T) {
	w := NewWizard()
	fillRequired(t, w)
	require.NoError(t, w.SetValue("weight", " 12kg "))

	payload := w.Payload()
	want := []string{
		"client_name", "client_phone_number", "client_email", "client_location",
		"patient_name", "species", "breed", "age", "gender", "weight",
		"temperature", "heart_rate", "crt", "mm", "neutering_status",
		"physicalExamNotes", "presenting_complaint", "diagnosis",
		"treatment_given", "prescriptions", "follow_up_required",
	}
	assert.Len(t, payload, len(want))
	for _, k := range want {
		assert.Contains(t, payload, k)
	}
	assert.Equal(t, " 12kg ", payload["weight"], "values are not trimmed")
	assert.Equal(t, "dog", payload["species"])
	assert.Equal(t, "", payload["breed"])
}

func TestSetValue_UnknownField(t *testing.T) {
	w := NewWizard()
	assert.ErrorIs(t, w.SetValue("favouriteToy", "ball"), ErrUnknownField)
	assert.Empty(t, w.Value("favouriteToy"))
}

func TestBeginSubmit_InvalidRaisesAlert(t *testing.T) {
	w := NewWizard()

	_, _, err := w.BeginSubmit()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepOwner, verr.Step)

	msg, ok := w.TakeAlert()
	require.True(t, ok)
	assert.Equal(t, AlertIncomplete, msg)
	assert.Equal(t, StatusEditing, w.Status())
	assert.False(t, w.SubmitDisabled())

	_, ok = w.TakeAlert()
	assert.False(t, ok, "alert is delivered once")
}

func TestSubmit_Success(t *testing.T) {
	w := NewWizard()
	walkToReview(t, w)

	var got map[string]string
	err := w.Submit(context.Background(), SubmitterFunc(func(ctx context.Context, p map[string]string) (string, error) {
		assert.Equal(t, StatusSubmitting, w.Status())
		assert.True(t, w.SubmitDisabled())
		assert.Equal(t, SubmitLabelBusy, w.SubmitLabel())
		got = p
		return "Case added successfully", nil
	}))
	require.NoError(t, err)

	assert.Equal(t, "Rex", got["patient_name"])
	assert.Equal(t, StatusSubmitted, w.Status())
	assert.False(t, w.ReviewVisible())
	assert.True(t, w.SuccessVisible())
	assert.True(t, w.SubmitDisabled())
	assert.Equal(t, "Case added successfully", w.SuccessMessage())

	_, _, err = w.BeginSubmit()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	w.GoToStep(0)
	assert.Equal(t, ReviewStep, w.CurrentStep(), "navigation is locked once submitted")
}

func TestSubmit_FailureAllowsRetry(t *testing.T) {
	w := NewWizard()
	walkToReview(t, w)

	backendErr := errors.New("Duplicate record")
	err := w.Submit(context.Background(), SubmitterFunc(func(context.Context, map[string]string) (string, error) {
		return "", backendErr
	}))
	assert.ErrorIs(t, err, backendErr)

	msg, ok := w.TakeAlert()
	require.True(t, ok)
	assert.Equal(t, "Submission failed: Duplicate record", msg)
	assert.Equal(t, StatusSubmissionFailed, w.Status())
	assert.False(t, w.SubmitDisabled())
	assert.Equal(t, SubmitLabelIdle, w.SubmitLabel())
	assert.True(t, w.ReviewVisible())
	assert.False(t, w.SuccessVisible())

	err = w.Submit(context.Background(), SubmitterFunc(func(context.Context, map[string]string) (string, error) {
		return "ok", nil
	}))
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, w.Status())
}

func TestAlertClearedByNavigation(t *testing.T) {
	w := NewWizard()
	walkToReview(t, w)

	_ = w.Submit(context.Background(), SubmitterFunc(func(context.Context, map[string]string) (string, error) {
		return "", errors.New("Duplicate record")
	}))
	require.Equal(t, "Submission failed: Duplicate record", w.Alert())

	w.Previous()
	assert.Empty(t, w.Alert())
	_, pending := w.TakeAlert()
	assert.False(t, pending)
}

func TestSubmit_EmptyErrorMessageUsesFallback(t *testing.T) {
	w := NewWizard()
	walkToReview(t, w)

	_ = w.Submit(context.Background(), SubmitterFunc(func(context.Context, map[string]string) (string, error) {
		return "", errors.New("")
	}))
	msg, _ := w.TakeAlert()
	assert.Equal(t, "Submission failed: Submission failed", msg)
}

func TestBeginSubmit_RejectsSecondInFlight(t *testing.T) {
	w := NewWizard()
	walkToReview(t, w)

	ticket, payload, err := w.BeginSubmit()
	require.NoError(t, err)
	assert.NotEmpty(t, payload)

	_, _, err = w.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	w.Previous()
	assert.Equal(t, ReviewStep, w.CurrentStep(), "navigation is locked while submitting")

	require.NoError(t, w.FinishSubmit(ticket, SubmitResult{Message: "ok"}))
	assert.ErrorIs(t, w.FinishSubmit(ticket, SubmitResult{}), ErrNotSubmitting)
}

func TestFinishSubmit_StaleTicketAfterReset(t *testing.T) {
	w := NewWizard()
	walkToReview(t, w)

	stale, _, err := w.BeginSubmit()
	require.NoError(t, err)
	w.Reset()

	walkToReview(t, w)
	fresh, _, err := w.BeginSubmit()
	require.NoError(t, err)

	assert.ErrorIs(t, w.FinishSubmit(stale, SubmitResult{Message: "late"}), ErrStaleSubmission)
	assert.Equal(t, StatusSubmitting, w.Status())

	require.NoError(t, w.FinishSubmit(fresh, SubmitResult{Message: "ok"}))
	assert.Equal(t, "ok", w.SuccessMessage())
}

func TestReset(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, w *Wizard)
	}{
		{"fresh", func(t *testing.T, w *Wizard) {}},
		{"with errors", func(t *testing.T, w *Wizard) {
			w.Next()
			w.GoToStep(StepPatient)
			w.ValidateStep(StepPatient)
		}},
		{"submitting", func(t *testing.T, w *Wizard) {
			walkToReview(t, w)
			_, _, err := w.BeginSubmit()
			require.NoError(t, err)
		}},
		{"submitted", func(t *testing.T, w *Wizard) {
			walkToReview(t, w)
			require.NoError(t, w.Submit(context.Background(), SubmitterFunc(
				func(context.Context, map[string]string) (string, error) { return "ok", nil })))
		}},
		{"failed", func(t *testing.T, w *Wizard) {
			walkToReview(t, w)
			_ = w.Submit(context.Background(), SubmitterFunc(
				func(context.Context, map[string]string) (string, error) { return "", errors.New("nope") }))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWizard()
			tt.setup(t, w)

			w.Reset()

			assert.Equal(t, 0, w.CurrentStep())
			assertOnlyActive(t, w, 0)
			assert.Equal(t, StatusEditing, w.Status())
			assert.True(t, w.ReviewVisible())
			assert.False(t, w.SuccessVisible())
			assert.Empty(t, w.errors)
			assert.Empty(t, w.Alert())
			assert.Equal(t, SubmitLabelIdle, w.SubmitLabel())
			assert.False(t, w.SubmitDisabled())
			assert.Empty(t, w.Value("ownerName"))
			_, pending := w.TakeAlert()
			assert.False(t, pending)
		})
	}
}
