package forms

import (
	"errors"
	"strings"
)

// ErrRequired is returned by RequiredValidator for blank values.
var ErrRequired = errors.New("required")

// RequiredMessage is the inline message shown next to a blank required field.
const RequiredMessage = "This field is required"

// Validator validates a field value.
type Validator interface {
	Validate(value string) error
	Message() string
}

// RequiredValidator rejects values that are empty after trimming whitespace.
type RequiredValidator struct{}

func (RequiredValidator) Validate(value string) error {
	if strings.TrimSpace(value) == "" {
		return ErrRequired
	}
	return nil
}

func (RequiredValidator) Message() string {
	return RequiredMessage
}

// Validate runs the field's validators in order and returns the message of
// the first one that fails, or "" when the value is acceptable.
func (f Field) Validate(value string) string {
	for _, v := range f.Validators {
		if err := v.Validate(value); err != nil {
			return v.Message()
		}
	}
	return ""
}
