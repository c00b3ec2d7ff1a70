// Package forms describes form fields, their validators and the value bag
// a form collects.
package forms

// FieldType identifies the input control of a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTel      FieldType = "tel"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
)

// NotAvailable is what summaries show for an optional field left blank.
const NotAvailable = "N/A"

// Field describes one input control.
type Field struct {
	// ID is the control identifier, e.g. "petName".
	ID string

	// Key is the name the value travels under when submitted, e.g. "patient_name".
	Key string

	Type        FieldType
	Label       string
	Placeholder string

	// Required fields must be non-empty after trimming.
	Required bool

	// Optional fields render NotAvailable in summaries when blank.
	Optional bool

	// Options are the choices of a select field. An option with an empty
	// Value acts as the prompt shown when nothing is selected.
	Options []Option

	Validators []Validator
}

// Option is one select choice.
type Option struct {
	Value string
	Label string
}

// FieldOption configures a field.
type FieldOption func(*Field)

// NewField creates a field. key defaults to id.
func NewField(id, key string, fieldType FieldType, label string, opts ...FieldOption) Field {
	if key == "" {
		key = id
	}
	f := Field{
		ID:    id,
		Key:   key,
		Type:  fieldType,
		Label: label,
	}
	for _, opt := range opts {
		opt(&f)
	}
	if f.Required {
		f.Validators = append([]Validator{RequiredValidator{}}, f.Validators...)
	}
	return f
}

// WithRequired marks the field as required.
func WithRequired() FieldOption {
	return func(f *Field) {
		f.Required = true
	}
}

// WithOptional makes blank values render as NotAvailable.
func WithOptional() FieldOption {
	return func(f *Field) {
		f.Optional = true
	}
}

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(p string) FieldOption {
	return func(f *Field) {
		f.Placeholder = p
	}
}

// WithOptions sets the select choices.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = options
	}
}

// WithValidator appends a validator.
func WithValidator(v Validator) FieldOption {
	return func(f *Field) {
		f.Validators = append(f.Validators, v)
	}
}

// OptionLabel returns the display label for value. For select fields with
// no matching option the raw value is returned.
func (f Field) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// Display renders value the way read-only summaries show it: select
// fields by option label, blank optional fields as NotAvailable.
func (f Field) Display(value string) string {
	if value == "" && f.Optional {
		return NotAvailable
	}
	if f.Type == FieldSelect {
		return f.OptionLabel(value)
	}
	return value
}
