package forms

import "sync"

// Values is the set of current field values keyed by field ID. It is the
// single source of truth for what the user has typed; nothing else caches it.
type Values struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewValues creates an empty value bag.
func NewValues() *Values {
	return &Values{data: make(map[string]string)}
}

// Get returns the value of id, "" when unset.
func (v *Values) Get(id string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data[id]
}

// Set stores the raw value of id. No trimming or conversion happens here.
func (v *Values) Set(id, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[id] = value
}

// Clear drops every value.
func (v *Values) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = make(map[string]string)
}

// Snapshot returns a copy of all values.
func (v *Values) Snapshot() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make(map[string]string, len(v.data))
	for k, val := range v.data {
		out[k] = val
	}
	return out
}

// Form is an ordered field catalog with an index by ID.
type Form struct {
	Name   string
	Fields []Field
	byID   map[string]int
}

// NewForm builds a form from fields. Field IDs must be unique; a duplicate
// ID replaces the earlier entry in the index.
func NewForm(name string, fields ...Field) *Form {
	f := &Form{
		Name:   name,
		Fields: fields,
		byID:   make(map[string]int, len(fields)),
	}
	for i, field := range fields {
		f.byID[field.ID] = i
	}
	return f
}

// Field returns the field with the given ID.
func (f *Form) Field(id string) (Field, bool) {
	i, ok := f.byID[id]
	if !ok {
		return Field{}, false
	}
	return f.Fields[i], true
}

// Payload maps every field's submission key to its raw value.
func (f *Form) Payload(values *Values) map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, field := range f.Fields {
		out[field.Key] = values.Get(field.ID)
	}
	return out
}
