package core

import "sync"

// Assigns is a thread-safe key/value view of component state. Components
// publish the values tests and templates care about; the host never diffs it.
type Assigns struct {
	data map[string]any
	mu   sync.RWMutex
}

// NewAssigns creates an empty store.
func NewAssigns() *Assigns {
	return &Assigns{data: make(map[string]any)}
}

func (a *Assigns) Get(key string) any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data[key]
}

func (a *Assigns) GetString(key string) string {
	if v, ok := a.Get(key).(string); ok {
		return v
	}
	return ""
}

func (a *Assigns) GetInt(key string) int {
	if v, ok := a.Get(key).(int); ok {
		return v
	}
	return 0
}

func (a *Assigns) GetBool(key string) bool {
	if v, ok := a.Get(key).(bool); ok {
		return v
	}
	return false
}

func (a *Assigns) Set(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[key] = value
}

// SetAll sets multiple values at once.
func (a *Assigns) SetAll(values map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range values {
		a.data[k] = v
	}
}

// Data returns a shallow copy of all values.
func (a *Assigns) Data() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]any, len(a.data))
	for k, v := range a.data {
		out[k] = v
	}
	return out
}
