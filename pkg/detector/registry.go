package detector

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps plugin keys to detectors. Keys are case-insensitive: they are
// lower-cased on registration and on lookup.
//
// The registry is populated once at process startup and is read-only
// thereafter, which makes concurrent Resolve calls safe. Resolve never
// invokes a detector; it only returns the handle.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]Detector
}

// NewRegistry creates an empty detector registry.
func NewRegistry() *Registry {
	return &Registry{
		detectors: make(map[string]Detector),
	}
}

// Register adds a detector under the given plugin key. Registering an empty
// key, a nil detector, or a key that is already taken is an error.
func (r *Registry) Register(key string, d Detector) error {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return fmt.Errorf("plugin key cannot be empty")
	}
	if d == nil {
		return fmt.Errorf("detector for %q cannot be nil", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.detectors[normalized]; exists {
		return fmt.Errorf("plugin %q is already registered", normalized)
	}
	r.detectors[normalized] = d
	return nil
}

// Resolve returns the detector registered under the given key. The key is
// lower-cased before lookup. An unregistered key yields a *NotFoundError
// carrying the offending key.
func (r *Registry) Resolve(key string) (Detector, error) {
	normalized := strings.ToLower(strings.TrimSpace(key))

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.detectors[normalized]
	if !ok {
		return nil, &NotFoundError{Key: normalized}
	}
	return d, nil
}

// Names returns the registered plugin keys in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.detectors)
}
