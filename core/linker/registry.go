package linker

import (
	"sort"
	"sync"
)

// Registry is a set of names per reference target. It is safe for
// concurrent use.
type Registry struct {
	mu sync.RWMutex

	// names by target
	names map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]map[string]struct{})}
}

// FromMap builds a registry from target -> names, as found in static
// configuration.
func FromMap(m map[string][]string) *Registry {
	r := NewRegistry()
	for target, names := range m {
		r.Add(target, names...)
	}
	return r
}

// Add registers names under target. Empty names are ignored.
func (r *Registry) Add(target string, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.names[target]
	if set == nil {
		set = make(map[string]struct{})
		r.names[target] = set
	}
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
}

// Resolve reports whether value is registered under target. A nil
// registry resolves nothing.
func (r *Registry) Resolve(target, value string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.names[target][value]
	return ok
}

// Names returns the names registered under target, sorted.
func (r *Registry) Names(target string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names[target]))
	for n := range r.names[target] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Targets returns every target with at least one name, sorted.
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]string, 0, len(r.names))
	for t, set := range r.names {
		if len(set) > 0 {
			targets = append(targets, t)
		}
	}
	sort.Strings(targets)
	return targets
}

// Merge adds every name from other into r.
func (r *Registry) Merge(other *Registry) {
	if other == nil || other == r {
		return
	}
	for _, target := range other.Targets() {
		r.Add(target, other.Names(target)...)
	}
}

// Map returns a copy of the registry contents.
func (r *Registry) Map() map[string][]string {
	out := make(map[string][]string)
	for _, target := range r.Targets() {
		out[target] = r.Names(target)
	}
	return out
}
