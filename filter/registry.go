// Package filter holds the filter registry and compiles parsed expressions into data
// functions.
//
// A filter receives the value produced so far, the literal arguments written in the
// template and a Call describing where it runs (the element, its index and the number of
// siblings). Filters registered as tween filters return a Tween, a function of transition
// progress, instead of a final value.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/livefir/livebind/internal/expr"
	"golang.org/x/net/html"
)

// ErrInvalidFilterName is returned when registering a name no expression could reference
var ErrInvalidFilterName = errors.New("invalid filter name")

// Call is the context a filter runs in
type Call struct {
	// Node is the element whose binding is being evaluated
	Node *html.Node
	// Index is the position of Node among the elements bound together
	Index int
	// Length is the number of elements bound together
	Length int
}

// Func is a filter. A filter reports a failure by panicking; evaluation turns the panic
// into an error and the binding is skipped.
type Func func(c Call, value any, args ...any) any

// Tween is the result of a tween filter: the value at transition progress t in [0,1]
type Tween func(t float64) any

type entry struct {
	fn    Func
	tween bool
}

// Registry maps filter names to functions. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// NewDefaultRegistry creates a registry holding the built-in filters
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	Defaults(r)
	return r
}

// Register registers a filter under name, replacing an existing one. A nil fn removes the
// filter.
func (r *Registry) Register(name string, fn Func) error {
	return r.register(name, fn, false)
}

// RegisterTween registers a filter whose result is a Tween. A nil fn removes the filter.
func (r *Registry) RegisterTween(name string, fn Func) error {
	return r.register(name, fn, true)
}

func (r *Registry) register(name string, fn Func, tween bool) error {
	if !expr.IsIdentifier(name) {
		return fmt.Errorf("failed to register filter %q: %w", name, ErrInvalidFilterName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.entries, name)
		return nil
	}
	r.entries[name] = entry{fn: fn, tween: tween}
	return nil
}

// Lookup answers the filter registered under name
func (r *Registry) Lookup(name string) (Func, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.fn, ok
}

// IsTween reports whether name is registered as a tween filter
func (r *Registry) IsTween(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name].tween
}

// Names answers the registered filter names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone answers an independent copy of the registry
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewRegistry()
	for name, e := range r.entries {
		clone.entries[name] = e
	}
	return clone
}
