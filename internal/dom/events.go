package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Event is delivered to listeners by Dispatch
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	// Datum is the datum bound to CurrentTarget when the listener runs
	Datum any

	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Handler handles a dispatched event
type Handler func(ev *Event)

// Listener is a registered event handler. Name is the optional ".name" suffix of the
// typename, which allows a handler to be replaced or removed without affecting others of
// the same type.
type Listener struct {
	Type    string
	Name    string
	Handler Handler
	Capture bool
}

// ParseTypename splits "click.foo" into its type and name
func ParseTypename(typename string) (string, string) {
	typ, name, _ := strings.Cut(typename, ".")
	return typ, name
}

// On registers a listener for typename on n, replacing one with the same type and name. A
// nil handler removes it. An empty type with a name removes that name from every type.
func (s *Store) On(n *html.Node, typename string, handler Handler, capture bool) {
	typ, name := ParseTypename(typename)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(n, true)

	kept := st.listeners[:0]
	for _, l := range st.listeners {
		if l.Name == name && (l.Type == typ || (typ == "" && handler == nil)) {
			continue
		}
		kept = append(kept, l)
	}
	st.listeners = kept
	if handler != nil && typ != "" {
		st.listeners = append(st.listeners, Listener{Type: typ, Name: name, Handler: handler, Capture: capture})
	}
}

// Listeners answers a copy of the listeners registered on n
func (s *Store) Listeners(n *html.Node) []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state(n, false)
	if st == nil || len(st.listeners) == 0 {
		return nil
	}
	listeners := make([]Listener, len(st.listeners))
	copy(listeners, st.listeners)
	return listeners
}

// AddListeners appends listeners to n
func (s *Store) AddListeners(n *html.Node, listeners []Listener) {
	if len(listeners) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(n, true)
	st.listeners = append(st.listeners, listeners...)
}

// Dispatch delivers an event of the given type to target and then to each of its
// ancestors until a listener stops propagation. Handlers run without the store lock held.
// It answers the number of handlers invoked.
func (s *Store) Dispatch(target *html.Node, typ string) int {
	ev := &Event{Type: typ, Target: target}
	invoked := 0
	for current := target; current != nil && !ev.stopped; current = current.Parent {
		for _, l := range s.Listeners(current) {
			if l.Type != typ {
				continue
			}
			ev.CurrentTarget = current
			ev.Datum, _ = s.Datum(current)
			l.Handler(ev)
			invoked++
		}
	}
	return invoked
}
