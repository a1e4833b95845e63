// Package dom provides the DOM operations the template engine needs on top of the
// golang.org/x/net/html node tree.
//
// State a browser keeps on DOM objects (the bound datum, event listeners, JavaScript
// properties, compiled templates) is kept in a Store, a side table keyed by node. Nothing
// is written into the markup, so serializing a rendered tree never exposes engine state.
package dom

import (
	"sync"

	"golang.org/x/net/html"
)

// Store is the side table holding per-node state
type Store struct {
	mu    sync.RWMutex
	nodes map[*html.Node]*nodeState
}

type nodeState struct {
	datum     any
	hasDatum  bool
	boundary  bool
	template  any
	imported  any
	props     map[string]any
	listeners []Listener
}

// NewStore creates an empty side table
func NewStore() *Store {
	return &Store{
		nodes: make(map[*html.Node]*nodeState),
	}
}

// state answers the state for n, creating it when create is set. Callers hold the lock.
func (s *Store) state(n *html.Node, create bool) *nodeState {
	st, ok := s.nodes[n]
	if !ok && create {
		st = &nodeState{}
		s.nodes[n] = st
	}
	return st
}

// Datum answers the datum bound to n
func (s *Store) Datum(n *html.Node) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st := s.state(n, false); st != nil && st.hasDatum {
		return st.datum, true
	}
	return nil, false
}

// SetDatum binds datum to n
func (s *Store) SetDatum(n *html.Node, datum any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(n, true)
	st.datum = datum
	st.hasDatum = true
}

// IsBoundary reports whether n is a scope boundary: an element whose children are managed
// by a group of its own and must not receive datums propagated from above.
func (s *Store) IsBoundary(n *html.Node) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state(n, false)
	return st != nil && st.boundary
}

// MarkBoundary marks n as a scope boundary
func (s *Store) MarkBoundary(n *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(n, true).boundary = true
}

// Template answers the compiled template attached to n
func (s *Store) Template(n *html.Node) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st := s.state(n, false); st != nil {
		return st.template
	}
	return nil
}

// SetTemplate attaches a compiled template to its root element
func (s *Store) SetTemplate(n *html.Node, template any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(n, true).template = template
}

// ClosestTemplate answers the compiled template attached to n or its nearest ancestor
func (s *Store) ClosestTemplate(n *html.Node) (any, *html.Node) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ; n != nil; n = n.Parent {
		if st := s.state(n, false); st != nil && st.template != nil {
			return st.template, n
		}
	}
	return nil, nil
}

// Imported answers the compiled template an imported clone was created from
func (s *Store) Imported(n *html.Node) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st := s.state(n, false); st != nil {
		return st.imported
	}
	return nil
}

// SetImported records the compiled template an imported clone was created from
func (s *Store) SetImported(n *html.Node, template any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(n, true).imported = template
}

// Property answers a property value of n
func (s *Store) Property(n *html.Node, name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st := s.state(n, false); st != nil && st.props != nil {
		v, ok := st.props[name]
		return v, ok
	}
	return nil, false
}

// SetProperty sets a property of n. A nil value deletes the property.
func (s *Store) SetProperty(n *html.Node, name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(n, true)
	if value == nil {
		delete(st.props, name)
		return
	}
	if st.props == nil {
		st.props = make(map[string]any)
	}
	st.props[name] = value
}

// Forget drops the state of n and all its descendants. Called for nodes removed from the
// live tree.
func (s *Store) Forget(n *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stack := []*html.Node{n}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		delete(s.nodes, current)
		for c := current.FirstChild; c != nil; c = c.NextSibling {
			stack = append(stack, c)
		}
	}
}

// Len answers the number of nodes with state
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Clone answers a deep copy of n. Structure, attributes and the structural markers
// (scope boundary, imported template) are copied; datum, properties and listeners are not.
func (s *Store) Clone(n *html.Node) *html.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneLocked(n)
}

func (s *Store) cloneLocked(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		clone.Attr = make([]html.Attribute, len(n.Attr))
		copy(clone.Attr, n.Attr)
	}
	if st := s.state(n, false); st != nil && (st.boundary || st.imported != nil) {
		cst := s.state(clone, true)
		cst.boundary = st.boundary
		cst.imported = st.imported
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(s.cloneLocked(c))
	}
	return clone
}
