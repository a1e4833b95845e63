package livebind

import (
	"reflect"

	"github.com/livefir/livebind/filter"
	"github.com/livefir/livebind/internal/dom"
	"golang.org/x/net/html"
)

// compiledTemplate is attached to the root element of a template
type compiledTemplate struct {
	root    *html.Node
	scope   scope
	options Options
}

// scope holds the bindings below one scope root: the template root, or a clone created by
// a group. Paths are element-index paths relative to that root.
type scope struct {
	leaves []leafRenderer
	nodes  []bindingNode
}

// bindingNode is a structural binding: *groupNode or *importNode
type bindingNode interface {
	anchorPath() []int
}

type groupKind int

const (
	repeatGroup groupKind = iota
	ifGroup
	withGroup
)

func (k groupKind) String() string {
	switch k {
	case repeatGroup:
		return "repeat"
	case ifGroup:
		return "if"
	}
	return "with"
}

// groupNode creates one clone of its template child per item of a sequence, as direct
// children of the anchor element
type groupNode struct {
	kind groupKind
	path []int
	fn   *filter.DataFunc
	// child is the template element detached from the anchor. It is nil for an empty group.
	child    *html.Node
	scope    scope
	handlers []handlerRecord
}

func (g *groupNode) anchorPath() []int { return g.path }

// importNode clones the root element of another compiled template into its anchor
type importNode struct {
	path   []int
	target *filter.DataFunc
	fn     *filter.DataFunc
}

func (n *importNode) anchorPath() []int { return n.path }

// handlerRecord holds the listeners found on an element of a group's template child
type handlerRecord struct {
	path      []int
	listeners []dom.Listener
}

type leafKind int

const (
	textLeaf leafKind = iota
	attributeLeaf
	styleLeaf
	propertyLeaf
	classLeaf
)

func (k leafKind) String() string {
	switch k {
	case textLeaf:
		return "text"
	case attributeLeaf:
		return "attribute"
	case styleLeaf:
		return "style"
	case propertyLeaf:
		return "property"
	}
	return "class"
}

// leafRenderer writes one value to one element
type leafRenderer struct {
	kind leafKind
	path []int
	// name is the attribute, style property, property or class written
	name string
	fn   *filter.DataFunc
}

// slot names what a leaf writes, for transition slot ownership
func (l *leafRenderer) slot() string {
	if l.kind == textLeaf {
		return "text"
	}
	return l.kind.String() + "." + l.name
}

// sequence turns the value of a group's data function into the items to join. The second
// result is false for a repeat value that is not a sequence.
func sequence(kind groupKind, datum, value any) ([]any, bool) {
	switch kind {
	case repeatGroup:
		if filter.IsNil(value) {
			return nil, true
		}
		return filter.Sequence(value)
	case ifGroup:
		if filter.Truthy(value) {
			return []any{datum}, true
		}
		return nil, true
	}
	return []any{value}, true
}

// propagateDatum binds datum to n and its descendant elements. Scope boundaries receive
// the datum but their descendants are left alone, their group binds those itself. This
// holds for n too: the children of a repeat anchor keep the items they were joined to.
func propagateDatum(store *dom.Store, n *html.Node, datum any) {
	store.SetDatum(n, datum)
	if store.IsBoundary(n) {
		return
	}
	stack := dom.ElementChildren(n)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		store.SetDatum(current, datum)
		if !store.IsBoundary(current) {
			stack = append(stack, dom.ElementChildren(current)...)
		}
	}
}

// captureHandlers records the listeners on n and its descendants by path relative to n
func captureHandlers(store *dom.Store, n *html.Node) []handlerRecord {
	var records []handlerRecord
	var walk func(el *html.Node, path []int)
	walk = func(el *html.Node, path []int) {
		if listeners := store.Listeners(el); len(listeners) > 0 {
			records = append(records, handlerRecord{
				path:      append([]int(nil), path...),
				listeners: listeners,
			})
		}
		for i, child := range dom.ElementChildren(el) {
			walk(child, append(path, i))
		}
	}
	walk(n, nil)
	return records
}

// joinKey answers the identity used to match a repeat item to an existing element.
// Reference types match by reference, comparable values by value. ok is false for values
// without a usable identity.
func joinKey(v any) (key any, ok bool) {
	if v == nil {
		return nil, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return refKey{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		return refKey{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}, true
	}
	if rv.Comparable() {
		return v, true
	}
	return nil, false
}

type refKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}
