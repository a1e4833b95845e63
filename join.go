package livebind

import (
	"fmt"
	"reflect"

	"github.com/PuerkitoBio/goquery"
	"github.com/livefir/livebind/filter"
	"github.com/livefir/livebind/internal/dom"
	"golang.org/x/net/html"
)

// joinScope runs the data joins of every structural binding below root. root and the
// datums below it are already bound.
func (p *renderPass) joinScope(root *html.Node, sc *scope, index, length int) error {
	for _, node := range sc.nodes {
		anchor := dom.Resolve(root, node.anchorPath())
		if anchor == nil {
			continue
		}
		call := filter.Call{Node: anchor, Index: index, Length: length}

		var err error
		switch n := node.(type) {
		case *groupNode:
			err = p.joinGroup(n, anchor, call)
		case *importNode:
			err = p.joinImport(n, anchor, call)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *renderPass) joinGroup(g *groupNode, anchor *html.Node, call filter.Call) error {
	datum, _ := p.store.Datum(anchor)
	value, err := g.fn.Eval(call, datum)
	if err != nil {
		p.logger.Printf("livebind: skipping %s on <%s>: %v", g.kind, anchor.Data, err)
		p.metrics.IncrementBindingFailure()
		return nil
	}
	items, ok := sequence(g.kind, datum, value)
	if !ok {
		p.logger.Printf("livebind: repeat %s on <%s> answered %T, not a sequence", g.fn, anchor.Data, value)
		p.metrics.IncrementCustomCounter("non_sequence_repeat")
	}

	create := func() *html.Node { return p.cloneGroupChild(g) }
	var nodes []*html.Node
	if g.kind == repeatGroup {
		nodes = p.joinKeyed(anchor, items, create)
	} else {
		nodes = p.joinPositional(anchor, items, create)
	}

	for i, n := range nodes {
		propagateDatum(p.store, n, items[i])
	}
	for i, n := range nodes {
		if err := p.joinScope(n, &g.scope, i, len(nodes)); err != nil {
			return err
		}
	}
	return nil
}

func (p *renderPass) joinImport(n *importNode, anchor *html.Node, call filter.Call) error {
	datum, _ := p.store.Datum(anchor)
	target, err := n.target.Eval(call, datum)
	if err != nil {
		p.logger.Printf("livebind: skipping import on <%s>: %v", anchor.Data, err)
		p.metrics.IncrementBindingFailure()
		return nil
	}
	ct, ok := p.store.Template(dom.ResolveTarget(target, anchor)).(*compiledTemplate)
	if !ok {
		return fmt.Errorf("failed to import %s into <%s>: %w", describeTarget(target), anchor.Data, ErrImportTarget)
	}
	value, err := n.fn.Eval(call, datum)
	if err != nil {
		p.logger.Printf("livebind: skipping import on <%s>: %v", anchor.Data, err)
		p.metrics.IncrementBindingFailure()
		return nil
	}

	// A different template replaces the current clone
	if current := dom.FirstElementChild(anchor); current != nil && p.store.Imported(current) != ct {
		dom.Detach(current)
		p.store.Forget(current)
		p.metrics.IncrementCustomCounter("import_replaced")
	}

	items := []any{value}
	nodes := p.joinPositional(anchor, items, func() *html.Node { return p.cloneImported(ct) })
	propagateDatum(p.store, nodes[0], value)
	return p.joinScope(nodes[0], &ct.scope, 0, 1)
}

// joinKeyed matches items to the element children of anchor by datum identity. Kept
// elements are rebound in place, missing ones are created and the rest removed. The
// children end up in item order.
func (p *renderPass) joinKeyed(anchor *html.Node, items []any, create func() *html.Node) []*html.Node {
	existing := dom.ElementChildren(anchor)
	byKey := make(map[any][]*html.Node)
	var unkeyed []*html.Node
	for _, el := range existing {
		datum, ok := p.store.Datum(el)
		if !ok {
			continue
		}
		if key, ok := joinKey(datum); ok {
			byKey[key] = append(byKey[key], el)
		} else {
			unkeyed = append(unkeyed, el)
		}
	}

	nodes := make([]*html.Node, len(items))
	kept := make(map[*html.Node]bool, len(existing))
	entered := 0
	for i, item := range items {
		if key, ok := joinKey(item); ok {
			if queue := byKey[key]; len(queue) > 0 {
				nodes[i] = queue[0]
				byKey[key] = queue[1:]
			}
		} else {
			for j, el := range unkeyed {
				if el == nil {
					continue
				}
				if datum, _ := p.store.Datum(el); reflect.DeepEqual(datum, item) {
					nodes[i] = el
					unkeyed[j] = nil
					break
				}
			}
		}
		if nodes[i] == nil {
			nodes[i] = create()
			entered++
			continue
		}
		kept[nodes[i]] = true
	}

	exited := p.removeUnkept(existing, kept)
	order(anchor, nodes)
	p.metrics.RecordJoin(entered, len(items)-entered, exited)
	return nodes
}

// joinPositional matches items to the element children of anchor by position
func (p *renderPass) joinPositional(anchor *html.Node, items []any, create func() *html.Node) []*html.Node {
	existing := dom.ElementChildren(anchor)
	nodes := make([]*html.Node, len(items))
	kept := make(map[*html.Node]bool, len(existing))
	entered := 0
	for i := range items {
		if i < len(existing) {
			nodes[i] = existing[i]
			kept[existing[i]] = true
			continue
		}
		nodes[i] = create()
		entered++
	}

	exited := p.removeUnkept(existing, kept)
	order(anchor, nodes)
	p.metrics.RecordJoin(entered, len(items)-entered, exited)
	return nodes
}

func (p *renderPass) removeUnkept(existing []*html.Node, kept map[*html.Node]bool) int {
	exited := 0
	for _, el := range existing {
		if kept[el] {
			continue
		}
		dom.Detach(el)
		p.store.Forget(el)
		exited++
	}
	return exited
}

// order makes nodes the element children of anchor in the given order, inserting the
// ones not yet attached
func order(anchor *html.Node, nodes []*html.Node) {
	var next *html.Node
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Parent != anchor || dom.NextElementSibling(n) != next {
			dom.Detach(n)
			anchor.InsertBefore(n, next)
		}
		next = n
	}
}

// cloneGroupChild creates an element for a new item of a group
func (p *renderPass) cloneGroupChild(g *groupNode) *html.Node {
	clone := p.store.Clone(g.child)
	dom.RemoveAttr(clone, "id")
	for _, h := range g.handlers {
		if el := dom.Resolve(clone, h.path); el != nil {
			p.store.AddListeners(el, h.listeners)
		}
	}
	return clone
}

// cloneImported creates a fresh instance of a compiled template. The clone carries the
// listeners of the template elements. Content created by joins in the template is left
// out, the joins of the clone create their own.
func (p *renderPass) cloneImported(ct *compiledTemplate) *html.Node {
	clone := p.store.Clone(ct.root)
	copyListeners(p.store, ct.root, clone)

	var anchors []*html.Node
	for _, node := range ct.scope.nodes {
		if anchor := dom.Resolve(clone, node.anchorPath()); anchor != nil {
			anchors = append(anchors, anchor)
		}
	}
	for _, anchor := range anchors {
		for _, removed := range dom.RemoveChildren(anchor) {
			p.store.Forget(removed)
		}
	}
	dom.RemoveAttr(clone, "id")

	p.store.SetImported(clone, ct)
	return clone
}

// copyListeners copies the listeners of from and its descendants onto the same nodes of
// to, a clone of from
func copyListeners(store *dom.Store, from, to *html.Node) {
	store.AddListeners(to, store.Listeners(from))
	for f, t := from.FirstChild, to.FirstChild; f != nil && t != nil; f, t = f.NextSibling, t.NextSibling {
		if f.Type == html.ElementNode {
			copyListeners(store, f, t)
		}
	}
}

func describeTarget(target any) string {
	switch t := target.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case *html.Node:
		if t != nil {
			return "<" + t.Data + ">"
		}
	case *goquery.Selection:
		if t != nil && t.Length() > 0 {
			return "<" + t.Nodes[0].Data + ">"
		}
	}
	return fmt.Sprintf("%T", target)
}
