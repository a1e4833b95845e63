package livebind

import (
	"log"

	"github.com/livefir/livebind/filter"
	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/internal/metrics"
	"github.com/livefir/livebind/transition"
	"golang.org/x/net/html"
)

// renderPass is one render of data onto a template root. tr is nil for immediate renders.
type renderPass struct {
	store   *dom.Store
	metrics *metrics.Collector
	logger  *log.Logger
	tr      *transition.Transition
}

// renderScope writes the leaves below root and then renders the nested structural
// bindings. The joins have already run.
func (p *renderPass) renderScope(root *html.Node, sc *scope, index, length int) {
	for i := range sc.leaves {
		l := &sc.leaves[i]
		el := dom.Resolve(root, l.path)
		if el == nil {
			continue
		}
		p.renderLeaf(l, el, filter.Call{Node: el, Index: index, Length: length})
	}

	for _, node := range sc.nodes {
		anchor := dom.Resolve(root, node.anchorPath())
		if anchor == nil {
			continue
		}
		switch n := node.(type) {
		case *groupNode:
			children := dom.ElementChildren(anchor)
			for i, child := range children {
				p.renderScope(child, &n.scope, i, len(children))
			}
		case *importNode:
			child := dom.FirstElementChild(anchor)
			if child == nil {
				continue
			}
			if ct, ok := p.store.Imported(child).(*compiledTemplate); ok {
				p.renderScope(child, &ct.scope, 0, 1)
			}
		}
	}
}

func (p *renderPass) renderLeaf(l *leafRenderer, el *html.Node, call filter.Call) {
	datum, _ := p.store.Datum(el)

	if l.fn.IsTween() {
		tween, err := l.fn.EvalTween(call, datum)
		if err != nil {
			p.bindingFailed(l, el, err)
			return
		}
		p.metrics.IncrementBindingApplied()
		if p.tr == nil {
			p.writeTween(l, el, tween, 1)
			return
		}
		p.tr.Tween(el, l.slot(), func(t float64) { p.writeTween(l, el, tween, t) })
		p.metrics.IncrementTweenScheduled()
		return
	}

	value, err := l.fn.Eval(call, datum)
	if err != nil {
		p.bindingFailed(l, el, err)
		return
	}
	p.metrics.IncrementBindingApplied()
	if p.tr != nil && (l.kind == attributeLeaf || l.kind == styleLeaf) {
		p.interpolate(l, el, value)
		return
	}
	p.write(l, el, value)
}

// interpolate animates an attribute or style from its current value to value. Numbers
// inside the values and colors change gradually, other text switches at the end.
func (p *renderPass) interpolate(l *leafRenderer, el *html.Node, value any) {
	if filter.IsNil(value) {
		p.tr.Tween(el, l.slot(), func(float64) { p.write(l, el, nil) })
		p.metrics.IncrementTweenScheduled()
		return
	}

	var current string
	if l.kind == attributeLeaf {
		current, _ = dom.Attr(el, l.name)
	} else {
		current = dom.Style(el, l.name)
	}
	interpolator := transition.Interpolate(current, filter.ToString(value))
	p.tr.Tween(el, l.slot(), func(t float64) { p.write(l, el, interpolator(t)) })
	p.metrics.IncrementTweenScheduled()
}

// writeTween writes the value of a tween at progress t. A panicking tween skips the write.
func (p *renderPass) writeTween(l *leafRenderer, el *html.Node, tween filter.Tween, t float64) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("livebind: tween %s on <%s> failed at %.3f: %v", l.fn, el.Data, t, r)
			p.metrics.IncrementBindingFailure()
		}
	}()
	p.write(l, el, tween(t))
}

// write applies a value to the element. nil removes attributes, styles and properties.
func (p *renderPass) write(l *leafRenderer, el *html.Node, value any) {
	switch l.kind {
	case textLeaf:
		dom.SetText(el, filter.ToString(value))
	case attributeLeaf:
		if filter.IsNil(value) {
			dom.RemoveAttr(el, l.name)
			return
		}
		dom.SetAttr(el, l.name, filter.ToString(value))
	case styleLeaf:
		if filter.IsNil(value) {
			dom.SetStyle(el, l.name, "", false)
			return
		}
		dom.SetStyle(el, l.name, filter.ToString(value), false)
	case propertyLeaf:
		if filter.IsNil(value) {
			value = nil
		}
		p.store.SetProperty(el, l.name, value)
	case classLeaf:
		dom.SetClass(el, l.name, filter.Truthy(value))
	}
}

func (p *renderPass) bindingFailed(l *leafRenderer, el *html.Node, err error) {
	p.logger.Printf("livebind: skipping %s binding on <%s>: %v", l.kind, el.Data, err)
	p.metrics.IncrementBindingFailure()
}
