package livebind

import (
	"fmt"
	"strings"

	"github.com/livefir/livebind/filter"
	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/internal/expr"
	"golang.org/x/net/html"
)

// compiler walks a template once, in document order. It removes directive attributes and
// tags from the markup, detaches the template children of groups and collects bindings.
type compiler struct {
	store    *dom.Store
	registry *filter.Registry
	options  Options
	root     *html.Node
}

func (c *compiler) compile() (*compiledTemplate, error) {
	ct := &compiledTemplate{root: c.root, options: c.options}
	if err := c.compileElement(c.root, c.root, &ct.scope); err != nil {
		return nil, err
	}
	c.store.MarkBoundary(c.root)
	return ct, nil
}

// compileElement adds the bindings of el and its descendants to sc. Directives come first,
// then attributes, then text.
func (c *compiler) compileElement(el, scopeRoot *html.Node, sc *scope) error {
	if el != c.root && c.store.Template(el) != nil {
		return fmt.Errorf("failed to compile <%s>: %w", el.Data, ErrTemplateOverlap)
	}
	path, _ := dom.Path(scopeRoot, el)

	if err := c.compileDirectives(el, path, sc); err != nil {
		return err
	}
	if err := c.compileAttributes(el, path, sc); err != nil {
		return err
	}
	if err := c.compileText(el, path, sc); err != nil {
		return err
	}

	for _, child := range dom.ElementChildren(el) {
		if err := c.compileElement(child, scopeRoot, sc); err != nil {
			return err
		}
	}
	return nil
}

// tag parses a value consisting of a single template tag. ok is false for plain values.
func (c *compiler) tag(value string) (fn *filter.DataFunc, ok bool, err error) {
	tag, ok := expr.ParseTag(value, c.options.TagOpen, c.options.TagClose)
	if !ok {
		return nil, false, nil
	}
	if tag.ErrorCode != "" {
		return nil, true, &ExpressionError{Source: tag.Source, Index: tag.Index, Code: tag.ErrorCode}
	}
	return filter.Compile(tag.Expression, c.registry), true, nil
}

// directive answers the data function of a directive attribute on el, nil when absent
func (c *compiler) directive(el *html.Node, name string) (*filter.DataFunc, error) {
	value, ok := dom.Attr(el, name)
	if !ok {
		return nil, nil
	}
	fn, _, err := c.tag(value)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s on <%s>: %w", name, el.Data, err)
	}
	return fn, nil
}

func (c *compiler) compileDirectives(el *html.Node, path []int, sc *scope) error {
	o := c.options
	repeatFn, err := c.directive(el, o.RepeatAttribute)
	if err != nil {
		return err
	}
	ifFn, err := c.directive(el, o.IfAttribute)
	if err != nil {
		return err
	}
	withFn, err := c.directive(el, o.WithAttribute)
	if err != nil {
		return err
	}
	importFn, err := c.directive(el, o.ImportAttribute)
	if err != nil {
		return err
	}

	var groups []*groupNode
	if repeatFn != nil {
		groups = append(groups, &groupNode{kind: repeatGroup, fn: repeatFn})
	}
	if ifFn != nil {
		groups = append(groups, &groupNode{kind: ifGroup, fn: ifFn})
	}
	if withFn != nil {
		groups = append(groups, &groupNode{kind: withGroup, fn: withFn})
	}
	if len(groups) > 1 {
		return fmt.Errorf("failed to compile <%s>: %w", el.Data, ErrGroupCombination)
	}

	if importFn != nil {
		return c.compileImport(el, path, importFn, withFn, len(groups) == 1, sc)
	}
	if len(groups) == 0 {
		return nil
	}

	g := groups[0]
	g.path = path
	g.child = dom.FirstElementChild(el)
	if g.child == nil {
		if strings.TrimSpace(dom.Text(el)) != "" {
			return fmt.Errorf("failed to compile %s on <%s>: %w", g.kind, el.Data, ErrGroupTextChild)
		}
		return fmt.Errorf("failed to compile %s on <%s>: %w", g.kind, el.Data, ErrGroupNoChild)
	}
	dom.Detach(g.child)
	if dom.HasElementChildren(el) {
		return fmt.Errorf("failed to compile %s on <%s>: %w", g.kind, el.Data, ErrGroupChildren)
	}

	dom.RemoveAttr(el, c.attributeFor(g.kind))
	c.store.MarkBoundary(el)
	sc.nodes = append(sc.nodes, g)

	if err := c.compileElement(g.child, g.child, &g.scope); err != nil {
		return err
	}
	// Nested groups have detached their children by now, so only listeners belonging to
	// this group are captured
	g.handlers = captureHandlers(c.store, g.child)
	return nil
}

func (c *compiler) compileImport(el *html.Node, path []int, target, withFn *filter.DataFunc, grouped bool, sc *scope) error {
	if grouped && withFn == nil {
		return fmt.Errorf("failed to compile <%s>: %w", el.Data, ErrImportCombination)
	}
	if dom.HasElementChildren(el) {
		return fmt.Errorf("failed to compile <%s>: %w", el.Data, ErrImportChildren)
	}
	if strings.TrimSpace(dom.Text(el)) != "" {
		return fmt.Errorf("failed to compile <%s>: %w", el.Data, ErrImportText)
	}

	fn := withFn
	if fn == nil {
		fn = filter.Identity(c.registry)
	}
	dom.RemoveAttr(el, c.options.ImportAttribute)
	dom.RemoveAttr(el, c.options.WithAttribute)
	c.store.MarkBoundary(el)
	sc.nodes = append(sc.nodes, &importNode{path: path, target: target, fn: fn})
	return nil
}

func (c *compiler) attributeFor(kind groupKind) string {
	switch kind {
	case repeatGroup:
		return c.options.RepeatAttribute
	case ifGroup:
		return c.options.IfAttribute
	}
	return c.options.WithAttribute
}

func (c *compiler) compileAttributes(el *html.Node, path []int, sc *scope) error {
	// Attributes are removed while iterating
	attrs := append([]html.Attribute(nil), el.Attr...)
	for _, a := range attrs {
		name := dom.AttrName(a)
		fn, ok, err := c.tag(a.Val)
		if err != nil {
			return fmt.Errorf("failed to compile attribute %s on <%s>: %w", name, el.Data, err)
		}
		if !ok {
			continue
		}

		prefix, local, namespaced := strings.Cut(name, ":")
		if !namespaced {
			prefix, local = "", name
		}
		kind, target := c.indirect(local)
		if kind == attributeLeaf && target != local && el.Namespace == "svg" {
			if camel, ok := svgCamelCase[target]; ok {
				target = camel
			}
		}
		if prefix != "" {
			target = prefix + ":" + target
		}

		sc.leaves = append(sc.leaves, leafRenderer{kind: kind, path: path, name: target, fn: fn})
		dom.RemoveAttr(el, name)
	}
	return nil
}

// indirect answers what an attribute name binds to: an indirect prefix names an
// attribute, style, property or class, anything else binds the attribute itself
func (c *compiler) indirect(name string) (leafKind, string) {
	for _, p := range []struct {
		prefix string
		kind   leafKind
	}{
		{c.options.IndirectAttributePrefix, attributeLeaf},
		{c.options.IndirectStylePrefix, styleLeaf},
		{c.options.IndirectPropertyPrefix, propertyLeaf},
		{c.options.IndirectClassPrefix, classLeaf},
	} {
		if rest, ok := strings.CutPrefix(name, p.prefix); ok && rest != "" {
			return p.kind, rest
		}
	}
	return attributeLeaf, name
}

func (c *compiler) compileText(el *html.Node, path []int, sc *scope) error {
	if dom.HasElementChildren(el) {
		return nil
	}
	fn, ok, err := c.tag(dom.Text(el))
	if err != nil {
		return fmt.Errorf("failed to compile text of <%s>: %w", el.Data, err)
	}
	if !ok {
		return nil
	}
	sc.leaves = append(sc.leaves, leafRenderer{kind: textLeaf, path: path, fn: fn})
	dom.SetText(el, "")
	return nil
}
