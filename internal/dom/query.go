package dom

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Query answers the first element under root (root included) matching the CSS selector,
// or nil. Invalid selectors match nothing.
func Query(root *html.Node, selector string) *html.Node {
	if root == nil || selector == "" {
		return nil
	}
	sel := goquery.NewDocumentFromNode(root).Selection
	if sel.Is(selector) && IsElement(root) {
		return root
	}
	found := sel.Find(selector)
	if found.Length() == 0 {
		return nil
	}
	return found.Nodes[0]
}

// QueryAll answers every element under root matching the CSS selector in document order
func QueryAll(root *html.Node, selector string) []*html.Node {
	if root == nil || selector == "" {
		return nil
	}
	return goquery.NewDocumentFromNode(root).Find(selector).Nodes
}

// Target is something an element can be resolved from: a CSS selector, a node or a
// goquery selection.
type Target any

// ResolveTarget resolves t to a single element. Selectors are matched against the tree
// containing context.
func ResolveTarget(t Target, context *html.Node) *html.Node {
	switch v := t.(type) {
	case nil:
		return nil
	case string:
		if context == nil {
			return nil
		}
		return Query(Root(context), v)
	case *html.Node:
		if IsElement(v) {
			return v
		}
		if v != nil && v.Type == html.DocumentNode {
			return FirstElementChild(v)
		}
		return nil
	case *goquery.Selection:
		if v == nil || v.Length() == 0 {
			return nil
		}
		return v.Nodes[0]
	case *goquery.Document:
		if v == nil {
			return nil
		}
		return ResolveTarget(v.Selection, context)
	}
	return nil
}
