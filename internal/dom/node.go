package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// IsElement reports whether n is an element node
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// ElementChildren answers the element children of n in document order
func ElementChildren(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			children = append(children, c)
		}
	}
	return children
}

// FirstElementChild answers the first element child of n or nil
func FirstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// NextElementSibling answers the next sibling of n that is an element, or nil
func NextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// HasElementChildren reports whether n has at least one element child
func HasElementChildren(n *html.Node) bool {
	return FirstElementChild(n) != nil
}

// RemoveChildren detaches every child of n and answers them
func RemoveChildren(n *html.Node) []*html.Node {
	var removed []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	return removed
}

// Detach removes n from its parent when it has one
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Root answers the top-most ancestor of n
func Root(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Contains reports whether n is ancestor or itself equal to other
func Contains(n, other *html.Node) bool {
	for ; other != nil; other = other.Parent {
		if other == n {
			return true
		}
	}
	return false
}

// Path answers the element-index path from root to n. Only element children count when
// indexing, so whitespace text between elements does not shift the path.
func Path(root, n *html.Node) ([]int, bool) {
	var reversed []int
	for current := n; current != root; current = current.Parent {
		if current == nil || current.Parent == nil {
			return nil, false
		}
		index := 0
		for s := current.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				index++
			}
		}
		reversed = append(reversed, index)
	}
	path := make([]int, len(reversed))
	for i, index := range reversed {
		path[len(reversed)-1-i] = index
	}
	return path, true
}

// Resolve follows an element-index path from root. It answers nil when the path does not
// exist in the tree.
func Resolve(root *html.Node, path []int) *html.Node {
	current := root
	for _, index := range path {
		var next *html.Node
		i := 0
		for c := current.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if i == index {
				next = c
				break
			}
			i++
		}
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

// Text answers the concatenated text content of n
func Text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			} else {
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

// SetText replaces all children of n with a single text node. An empty string leaves n
// without children.
func SetText(n *html.Node, text string) {
	RemoveChildren(n)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// AttrName answers the qualified name of an attribute, "xlink:href" for namespaced ones
func AttrName(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}

// Attr answers the value of the attribute with the given qualified name
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if AttrName(a) == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether n carries the attribute
func HasAttr(n *html.Node, name string) bool {
	_, ok := Attr(n, name)
	return ok
}

var foreignPrefixes = map[string]bool{"xlink": true, "xml": true, "xmlns": true}

// SetAttr sets or adds an attribute. Prefixed names on foreign elements are stored with
// their namespace the way the HTML parser stores them.
func SetAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if AttrName(n.Attr[i]) == name {
			n.Attr[i].Val = value
			return
		}
	}
	attr := html.Attribute{Key: name, Val: value}
	if n.Namespace != "" {
		if prefix, local, ok := strings.Cut(name, ":"); ok && foreignPrefixes[prefix] {
			attr = html.Attribute{Namespace: prefix, Key: local, Val: value}
		}
	}
	n.Attr = append(n.Attr, attr)
}

// RemoveAttr removes an attribute and reports whether it was present
func RemoveAttr(n *html.Node, name string) bool {
	for i := range n.Attr {
		if AttrName(n.Attr[i]) == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// Classes answers the class list of n
func Classes(n *html.Node) []string {
	value, _ := Attr(n, "class")
	return strings.Fields(value)
}

// HasClass reports whether n has the class
func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// SetClass adds or removes a class
func SetClass(n *html.Node, class string, on bool) {
	classes := Classes(n)
	kept := classes[:0]
	present := false
	for _, c := range classes {
		if c == class {
			if !on || present {
				continue
			}
			present = true
		}
		kept = append(kept, c)
	}
	if on && !present {
		kept = append(kept, class)
	}
	if len(kept) == 0 {
		if HasAttr(n, "class") {
			SetAttr(n, "class", "")
		}
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}
