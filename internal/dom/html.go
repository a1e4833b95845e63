package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	minifier     *minify.M
	minifierOnce sync.Once
)

// getMinifier returns a configured HTML minifier (singleton)
func getMinifier() *minify.M {
	minifierOnce.Do(func() {
		minifier = minify.New()
		minifier.Add("text/html", &mhtml.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
	})
	return minifier
}

// ParseDocument parses a complete HTML document
func ParseDocument(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseDocumentString parses a complete HTML document held in a string
func ParseDocumentString(s string) (*html.Node, error) {
	return ParseDocument(strings.NewReader(s))
}

// ParseFragment parses an HTML fragment in the context of a body element and answers its
// top-level nodes, stripped of the html/body wrappers the parser may add.
func ParseFragment(s string) ([]*html.Node, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty fragment")
	}
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML fragment: %w", err)
	}

	var result []*html.Node
	for _, n := range nodes {
		result = append(result, extractFromWrappers(n)...)
	}
	for _, n := range result {
		n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
	}
	return result, nil
}

// extractFromWrappers extracts content from html/body wrappers that html.ParseFragment adds
func extractFromWrappers(n *html.Node) []*html.Node {
	if n.Type != html.ElementNode || (n.Data != "html" && n.Data != "body") {
		return []*html.Node{n}
	}
	var result []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "head" {
			continue
		}
		if c.Type == html.ElementNode && c.Data == "body" {
			result = append(result, extractFromWrappers(c)...)
			continue
		}
		result = append(result, c)
	}
	return result
}

// Render serializes n and its descendants
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.String(), nil
}

// RenderInner serializes the children of n
func RenderInner(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("failed to render HTML: %w", err)
		}
	}
	return buf.String(), nil
}

// Minify removes unnecessary whitespace from serialized HTML. Content that fails to
// minify is answered unchanged.
func Minify(s string) string {
	if !strings.Contains(s, "<") {
		return strings.Join(strings.Fields(s), " ")
	}
	minified, err := getMinifier().String("text/html", s)
	if err != nil {
		return s
	}
	return minified
}
