package dom

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
)

// Declaration is a single property of an inline style attribute
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// ParseStyle parses the value of a style attribute into its declarations. Malformed
// declarations are skipped.
func ParseStyle(style string) []Declaration {
	var decls []Declaration
	if strings.TrimSpace(style) == "" {
		return decls
	}
	p := css.NewParser(parse.NewInputString(style), true)
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			break
		}
		if gt != css.DeclarationGrammar && gt != css.CustomPropertyGrammar {
			continue
		}
		value, important := joinValues(p.Values())
		decls = append(decls, Declaration{
			Property:  string(data),
			Value:     value,
			Important: important,
		})
	}
	return decls
}

// joinValues reassembles the value tokens of a declaration
func joinValues(tokens []css.Token) (string, bool) {
	// Strip a trailing !important
	important := false
	n := len(tokens)
	for n > 0 && tokens[n-1].TokenType == css.WhitespaceToken {
		n--
	}
	if n >= 2 && tokens[n-1].TokenType == css.IdentToken && strings.EqualFold(string(tokens[n-1].Data), "important") {
		bang := n - 2
		for bang > 0 && tokens[bang].TokenType == css.WhitespaceToken {
			bang--
		}
		if tokens[bang].TokenType == css.DelimToken && string(tokens[bang].Data) == "!" {
			important = true
			n = bang
		}
	}
	tokens = tokens[:n]

	hasWhitespace := false
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			hasWhitespace = true
			break
		}
	}

	var b strings.Builder
	for i, t := range tokens {
		if !hasWhitespace && i > 0 && needsSpace(tokens[i-1], t) {
			b.WriteByte(' ')
		}
		if t.TokenType == css.WhitespaceToken {
			b.WriteByte(' ')
			continue
		}
		b.Write(t.Data)
	}
	return strings.TrimSpace(b.String()), important
}

// needsSpace decides whether two adjacent value tokens were separated in the source. It
// is only consulted when the parser dropped the whitespace tokens.
func needsSpace(prev, next css.Token) bool {
	switch prev.TokenType {
	case css.FunctionToken, css.LeftParenthesisToken, css.CommaToken:
		return false
	}
	switch next.TokenType {
	case css.CommaToken, css.RightParenthesisToken:
		return false
	}
	return true
}

// FormatStyle serializes declarations back into a style attribute value
func FormatStyle(decls []Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		value := d.Value
		if d.Important {
			value += " !important"
		}
		parts = append(parts, d.Property+": "+value+";")
	}
	return strings.Join(parts, " ")
}

// Style answers the inline value of a style property
func Style(n *html.Node, property string) string {
	value, _ := Attr(n, "style")
	for _, d := range ParseStyle(value) {
		if d.Property == property {
			return d.Value
		}
	}
	return ""
}

// SetStyle sets an inline style property, keeping the position of an existing
// declaration. An empty value removes the property.
func SetStyle(n *html.Node, property, value string, important bool) {
	current, _ := Attr(n, "style")
	decls := ParseStyle(current)

	var updated []Declaration
	found := false
	for _, d := range decls {
		if d.Property == property {
			if value == "" || found {
				continue
			}
			d.Value, d.Important = value, important
			found = true
		}
		updated = append(updated, d)
	}
	if !found && value != "" {
		updated = append(updated, Declaration{Property: property, Value: value, Important: important})
	}

	if len(updated) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", FormatStyle(updated))
}
