// Package expr parses field selectors with filter chains, the expression language used inside
// template tags:
//
//	.                       the datum itself
//	person.name             field path
//	x1."y.y".z              quoted segments may contain any character
//	items|sort:"-date"|subarr:0,3
//
// Parsing never panics and never returns an error value: failures are reported through
// Result.ErrorCode together with the index where parsing stopped.
package expr

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Error codes reported in Result.ErrorCode
const (
	ErrMissingValidFieldSelector = "MISSING_VALID_FIELD_SELECTOR"
	ErrMissingFilterName         = "MISSING_FILTER_NAME"
	ErrInvalidJSONValue          = "INVALID_JSON_VALUE"
	ErrExtraCharacters           = "EXTRA_CHARACTERS"
)

// Expression is a parsed field selector with its filter chain
type Expression struct {
	// Identity is set for the "." selector. Fields is empty in that case.
	Identity bool
	Fields   []string
	Filters  []FilterRef
}

// FilterRef is a filter invocation. Args holds the literal arguments only; the subject value,
// index and sibling count are supplied by the caller when the filter is invoked.
type FilterRef struct {
	Name string
	Args []any
}

// Result is the outcome of Parse
type Result struct {
	Value     *Expression // nil when parsing failed
	Index     int         // byte offset just after the last consumed character
	ErrorCode string
}

// OK reports whether parsing produced an expression
func (r Result) OK() bool {
	return r.Value != nil
}

// String answers the canonical source form of the expression
func (e *Expression) String() string {
	var b strings.Builder
	if e.Identity {
		b.WriteByte('.')
	} else {
		for i, field := range e.Fields {
			if i > 0 {
				b.WriteByte('.')
			}
			if IsIdentifier(field) {
				b.WriteString(field)
			} else {
				quoted, _ := json.Marshal(field)
				b.Write(quoted)
			}
		}
	}
	for _, f := range e.Filters {
		b.WriteByte('|')
		b.WriteString(f.Name)
		for i, arg := range f.Args {
			if i == 0 {
				b.WriteByte(':')
			} else {
				b.WriteByte(',')
			}
			encoded, err := json.Marshal(arg)
			if err != nil {
				encoded = []byte("null")
			}
			b.Write(encoded)
		}
	}
	return b.String()
}

// IsIdentifierStart reports whether r may start a bare identifier
func IsIdentifierStart(r rune) bool {
	return r == '$' || r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		r >= 0xa1
}

// IsIdentifierPart reports whether r may continue a bare identifier
func IsIdentifierPart(r rune) bool {
	return (r >= '0' && r <= '9') || IsIdentifierStart(r)
}

// IsIdentifier reports whether s is a complete bare identifier
func IsIdentifier(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for i, r := range s {
		if i == 0 && !IsIdentifierStart(r) {
			return false
		}
		if !IsIdentifierPart(r) {
			return false
		}
	}
	return true
}
