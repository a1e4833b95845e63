package expr

import "strings"

// Tag is the outcome of ParseTag
type Tag struct {
	Expression *Expression
	Source     string // the text between the delimiters
	Index      int    // offset in the original string where parsing stopped
	ErrorCode  string
}

// ParseTag recognises a value consisting of a single template tag, such as "{{ items|sort }}".
// Whitespace around the tag is allowed. When the value is not wrapped in the delimiters ok is
// false and the value should be treated as plain text. When it is, the tag is parsed and
// Tag.ErrorCode is set for malformed expressions or for extra characters before the closing
// delimiter.
func ParseTag(s, open, close string) (tag Tag, ok bool) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < len(open)+len(close) || !strings.HasPrefix(trimmed, open) || !strings.HasSuffix(trimmed, close) {
		return Tag{}, false
	}

	start := strings.Index(s, open) + len(open)
	end := strings.LastIndex(s, close)
	tag.Source = strings.TrimSpace(s[start:end])

	result := Parse(s, start)
	tag.Index = result.Index
	if !result.OK() {
		tag.ErrorCode = result.ErrorCode
		return tag, true
	}

	// Only the closing delimiter (and trailing whitespace) may follow the expression
	if result.Index != end {
		tag.ErrorCode = ErrExtraCharacters
		return tag, true
	}
	tag.Expression = result.Value
	return tag, true
}
