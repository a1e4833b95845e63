package expr

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// endOfInput is handed to accept functions once the input is exhausted
const endOfInput rune = -1

// invalidRune is handed to accept functions for a byte that does not start valid UTF-8
const invalidRune rune = -2

type stateID int

const (
	stateStart stateID = iota
	stateEnd
	stateBeginFieldSelector
	stateFieldSelector
	stateFieldSelectorQuoted
	stateFieldSelectorUnquoted
	stateEndFieldSelector
	stateEndSpecialFieldSelector
	stateFilter
	stateFilterName
	stateFilterArgument
	stateFilterNoArgument
	stateEndFilter
	stateCount
)

// noState is answered by accept functions that do not match
const noState stateID = -1

// state describes one node of the parser's state machine. A state optionally skips
// whitespace, then runs process (which may fail with an error code), then either finishes
// (final) or tries its accept functions in order. The first accept function answering a
// state other than noState decides the transition. When none matches, parsing fails with
// errorCode.
type state struct {
	skipWhitespace bool
	final          bool
	process        func(p *parser) string
	accept         []func(r rune, p *parser) stateID
	errorCode      string
}

var states [stateCount]state

func init() {
	states = [stateCount]state{
		stateStart: {
			accept: []func(rune, *parser) stateID{
				func(rune, *parser) stateID { return stateBeginFieldSelector },
			},
		},
		stateEnd: {
			skipWhitespace: true,
			final:          true,
		},
		stateBeginFieldSelector: {
			skipWhitespace: true,
			process: func(p *parser) string {
				p.value = &Expression{}
				return ""
			},
			accept: []func(rune, *parser) stateID{
				func(r rune, p *parser) stateID {
					// A leading dot selects the datum itself and can't be followed by more fields
					if r == '.' {
						p.skip()
						p.value.Identity = true
						return stateEndSpecialFieldSelector
					}
					return noState
				},
				func(rune, *parser) stateID { return stateFieldSelector },
			},
		},
		stateFieldSelector: {
			skipWhitespace: true,
			accept: []func(rune, *parser) stateID{
				func(r rune, p *parser) stateID {
					if r == '"' {
						return stateFieldSelectorQuoted
					}
					return noState
				},
				func(r rune, p *parser) stateID {
					if IsIdentifierStart(r) {
						p.value.Fields = append(p.value.Fields, "")
						return stateFieldSelectorUnquoted
					}
					return noState
				},
			},
			errorCode: ErrMissingValidFieldSelector,
		},
		stateFieldSelectorQuoted: {
			process: func(p *parser) string {
				value, ok := p.json()
				if !ok {
					return ErrInvalidJSONValue
				}
				field, ok := value.(string)
				if !ok {
					return ErrMissingValidFieldSelector
				}
				p.value.Fields = append(p.value.Fields, field)
				return ""
			},
			accept: []func(rune, *parser) stateID{
				func(rune, *parser) stateID { return stateEndFieldSelector },
			},
		},
		stateFieldSelectorUnquoted: {
			accept: []func(rune, *parser) stateID{
				func(r rune, p *parser) stateID {
					if IsIdentifierPart(r) {
						p.skip()
						last := len(p.value.Fields) - 1
						p.value.Fields[last] += string(r)
						return stateFieldSelectorUnquoted
					}
					return noState
				},
				func(rune, *parser) stateID { return stateEndFieldSelector },
			},
		},
		stateEndFieldSelector: {
			skipWhitespace: true,
			accept: []func(rune, *parser) stateID{
				func(r rune, p *parser) stateID {
					if r == '.' {
						p.skip()
						return stateFieldSelector
					}
					return noState
				},
				pipeToFilter,
				func(rune, *parser) stateID { return stateEnd },
			},
		},
		stateEndSpecialFieldSelector: {
			skipWhitespace: true,
			accept: []func(rune, *parser) stateID{
				pipeToFilter,
				func(rune, *parser) stateID { return stateEnd },
			},
		},
		stateFilter: {
			skipWhitespace: true,
			process: func(p *parser) string {
				p.value.Filters = append(p.value.Filters, FilterRef{Args: []any{}})
				return ""
			},
			accept: []func(rune, *parser) stateID{
				func(r rune, p *parser) stateID {
					if IsIdentifierStart(r) {
						return stateFilterName
					}
					return noState
				},
			},
			errorCode: ErrMissingFilterName,
		},
		stateFilterName: {
			accept: []func(rune, *parser) stateID{
				func(r rune, p *parser) stateID {
					if IsIdentifierPart(r) {
						p.skip()
						p.lastFilter().Name += string(r)
						return stateFilterName
					}
					return noState
				},
				func(r rune, p *parser) stateID {
					if r == ':' {
						p.skip()
						return stateFilterArgument
					}
					return noState
				},
				func(rune, *parser) stateID { return stateFilterNoArgument },
			},
		},
		stateFilterArgument: {
			skipWhitespace: true,
			process: func(p *parser) string {
				value, ok := p.json()
				if !ok {
					return ErrInvalidJSONValue
				}
				f := p.lastFilter()
				f.Args = append(f.Args, value)
				return ""
			},
			accept: []func(rune, *parser) stateID{
				func(r rune, p *parser) stateID {
					if r == ',' {
						p.skip()
						return stateFilterArgument
					}
					return noState
				},
				pipeToFilter,
				func(rune, *parser) stateID { return stateEndFilter },
			},
		},
		stateFilterNoArgument: {
			skipWhitespace: true,
			accept: []func(rune, *parser) stateID{
				pipeToFilter,
				func(rune, *parser) stateID { return stateEndFilter },
			},
		},
		stateEndFilter: {
			skipWhitespace: true,
			final:          true,
		},
	}
}

func pipeToFilter(r rune, p *parser) stateID {
	if r == '|' {
		p.skip()
		return stateFilter
	}
	return noState
}

type parser struct {
	input string
	index int
	value *Expression
}

// Parse parses an expression starting at byte offset start. Trailing input after the
// expression is not an error here; callers check what follows Result.Index.
func Parse(input string, start int) Result {
	if start < 0 {
		start = 0
	}
	if start > len(input) {
		start = len(input)
	}
	p := &parser{input: input, index: start}
	return p.run()
}

func (p *parser) run() Result {
	current := stateStart
	for {
		st := &states[current]
		if st.skipWhitespace {
			p.skipWhitespace()
		}
		if st.process != nil {
			if code := st.process(p); code != "" {
				return Result{Index: p.index, ErrorCode: code}
			}
		}
		if st.final {
			return Result{Value: p.value, Index: p.index}
		}

		r := p.peek()
		next := noState
		for _, accept := range st.accept {
			if next = accept(r, p); next != noState {
				break
			}
		}
		if next == noState {
			code := st.errorCode
			if code == "" {
				code = ErrMissingValidFieldSelector
			}
			return Result{Index: p.index, ErrorCode: code}
		}
		current = next
	}
}

// peek answers the rune at the current index without consuming it
func (p *parser) peek() rune {
	if p.index >= len(p.input) {
		return endOfInput
	}
	r, size := utf8.DecodeRuneInString(p.input[p.index:])
	if r == utf8.RuneError && size == 1 {
		return invalidRune
	}
	return r
}

// skip consumes the rune at the current index
func (p *parser) skip() {
	if p.index >= len(p.input) {
		return
	}
	_, size := utf8.DecodeRuneInString(p.input[p.index:])
	p.index += size
}

func (p *parser) skipWhitespace() {
	for p.index < len(p.input) {
		r, size := utf8.DecodeRuneInString(p.input[p.index:])
		if !unicode.IsSpace(r) {
			return
		}
		p.index += size
	}
}

func (p *parser) lastFilter() *FilterRef {
	return &p.value.Filters[len(p.value.Filters)-1]
}

// json decodes a single JSON value at the current index and moves the index to just after
// the consumed characters.
func (p *parser) json() (any, bool) {
	value, consumed, ok := decodeJSON(p.input[p.index:])
	if !ok {
		return nil, false
	}
	p.index += consumed
	return value, true
}

// decodeJSON decodes the JSON value at the start of s and answers how many bytes it used,
// including trailing whitespace. The streaming decoder stops right after the value, so
// whatever follows (a comma, a pipe, closing braces) is left alone.
func decodeJSON(s string) (any, int, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, 0, false
	}
	consumed := int(dec.InputOffset())
	for consumed < len(s) {
		r, size := utf8.DecodeRuneInString(s[consumed:])
		if !unicode.IsSpace(r) {
			break
		}
		consumed += size
	}
	return value, consumed, true
}
