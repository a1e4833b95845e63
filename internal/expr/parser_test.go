package expr

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FieldSelectors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		identity  bool
		fields    []string
		wantIndex int
	}{
		{name: "identity", input: ".", identity: true, wantIndex: 1},
		{name: "identity with whitespace", input: "  .  ", identity: true, wantIndex: 5},
		{name: "double dot stops after first", input: "..a", identity: true, wantIndex: 1},
		{name: "dot followed by quote stops", input: `."a"`, identity: true, wantIndex: 1},
		{name: "single field", input: "x", fields: []string{"x"}, wantIndex: 1},
		{name: "path", input: "x.y.z", fields: []string{"x", "y", "z"}, wantIndex: 5},
		{name: "path with spaces", input: "x . y", fields: []string{"x", "y"}, wantIndex: 5},
		{name: "quoted segment", input: `x1."y.y".z`, fields: []string{"x1", "y.y", "z"}, wantIndex: 10},
		{name: "quoted only", input: `"hello world"`, fields: []string{"hello world"}, wantIndex: 13},
		{name: "dollar and underscore", input: "$a._b9", fields: []string{"$a", "_b9"}, wantIndex: 6},
		{name: "non-ascii identifier", input: "größe.ähm", fields: []string{"größe", "ähm"}, wantIndex: len("größe.ähm")},
		{name: "stops at unknown character", input: "x}}", fields: []string{"x"}, wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input, 0)
			require.True(t, result.OK(), "unexpected error %s", result.ErrorCode)
			assert.Equal(t, tt.identity, result.Value.Identity)
			if tt.fields == nil {
				assert.Empty(t, result.Value.Fields)
			} else {
				assert.Equal(t, tt.fields, result.Value.Fields)
			}
			assert.Equal(t, tt.wantIndex, result.Index)
			assert.Empty(t, result.Value.Filters)
		})
	}
}

func TestParse_Filters(t *testing.T) {
	result := Parse(`x|f:1,2|g|h:null`, 0)
	require.True(t, result.OK())

	filters := result.Value.Filters
	require.Len(t, filters, 3)
	assert.Equal(t, "f", filters[0].Name)
	assert.Equal(t, []any{1.0, 2.0}, filters[0].Args)
	assert.Equal(t, "g", filters[1].Name)
	assert.Equal(t, []any{}, filters[1].Args)
	assert.Equal(t, "h", filters[2].Name)
	assert.Equal(t, []any{nil}, filters[2].Args)
	assert.Equal(t, 16, result.Index)
}

func TestParse_FilterArguments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  []any
	}{
		{"string", `.|prefix:"a|b"`, []any{"a|b"}},
		{"array", `.|f:[1,"two",true]`, []any{[]any{1.0, "two", true}}},
		{"object", `.|f:{"a":{"b":null}}`, []any{map[string]any{"a": map[string]any{"b": nil}}}},
		{"spaces between arguments", `. | substr: 1 , 3 `, []any{1.0, 3.0}},
		{"negative number", `.|substr:-3`, []any{-3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input, 0)
			require.True(t, result.OK(), "unexpected error %s", result.ErrorCode)
			require.Len(t, result.Value.Filters, 1)
			assert.Equal(t, tt.args, result.Value.Filters[0].Args)
			assert.Equal(t, len(tt.input), result.Index)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"empty", "", ErrMissingValidFieldSelector},
		{"whitespace", "   ", ErrMissingValidFieldSelector},
		{"digit first", "1abc", ErrMissingValidFieldSelector},
		{"trailing dot", "x.", ErrMissingValidFieldSelector},
		{"double dot in path", "x..y", ErrMissingValidFieldSelector},
		{"digit after dot", "x.1", ErrMissingValidFieldSelector},
		{"pipe at end", "x|", ErrMissingFilterName},
		{"pipe without name", "x| :1", ErrMissingFilterName},
		{"double pipe", "x||f", ErrMissingFilterName},
		{"identity pipe at end", ".|", ErrMissingFilterName},
		{"unterminated quoted field", `"abc`, ErrInvalidJSONValue},
		{"invalid argument", `x|f:abc`, ErrInvalidJSONValue},
		{"missing argument", `x|f:`, ErrInvalidJSONValue},
		{"invalid utf-8 field", "\xff", ErrMissingValidFieldSelector},
		{"invalid utf-8 after dot", "x.\xffy", ErrMissingValidFieldSelector},
		{"invalid utf-8 filter name", "x|\xff", ErrMissingFilterName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input, 0)
			assert.False(t, result.OK())
			assert.Nil(t, result.Value)
			assert.Equal(t, tt.code, result.ErrorCode)
		})
	}
}

func TestParse_StartIndex(t *testing.T) {
	input := "{{ person.name|upper }}"
	result := Parse(input, 2)
	require.True(t, result.OK())
	assert.Equal(t, []string{"person", "name"}, result.Value.Fields)
	assert.Equal(t, "}}", input[result.Index:])

	t.Run("start beyond input", func(t *testing.T) {
		result := Parse("abc", 10)
		assert.False(t, result.OK())
		assert.Equal(t, 3, result.Index)
	})
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		".",
		". | upper",
		"x",
		"x.y.z",
		`x1."y.y".z`,
		`x|f:1,2|g|h:null`,
		`items|sort:"-date,+name"|subarr:0,3`,
		`"a b"|default:{"k":[1,2]}`,
		"  spaced . path  |  trim  ",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first := Parse(input, 0)
			require.True(t, first.OK())
			assert.Equal(t, len(input), first.Index)

			again := Parse(input[:first.Index], 0)
			require.True(t, again.OK())
			assert.True(t, reflect.DeepEqual(first.Value, again.Value))

			canonical := Parse(first.Value.String(), 0)
			require.True(t, canonical.OK(), "canonical form %q failed", first.Value.String())
			assert.Equal(t, first.Value, canonical.Value)
		})
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantTag  bool
		wantCode string
		fields   []string
	}{
		{name: "plain text", value: "hello", wantTag: false},
		{name: "half open", value: "{{ x", wantTag: false},
		{name: "simple", value: "{{x}}", wantTag: true, fields: []string{"x"}},
		{name: "spaced", value: "  {{ a.b }}  ", wantTag: true, fields: []string{"a", "b"}},
		{name: "braces inside string argument", value: `{{x|postfix:"}}"}}`, wantTag: true, fields: []string{"x"}},
		{name: "extra characters", value: "{{x y}}", wantTag: true, wantCode: ErrExtraCharacters},
		{name: "empty tag", value: "{{}}", wantTag: true, wantCode: ErrMissingValidFieldSelector},
		{name: "bad filter", value: "{{x|}}", wantTag: true, wantCode: ErrMissingFilterName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, ok := ParseTag(tt.value, "{{", "}}")
			assert.Equal(t, tt.wantTag, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantCode, tag.ErrorCode)
			if tt.wantCode == "" {
				require.NotNil(t, tag.Expression)
				assert.Equal(t, tt.fields, tag.Expression.Fields)
			}
		})
	}

	t.Run("custom delimiters", func(t *testing.T) {
		tag, ok := ParseTag("[[ .|upper ]]", "[[", "]]")
		require.True(t, ok)
		require.Empty(t, tag.ErrorCode)
		assert.True(t, tag.Expression.Identity)
		assert.Equal(t, ".|upper", tag.Source)
	})
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("abc"))
	assert.True(t, IsIdentifier("$x1"))
	assert.True(t, IsIdentifier("é"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("1x"))
	assert.False(t, IsIdentifier("a-b"))
	assert.False(t, IsIdentifier("a.b"))
	assert.False(t, IsIdentifier("a\xff"))
	assert.True(t, IsIdentifier("a\uFFFD"))
}

func TestParse_InvalidUTF8EndsIdentifier(t *testing.T) {
	result := Parse("ab\xffc", 0)
	require.True(t, result.OK())
	assert.Equal(t, []string{"ab"}, result.Value.Fields)
	assert.Equal(t, 2, result.Index)

	result = Parse("x|up\xff", 0)
	require.True(t, result.OK())
	assert.Equal(t, "up", result.Value.Filters[0].Name)
	assert.Equal(t, 4, result.Index)
}
