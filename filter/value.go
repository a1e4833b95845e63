package filter

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// IsNil reports whether v is nil or a nil pointer, map, slice, func, chan or interface
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Truthy reports whether v counts as true in a condition: nil, false, zero, NaN and the
// empty string are false, nil references are false, everything else is true.
func Truthy(v any) bool {
	if IsNil(v) {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := number(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// number converts numeric kinds to float64
func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// ToFloat converts v to a number the way unary plus does: numbers as is, booleans to 0 or
// 1, numeric strings parsed, nil and the empty string to 0. Anything else is NaN and not ok.
func ToFloat(v any) (float64, bool) {
	if IsNil(v) {
		return 0, true
	}
	if f, ok := number(v); ok {
		return f, true
	}
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	}
	return math.NaN(), false
}

// ToString converts v to text for rendering. Numbers print like JavaScript numbers, nil
// prints as the empty string and sequences print their elements separated by commas.
func ToString(v any) string {
	if IsNil(v) {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return FormatNumber(x)
	case float32:
		return FormatNumber(float64(x))
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = ToString(e)
		}
		return strings.Join(parts, ",")
	}
	if f, ok := number(v); ok {
		return FormatNumber(f)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = ToString(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// FormatNumber formats a float the way JavaScript's Number#toString does
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return jsExponent(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// jsExponent rewrites Go's "1e+06" exponent style into JavaScript's "1e+6"
func jsExponent(s string) string {
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := "+"
	if exp != "" && (exp[0] == '+' || exp[0] == '-') {
		if exp[0] == '-' {
			sign = "-"
		}
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mantissa + "e" + sign + exp
}

// Len answers the length of a string (in characters) or a sequence, and whether v has one
func Len(v any) (int, bool) {
	if IsNil(v) {
		return 0, false
	}
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

// Sequence converts slices and arrays to []any. Other values are not sequences.
func Sequence(v any) ([]any, bool) {
	if IsNil(v) {
		if v != nil && reflect.ValueOf(v).Kind() == reflect.Slice {
			return []any{}, true
		}
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		seq := make([]any, rv.Len())
		for i := range seq {
			seq[i] = rv.Index(i).Interface()
		}
		return seq, true
	}
	return nil, false
}

// Field reads a named field of v. Maps are indexed by key, structs by field name, json tag
// or case-insensitive field name, sequences and strings by numeric index or "length".
// Pointers and interfaces are followed. Anything missing answers nil.
func Field(v any, name string) any {
	if IsNil(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if m, ok := rv.Interface().(map[string]any); ok {
			return m[name]
		}
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		value := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil
		}
		return value.Interface()

	case reflect.Struct:
		return structField(rv, name)

	case reflect.Slice, reflect.Array:
		if name == "length" {
			return rv.Len()
		}
		index, err := strconv.Atoi(name)
		if err != nil || index < 0 || index >= rv.Len() {
			return nil
		}
		return rv.Index(index).Interface()

	case reflect.String:
		runes := []rune(rv.String())
		if name == "length" {
			return len(runes)
		}
		index, err := strconv.Atoi(name)
		if err != nil || index < 0 || index >= len(runes) {
			return nil
		}
		return string(runes[index])
	}
	return nil
}

func structField(rv reflect.Value, name string) any {
	t := rv.Type()
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return rv.FieldByIndex(f.Index).Interface()
	}
	fallback := -1
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == name {
			return rv.Field(i).Interface()
		}
		if fallback < 0 && strings.EqualFold(f.Name, name) {
			fallback = i
		}
	}
	if fallback >= 0 {
		return rv.Field(fallback).Interface()
	}
	return nil
}

// Path walks a sequence of fields from v
func Path(v any, fields []string) any {
	for _, name := range fields {
		if v == nil {
			return nil
		}
		v = Field(v, name)
	}
	return v
}

// StrictEqual compares like JavaScript's ===: numbers by value regardless of their Go type,
// comparable values with ==, and references (maps, slices, funcs) by identity.
func StrictEqual(a, b any) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Pointer, reflect.Chan:
		return ra.Pointer() == rb.Pointer() && (ra.Kind() != reflect.Slice || ra.Len() == rb.Len())
	}
	if ra.Comparable() {
		return ra.Equal(rb)
	}
	return false
}
