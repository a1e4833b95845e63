package filter

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/livefir/livebind/internal/expr"
	"github.com/livefir/livebind/transition"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/ncruces/go-strftime"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Defaults registers the built-in filters on reg
func Defaults(reg *Registry) {
	plain := map[string]Func{
		// Generic
		"default":      defaultValue,
		"emptyDefault": emptyDefault,
		"equals":       equals,
		"length":       length,
		"format":       formatFilter(reg),

		// Strings
		"upper":   upper,
		"lower":   lower,
		"prefix":  prefix,
		"postfix": postfix,
		"substr":  substr,

		// Numbers, dates and booleans
		"numberFormat": numberFormat,
		"timeFormat":   timeFormat,
		"not":          not,

		// Sequences
		"subarr":  subarr,
		"sort":    sortFilter,
		"shuffle": shuffle,

		// Units and conversions
		"unit":      postfix,
		"color2rgb": color2rgb,

		// Repeat groups
		"repeatIndex":    func(c Call, _ any, _ ...any) any { return c.Index },
		"repeatPosition": func(c Call, _ any, _ ...any) any { return c.Index + 1 },
		"repeatLength":   func(c Call, _ any, _ ...any) any { return c.Length },
	}
	for name, fn := range plain {
		_ = reg.Register(name, fn)
	}

	tweens := map[string]Func{
		"interpolate":      interpolate,
		"interpolateColor": interpolateColor,
		"typewriter":       typewriter,
	}
	for name, fn := range tweens {
		_ = reg.RegisterTween(name, fn)
	}
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// intArg converts an argument to an integer, truncating towards zero
func intArg(args []any, i int, def int) int {
	if i >= len(args) || args[i] == nil {
		return def
	}
	f, ok := ToFloat(args[i])
	if !ok || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

func defaultValue(_ Call, value any, args ...any) any {
	if IsNil(value) {
		return arg(args, 0)
	}
	return value
}

func emptyDefault(_ Call, value any, args ...any) any {
	if !Truthy(value) {
		return arg(args, 0)
	}
	if n, ok := Len(value); ok && n == 0 {
		return arg(args, 0)
	}
	return value
}

func equals(_ Call, value any, args ...any) any {
	return StrictEqual(value, arg(args, 0))
}

func length(_ Call, value any, _ ...any) any {
	n, _ := Len(value)
	return n
}

// formatFilter answers the format filter: the argument is a format string with
// {field|filter} placeholders, each evaluated against the value.
func formatFilter(reg *Registry) Func {
	var cache sync.Map
	return func(c Call, value any, args ...any) any {
		format := ToString(arg(args, 0))
		parts, ok := cache.Load(format)
		if !ok {
			parsed, err := parseFormatString(format, reg)
			if err != nil {
				panic(err)
			}
			parts, _ = cache.LoadOrStore(format, parsed)
		}

		var b strings.Builder
		for _, part := range parts.([]formatPart) {
			if part.fn == nil {
				b.WriteString(part.text)
				continue
			}
			fieldValue, err := part.fn.Eval(c, value)
			if err != nil {
				panic(err)
			}
			b.WriteString(ToString(fieldValue))
		}
		return b.String()
	}
}

type formatPart struct {
	text string
	fn   *DataFunc
}

func parseFormatString(format string, reg *Registry) ([]formatPart, error) {
	var parts []formatPart
	index := 0
	for index < len(format) {
		open := strings.IndexByte(format[index:], '{')
		if open < 0 {
			parts = append(parts, formatPart{text: format[index:]})
			break
		}
		open += index
		if open > index {
			parts = append(parts, formatPart{text: format[index:open]})
		}

		result := expr.Parse(format, open+1)
		if !result.OK() {
			return nil, fmt.Errorf("invalid format string %q: %s", format, result.ErrorCode)
		}
		if result.Index >= len(format) || format[result.Index] != '}' {
			return nil, fmt.Errorf("invalid format string %q: %s", format, expr.ErrExtraCharacters)
		}
		parts = append(parts, formatPart{fn: Compile(result.Value, reg)})
		index = result.Index + 1
	}
	return parts, nil
}

func upper(_ Call, value any, _ ...any) any {
	if !Truthy(value) {
		return ""
	}
	return cases.Upper(language.Und).String(ToString(value))
}

func lower(_ Call, value any, _ ...any) any {
	if !Truthy(value) {
		return ""
	}
	return cases.Lower(language.Und).String(ToString(value))
}

func prefix(_ Call, value any, args ...any) any {
	return ToString(arg(args, 0)) + ToString(value)
}

func postfix(_ Call, value any, args ...any) any {
	return ToString(value) + ToString(arg(args, 0))
}

// substr answers length characters starting at from. A negative from counts from the
// end; a missing length runs to the end.
func substr(_ Call, value any, args ...any) any {
	if !Truthy(value) {
		return ""
	}
	runes := []rune(ToString(value))
	n := len(runes)
	start := intArg(args, 0, 0)
	if start < 0 {
		start = max(n+start, 0)
	}
	start = min(start, n)
	end := n
	if len(args) > 1 && args[1] != nil {
		count := intArg(args, 1, 0)
		if count <= 0 {
			return ""
		}
		end = min(start+count, n)
	}
	return string(runes[start:end])
}

func numberFormat(_ Call, value any, args ...any) any {
	formatted, err := FormatNumberSpec(ToString(arg(args, 0)), value)
	if err != nil {
		panic(err)
	}
	return formatted
}

// toTime converts times, RFC 3339 strings and millisecond epoch numbers
func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
		return time.Time{}, false
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if f, ok := number(value); ok {
		return time.UnixMilli(int64(f)), true
	}
	return time.Time{}, false
}

func timeFormat(_ Call, value any, args ...any) any {
	t, ok := toTime(value)
	if !ok {
		return ""
	}
	return strftime.Format(ToString(arg(args, 0)), t)
}

func not(_ Call, value any, _ ...any) any {
	return !Truthy(value)
}

// subarr slices a sequence. A negative from counts from the end; length counts from from.
func subarr(_ Call, value any, args ...any) any {
	if IsNil(value) {
		return value
	}
	rv := reflect.ValueOf(value)
	var n int
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n = rv.Len()
	case reflect.String:
		n = len([]rune(rv.String()))
	default:
		return value
	}

	from := intArg(args, 0, 0)
	start := from
	if start < 0 {
		start = max(start+n, 0)
	}
	start = min(start, n)
	end := n
	if len(args) > 1 && args[1] != nil {
		end = from + intArg(args, 1, 0)
		if from < 0 {
			end += n
		}
		if end < 0 {
			end = max(end+n, 0)
		}
		end = min(end, n)
	}
	end = max(end, start)

	switch rv.Kind() {
	case reflect.String:
		return string([]rune(rv.String())[start:end])
	case reflect.Array:
		slice := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), end-start, end-start)
		for i := start; i < end; i++ {
			slice.Index(i - start).Set(rv.Index(i))
		}
		return slice.Interface()
	}
	return rv.Slice(start, end).Interface()
}

// copySequence answers a copy of a slice or array as a slice of the same element type
func copySequence(value any) (reflect.Value, bool) {
	if IsNil(value) {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, false
	}
	copied := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), rv.Len(), rv.Len())
	reflect.Copy(copied, rv)
	return copied, true
}

type sortField struct {
	name       string
	descending bool
}

func parseSortFields(spec string) []sortField {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	var fields []sortField
	for _, raw := range strings.Split(spec, ",") {
		raw = strings.TrimSpace(raw)
		field := sortField{name: raw}
		switch {
		case strings.HasPrefix(raw, "+"):
			field.name = raw[1:]
		case strings.HasPrefix(raw, "-"):
			field.name = raw[1:]
			field.descending = true
		}
		fields = append(fields, field)
	}
	return fields
}

// sortFilter answers a stably sorted copy of a sequence. The optional argument lists the
// fields to sort on, like "-date,+name".
func sortFilter(_ Call, value any, args ...any) any {
	sorted, ok := copySequence(value)
	if !ok {
		return value
	}
	var fields []sortField
	if spec, ok := arg(args, 0).(string); ok {
		fields = parseSortFields(spec)
	}
	collator := collate.New(language.Und)

	sort.SliceStable(sorted.Interface(), func(i, j int) bool {
		a, b := sorted.Index(i).Interface(), sorted.Index(j).Interface()
		if len(fields) == 0 {
			return compareValues(collator, a, b) < 0
		}
		for _, f := range fields {
			c := compareValues(collator, Field(a, f.name), Field(b, f.name))
			if c == 0 {
				continue
			}
			if f.descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sorted.Interface()
}

// compareValues compares strings with the collator, numbers and times by value. Values
// that cannot be ordered compare equal.
func compareValues(collator *collate.Collator, a, b any) int {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return collator.CompareString(sa, sb)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		return cmp.Compare(fa, fb)
	}
	return 0
}

func shuffle(_ Call, value any, _ ...any) any {
	shuffled, ok := copySequence(value)
	if !ok {
		return value
	}
	swap := reflect.Swapper(shuffled.Interface())
	rand.Shuffle(shuffled.Len(), swap)
	return shuffled.Interface()
}

func toColor(value any) (colorful.Color, bool) {
	switch v := value.(type) {
	case colorful.Color:
		return v, true
	case *colorful.Color:
		if v != nil {
			return *v, true
		}
		return colorful.Color{}, false
	}
	return transition.ParseColor(ToString(value))
}

func color2rgb(_ Call, value any, _ ...any) any {
	if c, ok := toColor(value); ok {
		return transition.FormatRGB(c)
	}
	return ToString(value)
}

// interpolate tweens numbers from the argument (or 0) to the value. Other values
// interpolate as strings.
func interpolate(_ Call, value any, args ...any) any {
	if to, ok := number(value); ok {
		from, _ := ToFloat(arg(args, 0))
		if math.IsNaN(from) {
			from = 0
		}
		blend := transition.InterpolateNumber(from, to)
		return Tween(func(t float64) any { return blend(t) })
	}
	blend := transition.Interpolate(ToString(arg(args, 0)), ToString(value))
	return Tween(func(t float64) any { return blend(t) })
}

// interpolateColor tweens from the argument color to the value color
func interpolateColor(_ Call, value any, args ...any) any {
	to, ok := toColor(value)
	if !ok {
		return Tween(func(float64) any { return ToString(value) })
	}
	from, ok := toColor(arg(args, 0))
	if !ok {
		from = to
	}
	blend := transition.InterpolateColor(from, to)
	return Tween(func(t float64) any { return transition.FormatRGB(blend(t)) })
}

// typewriter reveals the characters of the value as progress grows
func typewriter(_ Call, value any, _ ...any) any {
	runes := []rune(ToString(value))
	return Tween(func(t float64) any {
		n := int(float64(len(runes)) * t)
		n = max(0, min(n, len(runes)))
		return string(runes[:n])
	})
}
