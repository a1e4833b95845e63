package filter

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// numberSpec is a parsed number format specifier:
//
//	[[fill]align][sign][symbol][0][width][,][.precision][~][type]
type numberSpec struct {
	fill      string
	align     byte
	sign      byte
	symbol    byte
	zero      bool
	width     int
	comma     bool
	precision int
	trim      bool
	typ       byte
}

var specPattern = regexp.MustCompile(`^(?:(.)?([<>=^]))?([+\-( ])?([$#])?(0)?(\d+)?(,)?(\.\d+)?(~)?([a-zA-Z%])?$`)

var specCache sync.Map

func parseNumberSpec(s string) (numberSpec, error) {
	if cached, ok := specCache.Load(s); ok {
		return cached.(numberSpec), nil
	}
	m := specPattern.FindStringSubmatch(s)
	if m == nil {
		return numberSpec{}, fmt.Errorf("invalid number format: %q", s)
	}
	spec := numberSpec{fill: " ", align: '>', sign: '-', precision: -1}
	if m[1] != "" {
		spec.fill = m[1]
	}
	if m[2] != "" {
		spec.align = m[2][0]
	}
	if m[3] != "" {
		spec.sign = m[3][0]
	}
	if m[4] != "" {
		spec.symbol = m[4][0]
	}
	spec.zero = m[5] != ""
	if m[6] != "" {
		spec.width, _ = strconv.Atoi(m[6])
	}
	spec.comma = m[7] != ""
	if m[8] != "" {
		spec.precision, _ = strconv.Atoi(m[8][1:])
	}
	spec.trim = m[9] != ""
	if m[10] != "" {
		spec.typ = m[10][0]
	}

	if spec.zero || (spec.fill == "0" && spec.align == '=') {
		spec.zero = true
		spec.fill = "0"
		spec.align = '='
	}
	if spec.typ == 'n' {
		spec.comma = true
		spec.typ = 'g'
	}
	if !strings.ContainsRune("%bcdeEfgGoprsxX", rune(spec.typ)) || spec.typ == 0 {
		if spec.precision < 0 {
			spec.precision = 12
		}
		spec.trim = true
		spec.typ = 'g'
	}
	switch {
	case spec.precision < 0:
		spec.precision = 6
	case strings.ContainsRune("gprs", rune(spec.typ)):
		spec.precision = max(1, min(21, spec.precision))
	default:
		spec.precision = max(0, min(20, spec.precision))
	}

	specCache.Store(s, spec)
	return spec, nil
}

// FormatNumberSpec formats value with a number format specifier such as ",.2f", "+.3s",
// ".0%" or "08.3f". Values that are not numbers format as NaN.
func FormatNumberSpec(specifier string, value any) (string, error) {
	spec, err := parseNumberSpec(specifier)
	if err != nil {
		return "", err
	}
	x, _ := ToFloat(value)
	return spec.format(x), nil
}

func (spec numberSpec) format(x float64) string {
	prefix, suffix := "", ""
	switch {
	case spec.symbol == '$':
		prefix = "$"
	case spec.symbol == '#' && spec.typ == 'b':
		prefix = "0b"
	case spec.symbol == '#' && spec.typ == 'o':
		prefix = "0o"
	case spec.symbol == '#' && (spec.typ == 'x' || spec.typ == 'X'):
		prefix = "0x"
	}
	if spec.typ == '%' || spec.typ == 'p' {
		suffix = "%"
	}

	negative := x < 0 || (x == 0 && math.Signbit(x))
	var value string
	si := ""
	if math.IsNaN(x) {
		value = "NaN"
	} else {
		abs := math.Abs(x)
		switch spec.typ {
		case 's':
			value, si = formatPrefixAuto(abs, spec.precision)
		case 'c':
			value = string(rune(int(abs)))
		default:
			value = formatType(spec.typ, abs, spec.precision)
		}
		if spec.trim {
			value = trimInsignificant(value)
		}
		if negative {
			if f, err := strconv.ParseFloat(value, 64); err == nil && f == 0 && spec.sign != '+' {
				negative = false
			}
		}
	}

	var valuePrefix string
	switch {
	case negative && spec.sign == '(':
		valuePrefix = "("
	case negative:
		valuePrefix = "-"
	case spec.sign == '-' || spec.sign == '(':
		valuePrefix = ""
	default:
		valuePrefix = string(spec.sign)
	}
	valuePrefix += prefix
	valueSuffix := si + suffix
	if negative && spec.sign == '(' {
		valueSuffix += ")"
	}

	// Split off everything after the integer digits so grouping only touches them
	if strings.ContainsRune("efgprs%", rune(spec.typ)) {
		for i, r := range value {
			if r < '0' || r > '9' {
				valueSuffix = value[i:] + valueSuffix
				value = value[:i]
				break
			}
		}
	}
	if spec.comma {
		value = group(value)
	}

	length := len([]rune(valuePrefix + value + valueSuffix))
	padding := ""
	if length < spec.width {
		padding = strings.Repeat(spec.fill, spec.width-length)
	}

	switch spec.align {
	case '<':
		return valuePrefix + value + valueSuffix + padding
	case '=':
		return valuePrefix + padding + value + valueSuffix
	case '^':
		half := len([]rune(padding)) / 2
		runes := []rune(padding)
		return string(runes[:half]) + valuePrefix + value + valueSuffix + string(runes[half:])
	}
	return padding + valuePrefix + value + valueSuffix
}

func formatType(typ byte, x float64, p int) string {
	switch typ {
	case '%':
		return strconv.FormatFloat(x*100, 'f', p, 64)
	case 'b':
		return strconv.FormatInt(int64(math.Round(x)), 2)
	case 'o':
		return strconv.FormatInt(int64(math.Round(x)), 8)
	case 'x':
		return strconv.FormatInt(int64(math.Round(x)), 16)
	case 'X':
		return strings.ToUpper(strconv.FormatInt(int64(math.Round(x)), 16))
	case 'd':
		return strconv.FormatFloat(math.Round(x), 'f', 0, 64)
	case 'e':
		return jsExponent(strconv.FormatFloat(x, 'e', p, 64))
	case 'E':
		return strings.ToUpper(jsExponent(strconv.FormatFloat(x, 'e', p, 64)))
	case 'f':
		return strconv.FormatFloat(x, 'f', p, 64)
	case 'g':
		return toPrecision(x, p)
	case 'G':
		return strings.ToUpper(toPrecision(x, p))
	case 'p':
		return formatRounded(x*100, p)
	case 'r':
		return formatRounded(x, p)
	}
	return FormatNumber(x)
}

// toPrecision mirrors Number#toPrecision
func toPrecision(x float64, p int) string {
	if x == 0 {
		return strconv.FormatFloat(0, 'f', p-1, 64)
	}
	_, exponent := decimalParts(x, p)
	if exponent < -6 || exponent >= p {
		return jsExponent(strconv.FormatFloat(x, 'e', p-1, 64))
	}
	return strconv.FormatFloat(x, 'f', p-1-exponent, 64)
}

// decimalParts answers the significant digits of x rounded to p digits and the decimal
// exponent of the first one
func decimalParts(x float64, p int) (string, int) {
	s := strconv.FormatFloat(x, 'e', max(p-1, 0), 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	exponent, _ := strconv.Atoi(exp)
	return strings.Replace(mantissa, ".", "", 1), exponent
}

// formatRounded writes x rounded to p significant digits in fixed notation
func formatRounded(x float64, p int) string {
	digits, exponent := decimalParts(x, p)
	switch {
	case exponent < 0:
		return "0." + strings.Repeat("0", -exponent-1) + digits
	case len(digits) > exponent+1:
		return digits[:exponent+1] + "." + digits[exponent+1:]
	default:
		return digits + strings.Repeat("0", exponent-len(digits)+1)
	}
}

// formatPrefixAuto writes x with p significant digits scaled to an SI prefix
func formatPrefixAuto(x float64, p int) (string, string) {
	digits, exponent := decimalParts(x, p)
	prefixExponent := max(-8, min(8, floorDiv(exponent, 3)))
	i := exponent - prefixExponent*3 + 1
	n := len(digits)

	var value string
	switch {
	case i == n:
		value = digits
	case i > n:
		value = digits + strings.Repeat("0", i-n)
	case i > 0:
		value = digits[:i] + "." + digits[i:]
	default:
		more, _ := decimalParts(x, max(0, p+i-1))
		value = "0." + strings.Repeat("0", -i) + more
	}
	return value, siPrefix(prefixExponent)
}

func floorDiv(a, b int) int {
	return int(math.Floor(float64(a) / float64(b)))
}

// siPrefix answers the SI prefix symbol for 10^(3*exponent)
func siPrefix(exponent int) string {
	if exponent == 0 {
		return ""
	}
	// A mantissa of 2 keeps the magnitude away from power-of-ten rounding edges
	_, prefix := humanize.ComputeSI(2 * math.Pow10(exponent*3))
	return prefix
}

// trimInsignificant removes trailing zeros after the decimal point, and the point itself
// when nothing is left after it
func trimInsignificant(s string) string {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	end := len(s)
	for i := dot + 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			end = i
			break
		}
	}
	fraction := strings.TrimRight(s[dot:end], "0")
	if fraction == "." {
		fraction = ""
	}
	return s[:dot] + fraction + s[end:]
}

// group inserts thousands separators into a string of digits
func group(digits string) string {
	if len(digits) <= 3 || len(digits) > 18 {
		return digits
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return digits
	}
	grouped := message.NewPrinter(language.English).Sprintf("%d", n)
	// Keep leading zeros from zero padding
	if lead := len(digits) - len(strings.TrimLeft(digits, "0")); lead > 0 && n != 0 {
		grouped = digits[:lead] + grouped
	}
	return grouped
}
