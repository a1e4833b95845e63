package transition

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var numberPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.?\d+)(?:[eE][-+]?\d+)?`)

// InterpolateNumber answers a function blending a into b
func InterpolateNumber(a, b float64) func(t float64) float64 {
	return func(t float64) float64 {
		return a*(1-t) + b*t
	}
}

// InterpolateString interpolates the numbers embedded in b, starting from the numbers at
// the same positions in a. The text around the numbers is taken from b. A target without
// numbers keeps a until the end.
func InterpolateString(a, b string) func(t float64) string {
	bLocs := numberPattern.FindAllStringIndex(b, -1)
	if len(bLocs) == 0 {
		return func(t float64) string {
			if t >= 1 {
				return b
			}
			return a
		}
	}
	aNumbers := numberPattern.FindAllString(a, -1)

	type part struct {
		text   string
		interp func(float64) float64
	}
	var parts []part
	last := 0
	for i, loc := range bLocs {
		if loc[0] > last {
			parts = append(parts, part{text: b[last:loc[0]]})
		}
		to, _ := strconv.ParseFloat(b[loc[0]:loc[1]], 64)
		from := to
		if i < len(aNumbers) {
			if v, err := strconv.ParseFloat(aNumbers[i], 64); err == nil {
				from = v
			}
		}
		parts = append(parts, part{interp: InterpolateNumber(from, to)})
		last = loc[1]
	}
	if last < len(b) {
		parts = append(parts, part{text: b[last:]})
	}

	return func(t float64) string {
		if t >= 1 {
			return b
		}
		var sb strings.Builder
		for _, p := range parts {
			if p.interp != nil {
				sb.WriteString(formatNumber(p.interp(t)))
			} else {
				sb.WriteString(p.text)
			}
		}
		return sb.String()
	}
}

// Interpolate picks the interpolator for two attribute or style values: colors blend in
// RGB, anything else goes through InterpolateString.
func Interpolate(a, b string) func(t float64) string {
	if cb, ok := ParseColor(b); ok {
		ca, ok := ParseColor(a)
		if !ok {
			ca = cb
		}
		blend := InterpolateColor(ca, cb)
		return func(t float64) string {
			if t >= 1 {
				return b
			}
			return FormatRGB(blend(t))
		}
	}
	return InterpolateString(a, b)
}

// InterpolateColor blends two colors in RGB space
func InterpolateColor(a, b colorful.Color) func(t float64) colorful.Color {
	return func(t float64) colorful.Color {
		return a.BlendRgb(b, t).Clamped()
	}
}

// FormatRGB formats a color the way CSS serializes it, "rgb(r, g, b)"
func FormatRGB(c colorful.Color) string {
	r, g, b := c.Clamped().RGB255()
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}

var rgbPattern = regexp.MustCompile(`^rgba?\(\s*([-+]?[\d.]+%?)\s*,\s*([-+]?[\d.]+%?)\s*,\s*([-+]?[\d.]+%?)\s*(?:,\s*[-+]?[\d.]+%?\s*)?\)$`)

// named holds the basic CSS color keywords
var named = map[string]string{
	"black":   "#000000",
	"silver":  "#c0c0c0",
	"gray":    "#808080",
	"grey":    "#808080",
	"white":   "#ffffff",
	"maroon":  "#800000",
	"red":     "#ff0000",
	"purple":  "#800080",
	"fuchsia": "#ff00ff",
	"magenta": "#ff00ff",
	"green":   "#008000",
	"lime":    "#00ff00",
	"olive":   "#808000",
	"yellow":  "#ffff00",
	"navy":    "#000080",
	"blue":    "#0000ff",
	"teal":    "#008080",
	"aqua":    "#00ffff",
	"cyan":    "#00ffff",
	"orange":  "#ffa500",
	"pink":    "#ffc0cb",
	"brown":   "#a52a2a",
	"gold":    "#ffd700",
	"indigo":  "#4b0082",
	"violet":  "#ee82ee",
}

// ParseColor parses hex (#rgb, #rrggbb), rgb()/rgba() and basic named colors
func ParseColor(s string) (colorful.Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := named[s]; ok {
		s = hex
	}
	if strings.HasPrefix(s, "#") {
		if len(s) == 4 {
			s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return colorful.Color{}, false
		}
		return c, true
	}
	m := rgbPattern.FindStringSubmatch(s)
	if m == nil {
		return colorful.Color{}, false
	}
	var channels [3]float64
	for i := range channels {
		v, ok := parseChannel(m[i+1])
		if !ok {
			return colorful.Color{}, false
		}
		channels[i] = v
	}
	return colorful.Color{R: channels[0], G: channels[1], B: channels[2]}.Clamped(), true
}

func parseChannel(s string) (float64, bool) {
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		return v / 100, err == nil
	}
	v, err := strconv.ParseFloat(s, 64)
	return v / 255, err == nil
}

// formatNumber writes interpolated numbers without float noise beyond what is visible
func formatNumber(v float64) string {
	if math.Abs(v) < 1e-12 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
