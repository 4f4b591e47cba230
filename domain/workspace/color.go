package workspace

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"

	"gocalc/domain/core"
)

// ColorFunc produces a display color for a pinned set
type ColorFunc func() string

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// RandomColor picks a vivid color: any hue, saturation 0.50-0.85,
// lightness 0.45-0.70.
func RandomColor() string {
	return HSLToHex(rand.Float64()*360, 0.5+rand.Float64()*0.35, 0.45+rand.Float64()*0.25)
}

// HSLToHex converts hue (degrees), saturation and lightness (0-1) to #rrggbb
func HSLToHex(h, s, l float64) string {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	to8 := func(v float64) int { return int(math.Round((v + m) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to8(r), to8(g), to8(b))
}

// NormalizeColor validates a #rrggbb color and lowercases it
func NormalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if !hexColor.MatchString(color) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidColor, color)
	}
	return strings.ToLower(color), nil
}
