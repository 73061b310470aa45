// Package highlight renders search matches, either as transient view-space
// overlay regions or by baking translucent rectangles into an independent
// copy of the source PDF.
package highlight

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an sRGB color with 8-bit channels.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Default highlight palette.
var (
	Yellow = Color{R: 0xFF, G: 0xEB, B: 0x3B}
	Orange = Color{R: 0xFF, G: 0x98, B: 0x00}
)

// DefaultOpacity is the fill opacity for non-active highlight regions.
const DefaultOpacity = 0.35

// ParseHex parses "#RRGGBB", "RRGGBB" or the short "#RGB" form.
func ParseHex(s string) (Color, error) {
	hexPart := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hexPart) {
	case 6:
		// Full form below.
	case 3:
		hexPart = string([]byte{
			hexPart[0], hexPart[0],
			hexPart[1], hexPart[1],
			hexPart[2], hexPart[2],
		})
	default:
		return Color{}, fmt.Errorf("invalid hex color %q: want #RRGGBB", s)
	}

	v, err := strconv.ParseUint(hexPart, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return Color{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}

// RGB returns the 0-255 channel values used by raster and PDF surfaces.
func (c Color) RGB() (r, g, b int) {
	return int(c.R), int(c.G), int(c.B)
}

// Normalized returns the [0,1] channel values used by float-channel
// surfaces.
func (c Color) Normalized() (r, g, b float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

// Hex returns the canonical "#rrggbb" form.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
