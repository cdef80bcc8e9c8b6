// Package color converts between the linear colors carried by bound
// properties and the 8-bit sRGB colors used for scene files and images.
//
// Property values use gputypes.Color with linear RGB components in [0,1],
// the same convention as a render pass clear value. Alpha is always linear.
package color

import (
	"fmt"
	stdcolor "image/color"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// Hex parses #rgb, #rrggbb or #rrggbbaa in sRGB and returns the linear color.
func Hex(s string) (gputypes.Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return gputypes.Color{}, fmt.Errorf("color: invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return gputypes.Color{}, fmt.Errorf("color: invalid hex color %q: %w", s, err)
	}
	return FromNRGBA(stdcolor.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}), nil
}

// FormatHex returns c as #rrggbbaa in sRGB.
func FormatHex(c gputypes.Color) string {
	n := ToNRGBA(c)
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

// FromNRGBA converts an 8-bit sRGB color to linear.
func FromNRGBA(c stdcolor.NRGBA) gputypes.Color {
	return gputypes.Color{
		R: SRGBToLinear(float64(c.R) / 255),
		G: SRGBToLinear(float64(c.G) / 255),
		B: SRGBToLinear(float64(c.B) / 255),
		A: float64(c.A) / 255,
	}
}

// ToNRGBA converts a linear color to 8-bit sRGB.
// Components outside [0,1] are clamped.
func ToNRGBA(c gputypes.Color) stdcolor.NRGBA {
	return stdcolor.NRGBA{
		R: clampAndRound(LinearToSRGB(clamp01(c.R))),
		G: clampAndRound(LinearToSRGB(clamp01(c.G))),
		B: clampAndRound(LinearToSRGB(clamp01(c.B))),
		A: clampAndRound(c.A),
	}
}

// Lerp interpolates between a and b in linear space. t is clamped to [0,1].
func Lerp(a, b gputypes.Color, t float64) gputypes.Color {
	t = clamp01(t)
	return gputypes.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// clampAndRound clamps v to [0,1] and converts to uint8 with rounding.
func clampAndRound(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}
