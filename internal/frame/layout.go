package frame

import "github.com/gogpu/gputypes"

// Bar is one horizontal bar of a frame.
type Bar struct {
	Label string
	Value float64
	// Max is the value of a full bar. Values <= 0 mean 1.
	Max   float64
	Text  string
	Color gputypes.Color
}

// Fraction returns Value/Max clamped to [0,1].
func (b Bar) Fraction() float64 {
	maxv := b.Max
	if maxv <= 0 {
		maxv = 1
	}
	f := b.Value / maxv
	switch {
	case f != f, f < 0: // NaN or negative
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Layout is the content of one frame.
type Layout struct {
	Width, Height int
	Background    gputypes.Color
	Title         string
	Bars          []Bar
}

// Default frame size used when a layout leaves it unset.
const (
	DefaultWidth  = 480
	DefaultHeight = 270
)

func (l Layout) size() (int, int) {
	w, h := l.Width, l.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}
