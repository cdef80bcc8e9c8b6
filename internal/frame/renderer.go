package frame

import (
	"fmt"
	"image"
	stdcolor "image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/gogpu/bind/internal/color"
)

// DefaultFontSize is the label size in points at 72 DPI.
const DefaultFontSize = 14

const (
	margin      = 12
	barRadius   = 4
	maxBarRow   = 48
	labelColumn = 0.3 // share of the width used for labels
)

// Option configures a Renderer.
type Option func(*rendererOptions)

type rendererOptions struct {
	fontSize float64
	ttf      []byte
}

// WithFontSize sets the label size in points.
func WithFontSize(size float64) Option {
	return func(o *rendererOptions) {
		if size > 0 {
			o.fontSize = size
		}
	}
}

// WithFont replaces the built-in Go Regular font.
func WithFont(ttf []byte) Option {
	return func(o *rendererOptions) {
		if len(ttf) > 0 {
			o.ttf = ttf
		}
	}
}

// Renderer draws layouts into images.
// A Renderer must not be used from more than one goroutine at a time.
type Renderer struct {
	size     float64
	face     font.Face
	measurer *Measurer
	raster   *vector.Rasterizer
}

// NewRenderer creates a renderer with the Go Regular font unless WithFont
// is given.
func NewRenderer(opts ...Option) (*Renderer, error) {
	o := rendererOptions{fontSize: DefaultFontSize, ttf: goregular.TTF}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := opentype.Parse(o.ttf)
	if err != nil {
		return nil, fmt.Errorf("frame: parsing font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    o.fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("frame: creating face: %w", err)
	}
	m, err := NewMeasurer(o.ttf)
	if err != nil {
		_ = face.Close()
		return nil, err
	}
	return &Renderer{
		size:     o.fontSize,
		face:     face,
		measurer: m,
		raster:   vector.NewRasterizer(1, 1),
	}, nil
}

// Close releases the font face.
func (r *Renderer) Close() error {
	return r.face.Close()
}

// Measurer returns the measurer used for right-aligned text.
func (r *Renderer) Measurer() *Measurer { return r.measurer }

// Render draws l into a new image.
func (r *Renderer) Render(l Layout) *image.NRGBA {
	w, h := l.size()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.ToNRGBA(l.Background)), image.Point{}, draw.Src)

	fg := textColor(l.Background)
	ascent := r.face.Metrics().Ascent.Ceil()
	top := margin
	if l.Title != "" {
		r.drawText(img, l.Title, margin, top+ascent, fg)
		top += r.face.Metrics().Height.Ceil() + margin
	}
	if len(l.Bars) == 0 {
		return img
	}

	row := min((h-top-margin)/len(l.Bars), maxBarRow)
	if row <= 0 {
		return img
	}
	labelW := int(float64(w) * labelColumn)
	valueW := r.valueColumn(l.Bars)
	x0 := margin + labelW
	x1 := w - margin - valueW - margin
	track := stdcolor.NRGBA{R: fg.R, G: fg.G, B: fg.B, A: 0x30}

	for i, b := range l.Bars {
		y := top + i*row
		barH := row * 2 / 3
		baseline := y + (barH+ascent)/2
		r.drawText(img, b.Label, margin, baseline, fg)

		if x1 > x0 {
			r.fillRect(img, float32(x0), float32(y), float32(x1), float32(y+barH), track)
			if f := b.Fraction(); f > 0 {
				xf := float32(x0) + float32(f)*float32(x1-x0)
				r.fillRect(img, float32(x0), float32(y), xf, float32(y+barH), color.ToNRGBA(b.Color))
			}
		}

		if b.Text != "" {
			adv := r.measurer.Advance(b.Text, r.size).Ceil()
			r.drawText(img, b.Text, w-margin-adv, baseline, fg)
		}
	}
	return img
}

// WritePNG renders l and encodes it as PNG.
func (r *Renderer) WritePNG(w io.Writer, l Layout) error {
	if err := png.Encode(w, r.Render(l)); err != nil {
		return fmt.Errorf("frame: encoding png: %w", err)
	}
	return nil
}

func (r *Renderer) valueColumn(bars []Bar) int {
	var widest int
	for _, b := range bars {
		widest = max(widest, r.measurer.Advance(b.Text, r.size).Ceil())
	}
	return widest
}

func (r *Renderer) drawText(dst draw.Image, s string, x, y int, c stdcolor.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// fillRect fills a rectangle with rounded corners.
func (r *Renderer) fillRect(dst draw.Image, x0, y0, x1, y1 float32, c stdcolor.Color) {
	b := dst.Bounds()
	r.raster.Reset(b.Dx(), b.Dy())

	rad := min(float32(barRadius), (x1-x0)/2, (y1-y0)/2)
	z := r.raster
	z.MoveTo(x0+rad, y0)
	z.LineTo(x1-rad, y0)
	z.QuadTo(x1, y0, x1, y0+rad)
	z.LineTo(x1, y1-rad)
	z.QuadTo(x1, y1, x1-rad, y1)
	z.LineTo(x0+rad, y1)
	z.QuadTo(x0, y1, x0, y1-rad)
	z.LineTo(x0, y0+rad)
	z.QuadTo(x0, y0, x0+rad, y0)
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

// textColor picks black or white, whichever contrasts with bg.
func textColor(bg gputypes.Color) stdcolor.NRGBA {
	lum := 0.2126*bg.R + 0.7152*bg.G + 0.0722*bg.B
	if lum > 0.18 {
		return stdcolor.NRGBA{A: 0xff}
	}
	return stdcolor.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}
