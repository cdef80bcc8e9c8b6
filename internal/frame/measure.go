package frame

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// DefaultWidthCacheSize is the soft limit of the advance cache.
const DefaultWidthCacheSize = 256

// Measurer shapes strings with HarfBuzz and returns their advance.
// Results are cached per string and size.
//
// Measurer is safe for concurrent use.
type Measurer struct {
	mu     sync.Mutex
	font   *gtfont.Font
	shaper shaping.HarfbuzzShaper
	cache  *widthCache
}

// NewMeasurer parses an OpenType or TrueType font.
func NewMeasurer(ttf []byte) (*Measurer, error) {
	face, err := gtfont.ParseTTF(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("frame: parsing font: %w", err)
	}
	return &Measurer{
		font:  face.Font,
		cache: newWidthCache(DefaultWidthCacheSize),
	}, nil
}

// Advance returns the horizontal advance of s at size points.
func (m *Measurer) Advance(s string, size float64) fixed.Int26_6 {
	if s == "" || size <= 0 {
		return 0
	}
	key := widthKey{text: s, size: fixed.Int26_6(size * 64)}

	m.mu.Lock()
	defer m.mu.Unlock()

	if adv, ok := m.cache.get(key); ok {
		return adv
	}

	runes := []rune(s)
	out := m.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      gtfont.NewFace(m.font),
		Size:      key.size,
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	})

	var adv fixed.Int26_6
	for _, g := range out.Glyphs {
		adv += g.XAdvance
	}
	m.cache.set(key, adv)
	return adv
}

// CacheLen returns the number of cached advances.
func (m *Measurer) CacheLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache.len()
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
