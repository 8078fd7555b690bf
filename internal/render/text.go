package render

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/printdeck/studio/backend-go/internal/document"
)

// lineHeight is the line advance as a multiple of the font size.
const lineHeight = 1.2

type fontKey struct {
	mono   bool
	bold   bool
	italic bool
}

// Parsed fonts are shared; faces are not safe for concurrent use, so each
// render builds its own through a faceCache.
var loadFonts = sync.OnceValues(func() (map[fontKey]*opentype.Font, error) {
	sources := map[fontKey][]byte{
		{}:                                     goregular.TTF,
		{bold: true}:                           gobold.TTF,
		{italic: true}:                         goitalic.TTF,
		{bold: true, italic: true}:             gobolditalic.TTF,
		{mono: true}:                           gomono.TTF,
		{mono: true, bold: true}:               gomonobold.TTF,
		{mono: true, italic: true}:             gomonoitalic.TTF,
		{mono: true, bold: true, italic: true}: gomonobolditalic.TTF,
	}
	fonts := make(map[fontKey]*opentype.Font, len(sources))
	for k, ttf := range sources {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("parse font %+v: %w", k, err)
		}
		fonts[k] = f
	}
	return fonts, nil
})

// monoFamilies are the family names mapped to the monospaced face. Every other
// family falls back to the proportional sans face.
var monoFamilies = map[string]bool{
	"monospace":   true,
	"mono":        true,
	"courier":     true,
	"courier new": true,
	"consolas":    true,
	"go mono":     true,
}

func keyFor(run *TextRun) fontKey {
	return fontKey{
		mono:   monoFamilies[strings.ToLower(strings.TrimSpace(run.FontFamily))],
		bold:   run.Weight == document.FontWeightBold,
		italic: run.Style == document.FontStyleItalic,
	}
}

type faceKey struct {
	font fontKey
	size float64
}

// faceCache holds the faces used by one render.
type faceCache struct {
	faces map[faceKey]font.Face
}

func newFaceCache() *faceCache {
	return &faceCache{faces: make(map[faceKey]font.Face)}
}

func (c *faceCache) face(run *TextRun) (font.Face, error) {
	k := faceKey{font: keyFor(run), size: run.FontSize}
	if f, ok := c.faces[k]; ok {
		return f, nil
	}

	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}
	f, err := opentype.NewFace(fonts[k.font], &opentype.FaceOptions{
		Size:    run.FontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	c.faces[k] = f
	return f, nil
}

func (c *faceCache) Close() {
	for _, f := range c.faces {
		_ = f.Close()
	}
}

// textLine is one laid-out line: its content, pen start x and baseline y in
// box pixels.
type textLine struct {
	text     string
	x        fixed.Int26_6
	baseline fixed.Int26_6
	width    fixed.Int26_6
}

// layoutText breaks content into lines that fit width, honoring explicit
// newlines, and positions them top-down with the requested alignment. A
// single word longer than width gets a line of its own.
func layoutText(face font.Face, run *TextRun, width float64) []textLine {
	metrics := face.Metrics()
	advance := fixed.Int26_6(math.Round(run.FontSize * lineHeight * 64))
	boxW := fixed.Int26_6(math.Round(width * 64))

	var lines []textLine
	baseline := metrics.Ascent
	emit := func(s string) {
		w := font.MeasureString(face, s)
		var x fixed.Int26_6
		switch run.Align {
		case document.AlignCenter:
			x = (boxW - w) / 2
		case document.AlignRight:
			x = boxW - w
		}
		lines = append(lines, textLine{text: s, x: x, baseline: baseline, width: w})
		baseline += advance
	}

	for _, para := range strings.Split(run.Content, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			emit("")
			continue
		}
		current := words[0]
		for _, w := range words[1:] {
			candidate := current + " " + w
			if font.MeasureString(face, candidate) > boxW {
				emit(current)
				current = w
				continue
			}
			current = candidate
		}
		emit(current)
	}
	return lines
}
