// Package render rasterizes scenes. The same Compile output drives both the
// software rasterizer here and the browser canvas bridge.
package render

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/printdeck/studio/backend-go/internal/document"
)

var (
	ErrInvalidScale   = errors.New("render scale must be a positive finite number")
	ErrCanvasTooLarge = errors.New("canvas too large at requested scale")
)

// DefaultMaxPixels bounds the bitmap a single render may allocate.
const DefaultMaxPixels = 40_000_000

// Renderer turns a scene into a bitmap. Implementations must be
// deterministic: the same scene and scale always give the same pixels.
type Renderer interface {
	Render(scene *document.Scene, scale float64) (*image.RGBA, error)
}

// Raster is the software Renderer built on rasterx and x/image.
type Raster struct {
	maxPixels int
}

type Option func(*Raster)

// WithMaxPixels caps width*height of the output bitmap. n <= 0 keeps the
// default.
func WithMaxPixels(n int) Option {
	return func(r *Raster) {
		if n > 0 {
			r.maxPixels = n
		}
	}
}

func New(opts ...Option) *Raster {
	r := &Raster{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PixelSize returns the bitmap size for a canvas at scale.
func PixelSize(canvas document.Size, scale float64) (int, int, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return 0, 0, ErrInvalidScale
	}
	w := max(1, int(math.Round(canvas.Width*scale)))
	h := max(1, int(math.Round(canvas.Height*scale)))
	return w, h, nil
}

// Render paints the scene's elements in paint order onto a new bitmap of the
// canvas size times scale. Pixels outside the canvas are clipped.
func (r *Raster) Render(scene *document.Scene, scale float64) (*image.RGBA, error) {
	w, h, err := PixelSize(scene.Canvas(), scale)
	if err != nil {
		return nil, err
	}
	if float64(w)*float64(h) > float64(r.maxPixels) {
		return nil, fmt.Errorf("%dx%d px exceeds %d: %w", w, h, r.maxPixels, ErrCanvasTooLarge)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	faces := newFaceCache()
	defer faces.Close()

	for _, cmd := range Compile(scene, scale) {
		if err := execute(dst, cmd, faces, r.maxPixels); err != nil {
			return nil, fmt.Errorf("draw %s %s: %w", cmd.Op, cmd.ElementID, err)
		}
	}
	return dst, nil
}

// FitScale returns the largest scale at which canvas fits inside a
// width x height box.
func FitScale(canvas document.Size, width, height int) float64 {
	return min(float64(width)/canvas.Width, float64(height)/canvas.Height)
}
