package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoxTransformMapsUnitSquare(t *testing.T) {
	m := BoxTransform(100, 50, 200, 40, 0, false, false)

	x, y := m.TransformPoint(0, 0)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	x, y = m.TransformPoint(1, 1)
	assert.InDelta(t, 300, x, 1e-9)
	assert.InDelta(t, 90, y, 1e-9)
}

func TestBoxTransformRotatesAboutCenter(t *testing.T) {
	m := BoxTransform(0, 0, 100, 100, 90, false, false)

	// center is fixed
	x, y := m.TransformPoint(0.5, 0.5)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	// top-left corner swings to top-right
	x, y = m.TransformPoint(0, 0)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
}

func TestBoxTransformFlipMirrorsInsideBox(t *testing.T) {
	m := BoxTransform(10, 10, 20, 20, 0, true, false)

	x, y := m.TransformPoint(0, 0)
	assert.InDelta(t, 30, x, 1e-9)
	assert.InDelta(t, 10, y, 1e-9)
}

func TestInvertRoundTrip(t *testing.T) {
	m := BoxTransform(12, 34, 56, 78, 33, false, true)
	inv := m.Invert()

	px, py := m.TransformPoint(0.25, 0.75)
	x, y := inv.TransformPoint(px, py)
	assert.InDelta(t, 0.25, x, 1e-9)
	assert.InDelta(t, 0.75, y, 1e-9)
}

func TestNormalizeDegrees(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{360, 0},
		{450, 90},
		{-90, 270},
		{-720, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeDegrees(tt.in), 1e-9, "in=%v", tt.in)
	}
}

func TestRotatedBounds(t *testing.T) {
	r := Rect{X: 0, Y: 40, Width: 100, Height: 20}
	b := r.RotatedBounds(90)

	assert.InDelta(t, 40, b.X, 1e-9)
	assert.InDelta(t, 0, b.Y, 1e-9)
	assert.InDelta(t, 20, b.Width, 1e-9)
	assert.InDelta(t, 100, b.Height, 1e-9)
}
