package render

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"runtime"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printdeck/studio/backend-go/internal/document"
)

func redRectScene(t *testing.T) *document.Scene {
	t.Helper()
	s, err := document.NewScene(document.Size{Width: 400, Height: 300})
	require.NoError(t, err)
	e, err := s.NewElement(document.KindShape, document.Patch{
		X: lo.ToPtr(100.0), Y: lo.ToPtr(100.0),
		Width: lo.ToPtr(100.0), Height: lo.ToPtr(100.0),
		Shape: &document.ShapePatch{FillColor: lo.ToPtr("#ff0000")},
	})
	require.NoError(t, err)
	require.NoError(t, s.Add(e))
	return s
}

func TestRenderRedRectangle(t *testing.T) {
	img, err := New().Render(redRectScene(t), 1.0)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(150, 150))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
}

func TestRenderBackgroundFill(t *testing.T) {
	s := redRectScene(t)
	require.NoError(t, s.SetBackground("#ffffff"))

	img, err := New().Render(s, 0.5)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 200, 150), img.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(75, 75))
}

func TestRenderDeterministic(t *testing.T) {
	s := document.NewSampleScene()
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 7)
	}
	img := document.NewImageElement(document.ImageSource{Width: 8, Height: 8, Pixels: src}, s.Len())
	img, err := img.Apply(document.Patch{Rotation: lo.ToPtr(30.0), Opacity: lo.ToPtr(0.5)})
	require.NoError(t, err)
	require.NoError(t, s.Add(img))

	r := New()
	a, err := r.Render(s, 2.0)
	require.NoError(t, err)
	b, err := r.Render(s, 2.0)
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix)
}

func TestRenderRejectsBadScale(t *testing.T) {
	s := redRectScene(t)
	for _, scale := range []float64{0, -1} {
		_, err := New().Render(s, scale)
		assert.ErrorIs(t, err, ErrInvalidScale)
	}
}

func TestRenderCanvasTooLarge(t *testing.T) {
	_, err := New(WithMaxPixels(1000)).Render(redRectScene(t), 1.0)
	assert.True(t, errors.Is(err, ErrCanvasTooLarge))
}

func TestRenderOpacityBlendsOnce(t *testing.T) {
	s := redRectScene(t)
	id := s.Elements()[0].ID()
	_, err := s.Update(id, document.Patch{
		Opacity: lo.ToPtr(0.5),
		Shape:   &document.ShapePatch{BorderWidth: lo.ToPtr(10.0), BorderColor: lo.ToPtr("#ff0000")},
	})
	require.NoError(t, err)

	img, err := New().Render(s, 1.0)
	require.NoError(t, err)

	inner := img.RGBAAt(150, 150)
	border := img.RGBAAt(100, 150)
	assert.InDelta(t, 128, int(inner.A), 1)
	assert.Equal(t, inner, border)
}

func TestRenderTextPaintsInsideBox(t *testing.T) {
	s, err := document.NewScene(document.Size{Width: 300, Height: 100})
	require.NoError(t, err)
	e, err := s.NewElement(document.KindText, document.Patch{
		X: lo.ToPtr(0.0), Y: lo.ToPtr(0.0), Width: lo.ToPtr(300.0), Height: lo.ToPtr(50.0),
		Text: &document.TextPatch{Content: lo.ToPtr("HELLO"), FontSize: lo.ToPtr(40.0)},
	})
	require.NoError(t, err)
	require.NoError(t, s.Add(e))

	img, err := New().Render(s, 1.0)
	require.NoError(t, err)

	painted := func(y0, y1 int) int {
		n := 0
		for y := y0; y < y1; y++ {
			for x := 0; x < 300; x++ {
				if img.RGBAAt(x, y).A > 0 {
					n++
				}
			}
		}
		return n
	}
	assert.Positive(t, painted(0, 50))
	assert.Zero(t, painted(60, 100))
}

// textBoxScene holds "Hi" at (10,10) in a w x h text box on a 100x100 canvas.
func textBoxScene(t *testing.T, w, h, fontSize float64) *document.Scene {
	t.Helper()
	s, err := document.NewScene(document.Size{Width: 100, Height: 100})
	require.NoError(t, err)
	e, err := s.NewElement(document.KindText, document.Patch{
		X: lo.ToPtr(10.0), Y: lo.ToPtr(10.0), Width: lo.ToPtr(w), Height: lo.ToPtr(h),
		Text: &document.TextPatch{
			Content:   lo.ToPtr("Hi"),
			FontSize:  lo.ToPtr(fontSize),
			TextAlign: lo.ToPtr(document.AlignLeft),
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Add(e))
	return s
}

func TestRenderOversizedTextBoxIsClipped(t *testing.T) {
	r := New(WithMaxPixels(10_000))

	small, err := r.Render(textBoxScene(t, 80, 40, 24), 1.0)
	require.NoError(t, err)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	big, err := r.Render(textBoxScene(t, 8000, 8000, 24), 1.0)
	runtime.ReadMemStats(&after)
	require.NoError(t, err)

	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(32<<20), "layer must not cover the whole box")
	assert.Equal(t, small.Pix, big.Pix)
	assert.Positive(t, lo.CountBy(lo.Range(100*100), func(i int) bool { return big.Pix[i*4+3] > 0 }))
}

func TestRenderHugeFontIsRefused(t *testing.T) {
	_, err := New().Render(textBoxScene(t, 50, 50, 12000), 1.0)
	assert.True(t, errors.Is(err, ErrCanvasTooLarge))

	// The budget applies to the scaled size.
	r := New(WithMaxPixels(20_000))
	_, err = r.Render(textBoxScene(t, 50, 50, 110), 1.0)
	require.NoError(t, err)
	_, err = r.Render(textBoxScene(t, 50, 50, 110), 1.4)
	assert.True(t, errors.Is(err, ErrCanvasTooLarge))
}

func TestRenderTextOffCanvasIsSkipped(t *testing.T) {
	s := textBoxScene(t, 8000, 8000, 24)
	id := s.Elements()[0].ID()
	_, err := s.Update(id, document.Patch{X: lo.ToPtr(5000.0), Y: lo.ToPtr(5000.0)})
	require.NoError(t, err)

	img, err := New(WithMaxPixels(10_000)).Render(s, 1.0)
	require.NoError(t, err)
	assert.Zero(t, lo.CountBy(lo.Range(100*100), func(i int) bool { return img.Pix[i*4+3] > 0 }))
}

func TestCompileFollowsPaintOrder(t *testing.T) {
	s := redRectScene(t)
	require.NoError(t, s.SetBackground("#000"))
	top, err := s.NewElement(document.KindText, document.Patch{})
	require.NoError(t, err)
	require.NoError(t, s.Add(top))
	s.SendToBack(top.ID())

	cmds := Compile(s, 2)
	require.Len(t, cmds, 3)
	assert.Equal(t, OpBackground, cmds[0].Op)
	assert.Equal(t, top.ID(), cmds[1].ElementID)
	assert.Equal(t, 48.0, cmds[1].Text.FontSize)
	assert.Equal(t, OpPath, cmds[2].Op)

	out, err := DrawCommandsToJSON(cmds)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, []any{"M", 0.0, 0.0}, decoded[2]["path"].([]any)[0])
}

func TestShapePathsStayInUnitBox(t *testing.T) {
	for _, v := range []document.ShapeVariant{
		document.ShapeRectangle, document.ShapeCircle, document.ShapeTriangle,
		document.ShapeStar, document.ShapeHeart, document.ShapeHexagon,
	} {
		for _, c := range ShapePath(v) {
			for _, a := range c.Args {
				assert.GreaterOrEqual(t, a, -1e-9, "variant=%s", v)
				assert.LessOrEqual(t, a, 1+1e-9, "variant=%s", v)
			}
		}
	}
}

func TestFitScale(t *testing.T) {
	assert.Equal(t, 0.25, FitScale(document.Size{Width: 1200, Height: 600}, 300, 300))
	assert.Equal(t, 0.5, FitScale(document.Size{Width: 300, Height: 600}, 300, 300))
}
