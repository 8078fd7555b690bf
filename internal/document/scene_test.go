package document

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printdeck/studio/backend-go/internal/geom"
)

func newTestScene(t *testing.T) *Scene {
	t.Helper()
	s, err := NewScene(Size{Width: 800, Height: 600})
	require.NoError(t, err)
	return s
}

func addShape(t *testing.T, s *Scene, p Patch) Element {
	t.Helper()
	e, err := s.NewElement(KindShape, p)
	require.NoError(t, err)
	require.NoError(t, s.Add(e))
	return e
}

func paintIDs(s *Scene) []string {
	var ids []string
	for e := range s.PaintOrder() {
		ids = append(ids, e.ID())
	}
	return ids
}

func TestNewSceneRejectsNonPositiveCanvas(t *testing.T) {
	for _, size := range []Size{{0, 100}, {100, 0}, {-5, 10}} {
		_, err := NewScene(size)
		assert.True(t, IsValidation(err), "size=%v", size)
	}
}

func TestNewElementDefaultsZToElementCount(t *testing.T) {
	s := newTestScene(t)
	a := addShape(t, s, Patch{})
	b := addShape(t, s, Patch{})
	c := addShape(t, s, Patch{})

	assert.Equal(t, 0, a.ZIndex)
	assert.Equal(t, 1, b.ZIndex)
	assert.Equal(t, 2, c.ZIndex)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestAddDuplicateID(t *testing.T) {
	s := newTestScene(t)
	e := addShape(t, s, Patch{})

	err := s.Add(e)
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.Equal(t, 1, s.Len())
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestScene(t)
	a := addShape(t, s, Patch{})
	addShape(t, s, Patch{})

	assert.True(t, s.Remove(a.ID()))
	once := s.Clone()

	assert.False(t, s.Remove(a.ID()))
	assert.True(t, once.Equal(s))
	assert.Equal(t, 1, s.Len())
}

func TestUpdateMissingIDIsNoOp(t *testing.T) {
	s := newTestScene(t)
	addShape(t, s, Patch{})
	before := s.Clone()

	found, err := s.Update("el_missing", Patch{X: lo.ToPtr(5.0)})
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, before.Equal(s))
}

func TestUpdateRejectsInvalidSizeWithoutMutation(t *testing.T) {
	s := newTestScene(t)
	e := addShape(t, s, Patch{})
	before := s.Clone()

	for _, p := range []Patch{
		{Width: lo.ToPtr(0.0)},
		{Height: lo.ToPtr(-10.0)},
		{Opacity: lo.ToPtr(1.5)},
		{Shape: &ShapePatch{BorderWidth: lo.ToPtr(-1.0)}},
		{Shape: &ShapePatch{FillColor: lo.ToPtr("not-a-color")}},
		{Text: &TextPatch{Content: lo.ToPtr("wrong kind")}},
	} {
		_, err := s.Update(e.ID(), p)
		assert.True(t, IsValidation(err), "patch=%+v", p)
	}
	assert.True(t, before.Equal(s))
}

func TestUpdateRejectsInfiniteStyleSizes(t *testing.T) {
	s := newTestScene(t)
	shape := addShape(t, s, Patch{})
	text, err := s.NewElement(KindText, Patch{})
	require.NoError(t, err)
	require.NoError(t, s.Add(text))
	before := s.Clone()

	_, err = s.Update(shape.ID(), Patch{Shape: &ShapePatch{BorderWidth: lo.ToPtr(math.Inf(1))}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "borderWidth", verr.Field)

	_, err = s.Update(text.ID(), Patch{Text: &TextPatch{FontSize: lo.ToPtr(math.Inf(1))}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "fontSize", verr.Field)

	assert.True(t, before.Equal(s))
}

func TestUpdateMergesAndNormalizesRotation(t *testing.T) {
	s := newTestScene(t)
	e := addShape(t, s, Patch{})

	found, err := s.Update(e.ID(), Patch{
		X:        lo.ToPtr(42.0),
		Rotation: lo.ToPtr(-90.0),
		Shape:    &ShapePatch{Variant: lo.ToPtr(ShapeStar)},
	})
	require.NoError(t, err)
	require.True(t, found)

	got, _ := s.Get(e.ID())
	assert.Equal(t, 42.0, got.X)
	assert.Equal(t, e.Y, got.Y)
	assert.Equal(t, 270.0, got.Rotation)
	assert.Equal(t, ShapeStar, got.Body().(Shape).Variant)
	assert.Equal(t, e.ID(), got.ID())
	assert.Equal(t, KindShape, got.Kind())
}

func TestPaintOrderStableAndRestartable(t *testing.T) {
	s := newTestScene(t)
	a := addShape(t, s, Patch{ZIndex: lo.ToPtr(1)})
	b := addShape(t, s, Patch{ZIndex: lo.ToPtr(0)})
	c := addShape(t, s, Patch{ZIndex: lo.ToPtr(1)})

	first := paintIDs(s)
	second := paintIDs(s)

	assert.Equal(t, []string{b.ID(), a.ID(), c.ID()}, first)
	assert.Equal(t, first, second)
}

func TestBringToFrontIsStrictlyLast(t *testing.T) {
	s := newTestScene(t)
	a := addShape(t, s, Patch{})
	addShape(t, s, Patch{})
	addShape(t, s, Patch{ZIndex: lo.ToPtr(7)})

	require.True(t, s.BringToFront(a.ID()))

	ids := paintIDs(s)
	assert.Equal(t, a.ID(), ids[len(ids)-1])
	got, _ := s.Get(a.ID())
	assert.Equal(t, 8, got.ZIndex)
}

func TestSendToBackScenario(t *testing.T) {
	s := newTestScene(t)
	addShape(t, s, Patch{})
	addShape(t, s, Patch{})
	third := addShape(t, s, Patch{})
	require.Equal(t, 2, third.ZIndex)

	require.True(t, s.SendToBack(third.ID()))

	got, _ := s.Get(third.ID())
	assert.Equal(t, -1, got.ZIndex)
	assert.Equal(t, third.ID(), paintIDs(s)[0])
}

func TestZOrderSingleElementBaseCase(t *testing.T) {
	s := newTestScene(t)
	a := addShape(t, s, Patch{ZIndex: lo.ToPtr(5)})

	require.True(t, s.BringToFront(a.ID()))
	got, _ := s.Get(a.ID())
	assert.Equal(t, 0, got.ZIndex)

	assert.False(t, s.SendToBack("el_missing"))
}

func TestHitTestTopmost(t *testing.T) {
	s := newTestScene(t)
	bottom := addShape(t, s, Patch{X: lo.ToPtr(0.0), Y: lo.ToPtr(0.0), Width: lo.ToPtr(200.0), Height: lo.ToPtr(200.0)})
	top := addShape(t, s, Patch{X: lo.ToPtr(50.0), Y: lo.ToPtr(50.0), Width: lo.ToPtr(50.0), Height: lo.ToPtr(50.0)})

	hit, ok := s.HitTest(geom.Point{X: 60, Y: 60})
	require.True(t, ok)
	assert.Equal(t, top.ID(), hit.ID())

	hit, ok = s.HitTest(geom.Point{X: 150, Y: 150})
	require.True(t, ok)
	assert.Equal(t, bottom.ID(), hit.ID())

	_, ok = s.HitTest(geom.Point{X: 500, Y: 500})
	assert.False(t, ok)

	s.SendToBack(top.ID())
	hit, _ = s.HitTest(geom.Point{X: 60, Y: 60})
	assert.Equal(t, bottom.ID(), hit.ID())
}

func TestHitTestUsesRotatedBounds(t *testing.T) {
	s := newTestScene(t)
	bar := addShape(t, s, Patch{
		X: lo.ToPtr(0.0), Y: lo.ToPtr(40.0),
		Width: lo.ToPtr(100.0), Height: lo.ToPtr(20.0),
		Rotation: lo.ToPtr(90.0),
	})

	// outside the unrotated bar, inside the rotated one
	hit, ok := s.HitTest(geom.Point{X: 50, Y: 5})
	require.True(t, ok)
	assert.Equal(t, bar.ID(), hit.ID())

	_, ok = s.HitTest(geom.Point{X: 5, Y: 50})
	assert.False(t, ok)
}

func TestSetCanvasKeepsElements(t *testing.T) {
	s := newTestScene(t)
	e := addShape(t, s, Patch{X: lo.ToPtr(700.0), Y: lo.ToPtr(500.0)})

	require.NoError(t, s.SetCanvas(Size{Width: 100, Height: 100}))

	got, _ := s.Get(e.ID())
	assert.Equal(t, e, got)
	assert.True(t, IsValidation(s.SetCanvas(Size{Width: 0, Height: 1})))
	assert.Equal(t, Size{Width: 100, Height: 100}, s.Canvas())
}

func TestCloneIsIndependent(t *testing.T) {
	s := newTestScene(t)
	e := addShape(t, s, Patch{})
	snap := s.Clone()

	_, err := s.Update(e.ID(), Patch{X: lo.ToPtr(1.0)})
	require.NoError(t, err)
	s.Remove(e.ID())

	got, ok := snap.Get(e.ID())
	require.True(t, ok)
	assert.Equal(t, e.X, got.X)
}

func TestCountByKind(t *testing.T) {
	s := NewSampleScene()
	counts := s.CountByKind()
	assert.Equal(t, 2, counts[KindShape])
	assert.Equal(t, 2, counts[KindText])
	assert.True(t, slices.Contains(PresetNames(), "Business Card"))
}
