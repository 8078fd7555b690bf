package engine

import (
	"math"
	"reflect"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/geom"
)

// Handle geometry in screen pixels, independent of zoom.
const (
	HandleRadius       = 8.0
	RotateHandleOffset = 24.0
)

// PointerDown starts a gesture at a screen point. With a placing tool it drops
// a new element there instead. A press on empty canvas clears the selection.
func (e *Editor) PointerDown(s *Session, screen geom.Point) error {
	if s.gesture != Idle {
		e.PointerUp(s, screen)
	}

	p := s.ToDocument(screen)

	switch s.Tool {
	case ToolText, ToolShape:
		kind := document.KindText
		if s.Tool == ToolShape {
			kind = document.KindShape
		}
		el, err := e.AddElement(s, kind, document.MovePatch(clampPoint(p)))
		if err != nil {
			return err
		}
		s.Selected = el.ID()
		s.Tool = ToolSelect
		return nil
	}

	if sel, ok := e.scene.Get(s.Selected); ok {
		if h := handleAt(s, sel, screen); h != HandleNone {
			s.target = sel.ID()
			s.start = sel
			s.grab = p
			s.handle = h
			if h == HandleRotate {
				s.gesture = Rotating
			} else {
				s.gesture = Resizing
			}
			e.gestures[s] = false
			return nil
		}
	}

	hit, ok := e.scene.HitTest(p)
	if !ok {
		s.Selected = ""
		s.gesture = Selecting
		return nil
	}
	s.Selected = hit.ID()
	s.target = hit.ID()
	s.start = hit
	s.grab = p
	s.offset = p.Sub(hit.Position())
	s.gesture = Dragging
	e.gestures[s] = false
	return nil
}

// PointerMove applies the gesture in progress as a live, uncommitted edit.
func (e *Editor) PointerMove(s *Session, screen geom.Point) {
	switch s.gesture {
	case Dragging, Resizing, Rotating:
	default:
		return
	}
	el, ok := e.scene.Get(s.target)
	if !ok {
		// Removed underneath us, e.g. by another session.
		e.endGesture(s)
		e.settle()
		return
	}
	p := s.ToDocument(screen)

	var patch document.Patch
	switch s.gesture {
	case Dragging:
		patch = document.MovePatch(clampPoint(p.Sub(s.offset)))
	case Resizing:
		patch = resizePatch(s.start, s.handle, p)
	case Rotating:
		patch = rotatePatch(s.start, s.grab, p)
	}
	// Gesture patches only produce valid geometry.
	if changed, _ := e.change(el.ID(), patch); changed {
		e.gestures[s] = true
		e.revision++
	}
}

// PointerUp ends the gesture. It commits once if the target changed and
// reports whether it did; while another session is midway through a gesture
// the commit is deferred until that one ends too.
func (e *Editor) PointerUp(s *Session, _ geom.Point) bool {
	switch s.gesture {
	case Dragging, Resizing, Rotating:
	default:
		s.cancelGesture()
		return false
	}
	el, ok := e.scene.Get(s.target)
	// Moved and came back: nothing to record for this gesture.
	changed := ok && !sameElement(el, s.start)
	e.endGesture(s)
	if changed {
		e.deferred = true
	}
	e.settle()
	return changed
}

// CancelGesture aborts the gesture in progress and puts the target back where
// it was when the gesture began.
func (e *Editor) CancelGesture(s *Session) {
	switch s.gesture {
	case Dragging, Resizing, Rotating:
		if e.scene.Has(s.target) {
			if changed, _ := e.change(s.target, geometryPatch(s.start)); changed {
				e.revision++
			}
		}
	}
	e.endGesture(s)
	e.settle()
}

// endGesture drops s's gesture without committing it.
func (e *Editor) endGesture(s *Session) {
	delete(e.gestures, s)
	s.cancelGesture()
}

// settle records commits that were deferred behind gestures once none is
// left in progress.
func (e *Editor) settle() {
	if e.deferred && !e.midGesture() {
		e.commit()
	}
}

// handleAt returns the selection handle under a screen point.
func handleAt(s *Session, el document.Element, screen geom.Point) Handle {
	for _, h := range []Handle{HandleRotate, HandleNW, HandleNE, HandleSW, HandleSE} {
		hp := s.ToScreen(handlePoint(el, h, s.zoom()))
		if math.Hypot(screen.X-hp.X, screen.Y-hp.Y) <= HandleRadius {
			return h
		}
	}
	return HandleNone
}

// handlePoint returns a handle's position in document space. Handles follow
// the rotated frame but ignore flips, so nw is always the visual top-left.
func handlePoint(el document.Element, h Handle, zoom float64) geom.Point {
	m := geom.BoxTransform(el.X, el.Y, el.Width, el.Height, el.Rotation, false, false)
	switch h {
	case HandleNW:
		return m.Apply(geom.Point{X: 0, Y: 0})
	case HandleNE:
		return m.Apply(geom.Point{X: 1, Y: 0})
	case HandleSW:
		return m.Apply(geom.Point{X: 0, Y: 1})
	case HandleSE:
		return m.Apply(geom.Point{X: 1, Y: 1})
	}
	top := m.Apply(geom.Point{X: 0.5, Y: 0})
	sin, cos := math.Sincos(el.Rotation * math.Pi / 180)
	d := RotateHandleOffset / zoom
	return geom.Point{X: top.X + sin*d, Y: top.Y - cos*d}
}

// corner signs of each resize handle relative to the element center.
var handleSigns = map[Handle]geom.Point{
	HandleNW: {X: -1, Y: -1},
	HandleNE: {X: 1, Y: -1},
	HandleSW: {X: -1, Y: 1},
	HandleSE: {X: 1, Y: 1},
}

// resizePatch keeps the corner opposite h fixed and moves h to p, measured in
// the element's unrotated frame. Width and height never drop below MinSize.
func resizePatch(start document.Element, h Handle, p geom.Point) document.Patch {
	sign := handleSigns[h]
	sin, cos := math.Sincos(start.Rotation * math.Pi / 180)
	cx, cy := start.Bounds().Center()

	// Opposite corner, in document space.
	ox, oy := -sign.X*start.Width/2, -sign.Y*start.Height/2
	anchor := geom.Point{X: cx + ox*cos - oy*sin, Y: cy + ox*sin + oy*cos}

	v := p.Sub(anchor)
	lx := v.X*cos + v.Y*sin
	ly := -v.X*sin + v.Y*cos

	w := max(sign.X*lx, document.MinSize)
	hgt := max(sign.Y*ly, document.MinSize)

	// New center sits half the new box away from the anchor.
	hx, hy := sign.X*w/2, sign.Y*hgt/2
	ncx := anchor.X + hx*cos - hy*sin
	ncy := anchor.Y + hx*sin + hy*cos

	x, y := ncx-w/2, ncy-hgt/2
	return document.Patch{X: &x, Y: &y, Width: &w, Height: &hgt}
}

// rotatePatch turns the element by the angle the pointer swept around its
// center since grab.
func rotatePatch(start document.Element, grab, p geom.Point) document.Patch {
	cx, cy := start.Bounds().Center()
	a0 := math.Atan2(grab.Y-cy, grab.X-cx)
	a1 := math.Atan2(p.Y-cy, p.X-cx)
	r := geom.NormalizeDegrees(start.Rotation + (a1-a0)*180/math.Pi)
	return document.Patch{Rotation: &r}
}

func geometryPatch(el document.Element) document.Patch {
	return document.Patch{
		X:        &el.X,
		Y:        &el.Y,
		Width:    &el.Width,
		Height:   &el.Height,
		Rotation: &el.Rotation,
	}
}

// clampPoint keeps positions on the non-negative quadrant. There is no clamp
// at the far edges; elements may hang off the canvas.
func clampPoint(p geom.Point) geom.Point {
	return geom.Point{X: max(p.X, 0), Y: max(p.Y, 0)}
}

func sameElement(a, b document.Element) bool {
	return reflect.DeepEqual(a, b)
}
