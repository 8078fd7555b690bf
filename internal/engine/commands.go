package engine

import (
	"fmt"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/geom"
)

// DuplicateOffset is how far a duplicate is shifted from its source, per axis.
const DuplicateOffset = 20.0

// Axis selects the mirror direction of Flip.
type Axis string

const (
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
)

// ParseAxis accepts "horizontal"/"x" and "vertical"/"y".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "horizontal", "x":
		return AxisHorizontal, nil
	case "vertical", "y":
		return AxisVertical, nil
	}
	return "", &document.ValidationError{Field: "axis", Reason: fmt.Sprintf("unknown axis %q", s)}
}

// Discrete commands mutate the working scene and commit right away. A command
// that finds nothing to change commits nothing.

// AddElement creates an element of kind on top of the scene and selects it.
func (e *Editor) AddElement(s *Session, kind document.Kind, defaults document.Patch) (document.Element, error) {
	el, err := e.scene.NewElement(kind, defaults)
	if err != nil {
		return document.Element{}, err
	}
	return el, e.insert(s, el)
}

func (e *Editor) insert(s *Session, el document.Element) error {
	if err := e.scene.Add(el); err != nil {
		return err
	}
	e.touch()
	e.commit()
	if s != nil {
		s.Selected = el.ID()
	}
	return nil
}

// Duplicate copies id under a new id, shifted by DuplicateOffset and painted
// above everything else. The copy becomes the selection.
func (e *Editor) Duplicate(s *Session, id string) (document.Element, bool, error) {
	src, ok := e.scene.Get(id)
	if !ok {
		return document.Element{}, false, nil
	}
	dup := src.WithNewID()
	dup.X += DuplicateOffset
	dup.Y += DuplicateOffset
	dup.ZIndex = e.scene.TopZ() + 1
	if err := e.insert(s, dup); err != nil {
		return document.Element{}, false, err
	}
	return dup, true, nil
}

// Delete removes id. Deleting a missing element is a no-op.
func (e *Editor) Delete(s *Session, id string) bool {
	if !e.scene.Remove(id) {
		return false
	}
	e.touch()
	e.commit()
	if s != nil && s.Selected == id {
		s.Selected = ""
	}
	return true
}

// Rotate90 turns id a quarter clockwise.
func (e *Editor) Rotate90(id string) bool {
	el, ok := e.scene.Get(id)
	if !ok {
		return false
	}
	r := el.Rotation + 90
	changed, _ := e.update(id, document.Patch{Rotation: &r})
	return e.commitIf(changed)
}

// Flip mirrors id inside its box.
func (e *Editor) Flip(id string, axis Axis) bool {
	el, ok := e.scene.Get(id)
	if !ok {
		return false
	}
	var p document.Patch
	switch axis {
	case AxisHorizontal:
		v := !el.FlipX
		p.FlipX = &v
	case AxisVertical:
		v := !el.FlipY
		p.FlipY = &v
	default:
		return false
	}
	changed, _ := e.update(id, p)
	return e.commitIf(changed)
}

func (e *Editor) BringToFront(id string) bool {
	return e.restack(id, e.scene.BringToFront)
}

func (e *Editor) SendToBack(id string) bool {
	return e.restack(id, e.scene.SendToBack)
}

func (e *Editor) restack(id string, move func(string) bool) bool {
	before, ok := e.scene.Get(id)
	if !ok || !move(id) {
		return false
	}
	after, _ := e.scene.Get(id)
	if after.ZIndex == before.ZIndex {
		return false
	}
	e.touch()
	e.commit()
	return true
}

// PreviewProperties applies p as a live edit. It shows up in renders and
// exports but not in history until CommitPending or the next commit.
func (e *Editor) PreviewProperties(id string, p document.Patch) (bool, error) {
	return e.update(id, p)
}

// CommitPending records previewed edits, e.g. when a property field loses
// focus.
func (e *Editor) CommitPending() bool { return e.Commit() }

// UpdateProperties applies p and commits.
func (e *Editor) UpdateProperties(id string, p document.Patch) (bool, error) {
	changed, err := e.update(id, p)
	if err != nil {
		return false, err
	}
	return e.commitIf(changed), nil
}

// Nudge moves id by d, keeping the position non-negative.
func (e *Editor) Nudge(id string, d geom.Point) bool {
	el, ok := e.scene.Get(id)
	if !ok {
		return false
	}
	changed, _ := e.update(id, document.MovePatch(clampPoint(el.Position().Add(d))))
	return e.commitIf(changed)
}

// SetCanvasPreset resizes the canvas to a named preset. Elements stay put.
func (e *Editor) SetCanvasPreset(name string) (bool, error) {
	p, err := document.LookupPreset(name)
	if err != nil {
		return false, err
	}
	return e.SetCanvasSize(p.Size())
}

// SetCanvasSize resizes the canvas. Elements are neither moved nor clipped.
func (e *Editor) SetCanvasSize(size document.Size) (bool, error) {
	if size == e.scene.Canvas() {
		return false, nil
	}
	if err := e.scene.SetCanvas(size); err != nil {
		return false, err
	}
	e.touch()
	return e.commitIf(true), nil
}

// SetBackground sets the canvas colour; empty means transparent.
func (e *Editor) SetBackground(color string) (bool, error) {
	if color == e.scene.Background() {
		return false, nil
	}
	if err := e.scene.SetBackground(color); err != nil {
		return false, err
	}
	e.touch()
	return e.commitIf(true), nil
}

// update merges p into id as a live edit and reports whether anything
// actually changed.
func (e *Editor) update(id string, p document.Patch) (bool, error) {
	changed, err := e.change(id, p)
	if changed {
		e.touch()
	}
	return changed, err
}

// change merges p into id without marking the edit as pending.
func (e *Editor) change(id string, p document.Patch) (bool, error) {
	before, ok := e.scene.Get(id)
	if !ok {
		return false, nil
	}
	if _, err := e.scene.Update(id, p); err != nil {
		return false, err
	}
	after, _ := e.scene.Get(id)
	return !sameElement(before, after), nil
}

func (e *Editor) commitIf(changed bool) bool {
	if changed {
		e.commit()
	}
	return changed
}
