package document

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"

	"github.com/samber/lo"

	"github.com/printdeck/studio/backend-go/internal/geom"
)

// Size is a canvas size in document units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) validate() error {
	if math.IsNaN(s.Width) || math.IsNaN(s.Height) || s.Width <= 0 || s.Height <= 0 ||
		math.IsInf(s.Width, 0) || math.IsInf(s.Height, 0) {
		return &ValidationError{Field: "canvasSize", Reason: "width and height must be positive"}
	}
	return nil
}

// Scene is the editable set of elements plus the canvas they are placed on.
// Element order in the slice is insertion order and breaks zIndex ties.
type Scene struct {
	canvas     Size
	background string
	elements   []Element
}

// NewScene creates an empty scene.
func NewScene(canvas Size) (*Scene, error) {
	if err := canvas.validate(); err != nil {
		return nil, err
	}
	return &Scene{canvas: canvas, elements: []Element{}}, nil
}

// Canvas returns the canvas size.
func (s *Scene) Canvas() Size { return s.canvas }

// SetCanvas changes the canvas size. Elements are never moved or clamped.
func (s *Scene) SetCanvas(size Size) error {
	if err := size.validate(); err != nil {
		return err
	}
	s.canvas = size
	return nil
}

// Background returns the canvas background color; empty means transparent.
func (s *Scene) Background() string { return s.background }

func (s *Scene) SetBackground(c string) error {
	if err := validColor("background", c); err != nil {
		return err
	}
	s.background = c
	return nil
}

// Len returns the number of elements.
func (s *Scene) Len() int { return len(s.elements) }

// Elements returns the elements in insertion order.
func (s *Scene) Elements() []Element {
	return slices.Clone(s.elements)
}

// Get returns the element with the given id.
func (s *Scene) Get(id string) (Element, bool) {
	i := s.index(id)
	if i < 0 {
		return Element{}, false
	}
	return s.elements[i], true
}

// Has reports whether id is in the scene.
func (s *Scene) Has(id string) bool {
	return s.index(id) >= 0
}

func (s *Scene) index(id string) int {
	return slices.IndexFunc(s.elements, func(e Element) bool { return e.id == id })
}

// NewElement builds a default element of the given kind that paints above the
// current elements, then applies defaults. The element is not added.
func (s *Scene) NewElement(kind Kind, defaults Patch) (Element, error) {
	e, err := NewElement(kind, s.Len())
	if err != nil {
		return Element{}, err
	}
	return e.Apply(defaults)
}

// Add appends e. Adding an id that is already present is a caller bug and
// returns ErrDuplicateID.
func (s *Scene) Add(e Element) error {
	if e.id == "" {
		return &ValidationError{Field: "id", Reason: "element has no id"}
	}
	if s.Has(e.id) {
		return fmt.Errorf("add %s: %w", e.id, ErrDuplicateID)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	s.elements = append(s.elements, e)
	return nil
}

// Remove deletes the element if present and reports whether it was.
func (s *Scene) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.elements = slices.Delete(s.elements, i, i+1)
	return true
}

// Update merges p into the matching element. A missing id is a no-op and
// returns false; an invalid result leaves the scene untouched.
func (s *Scene) Update(id string, p Patch) (bool, error) {
	i := s.index(id)
	if i < 0 {
		return false, nil
	}
	next, err := s.elements[i].Apply(p)
	if err != nil {
		return false, err
	}
	s.elements[i] = next
	return true, nil
}

// PaintOrder yields elements by ascending zIndex, ties in insertion order.
// The order is computed when iteration starts, so the sequence can be ranged
// over any number of times.
func (s *Scene) PaintOrder() iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for _, i := range s.paintIndices() {
			if !yield(s.elements[i]) {
				return
			}
		}
	}
}

func (s *Scene) paintIndices() []int {
	idx := make([]int, len(s.elements))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(s.elements[a].ZIndex, s.elements[b].ZIndex)
	})
	return idx
}

// BringToFront moves id above every other element.
func (s *Scene) BringToFront(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	others := s.otherZ(id)
	if len(others) == 0 {
		s.elements[i].ZIndex = 0
		return true
	}
	s.elements[i].ZIndex = lo.Max(others) + 1
	return true
}

// SendToBack moves id below every other element.
func (s *Scene) SendToBack(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	others := s.otherZ(id)
	if len(others) == 0 {
		s.elements[i].ZIndex = 0
		return true
	}
	s.elements[i].ZIndex = lo.Min(others) - 1
	return true
}

// TopZ returns the highest zIndex in the scene, or -1 when empty.
func (s *Scene) TopZ() int {
	if len(s.elements) == 0 {
		return -1
	}
	return lo.MaxBy(s.elements, func(a, b Element) bool { return a.ZIndex > b.ZIndex }).ZIndex
}

func (s *Scene) otherZ(id string) []int {
	others := lo.Filter(s.elements, func(e Element, _ int) bool { return e.id != id })
	return lo.Map(others, func(e Element, _ int) int { return e.ZIndex })
}

// HitTest returns the topmost element whose rotated bounding box contains p.
func (s *Scene) HitTest(p geom.Point) (Element, bool) {
	order := s.paintIndices()
	for i := len(order) - 1; i >= 0; i-- {
		e := s.elements[order[i]]
		if e.HitBounds().Contains(p.X, p.Y) {
			return e, true
		}
	}
	return Element{}, false
}

// Clone returns an independent copy. Image pixels are shared; they are
// immutable once decoded.
func (s *Scene) Clone() *Scene {
	return &Scene{
		canvas:     s.canvas,
		background: s.background,
		elements:   append([]Element{}, s.elements...),
	}
}

// Equal reports whether two scenes hold the same canvas and elements.
func (s *Scene) Equal(o *Scene) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.canvas == o.canvas &&
		s.background == o.background &&
		reflect.DeepEqual(s.elements, o.elements)
}

// CountByKind tallies elements per kind.
func (s *Scene) CountByKind() map[Kind]int {
	return lo.CountValuesBy(s.elements, func(e Element) Kind { return e.Kind() })
}
