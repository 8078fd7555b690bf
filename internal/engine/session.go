package engine

import (
	"math"

	"github.com/google/uuid"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/geom"
)

const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// Tool is what a pointer-down on the canvas does.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolText   Tool = "text"
	ToolShape  Tool = "shape"
)

// Gesture is the interaction state of a session.
type Gesture int

const (
	Idle Gesture = iota
	Selecting
	Dragging
	Resizing
	Rotating
)

func (g Gesture) String() string {
	switch g {
	case Selecting:
		return "selecting"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case Rotating:
		return "rotating"
	default:
		return "idle"
	}
}

// Handle identifies a grab point on the selected element's frame.
type Handle string

const (
	HandleNone   Handle = ""
	HandleNW     Handle = "nw"
	HandleNE     Handle = "ne"
	HandleSW     Handle = "sw"
	HandleSE     Handle = "se"
	HandleRotate Handle = "rotate"
)

// Session is the per-user UI state the editor needs for every call: the tool,
// the selection, the viewport and any gesture in progress. Nothing about it is
// global, so several sessions can drive one editor.
type Session struct {
	ID       string
	Tool     Tool
	Selected string
	Zoom     float64
	Origin   geom.Point // screen position of the canvas's top-left corner

	gesture Gesture
	target  string
	handle  Handle
	offset  geom.Point       // pointer minus element position, document units
	grab    geom.Point       // pointer at gesture start, document units
	start   document.Element // element as it was when the gesture began
}

func NewSession() *Session {
	return &Session{
		ID:   uuid.NewString(),
		Tool: ToolSelect,
		Zoom: 1,
	}
}

// Gesture returns the current interaction state.
func (s *Session) Gesture() Gesture { return s.gesture }

// ToDocument converts a screen point to document space.
func (s *Session) ToDocument(screen geom.Point) geom.Point {
	return screen.Sub(s.Origin).Div(s.zoom())
}

// ToScreen converts a document point to screen space.
func (s *Session) ToScreen(doc geom.Point) geom.Point {
	z := s.zoom()
	return geom.Point{X: doc.X*z + s.Origin.X, Y: doc.Y*z + s.Origin.Y}
}

// SetZoom clamps z into [MinZoom, MaxZoom].
func (s *Session) SetZoom(z float64) {
	if math.IsNaN(z) {
		return
	}
	s.Zoom = min(max(z, MinZoom), MaxZoom)
}

func (s *Session) zoom() float64 {
	if s.Zoom <= 0 {
		return 1
	}
	return s.Zoom
}

// cancelGesture drops any gesture without committing it.
func (s *Session) cancelGesture() {
	s.gesture = Idle
	s.target = ""
	s.handle = HandleNone
	s.offset = geom.Point{}
	s.grab = geom.Point{}
	s.start = document.Element{}
}
