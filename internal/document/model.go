package document

import (
	"image"

	"github.com/printdeck/studio/backend-go/internal/geom"
	"github.com/printdeck/studio/backend-go/internal/typeid"
)

// MinSize is the smallest width or height an element may have, in document units.
const MinSize = 1.0

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindShape Kind = "shape"
)

// Valid reports whether k is one of the known element kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindShape:
		return true
	}
	return false
}

// Body is the kind-specific payload of an Element. It is implemented only by
// Text, Image and Shape.
type Body interface {
	Kind() Kind
	sealed()
}

type FontWeight string

const (
	FontWeightNormal FontWeight = "normal"
	FontWeightBold   FontWeight = "bold"
)

type FontStyle string

const (
	FontStyleNormal FontStyle = "normal"
	FontStyleItalic FontStyle = "italic"
)

type TextDecoration string

const (
	DecorationNone        TextDecoration = "none"
	DecorationUnderline   TextDecoration = "underline"
	DecorationLineThrough TextDecoration = "line-through"
)

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

type Text struct {
	Content        string         `json:"content"`
	Color          string         `json:"color"`
	FontSize       float64        `json:"fontSize"`
	FontFamily     string         `json:"fontFamily"`
	FontWeight     FontWeight     `json:"fontWeight"`
	FontStyle      FontStyle      `json:"fontStyle"`
	TextDecoration TextDecoration `json:"textDecoration"`
	TextAlign      TextAlign      `json:"textAlign"`
}

func (Text) Kind() Kind { return KindText }
func (Text) sealed()    {}

// ImageSource references a decoded picture. Pixels is shared between snapshots
// and must never be written to once the source is built.
type ImageSource struct {
	AssetID string      `json:"assetId,omitempty"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Pixels  image.Image `json:"-"`
}

// Loaded reports whether decoded pixels are attached.
func (s ImageSource) Loaded() bool {
	return s.Pixels != nil
}

type Image struct {
	Source ImageSource `json:"source"`
}

func (Image) Kind() Kind { return KindImage }
func (Image) sealed()    {}

type ShapeVariant string

const (
	ShapeRectangle ShapeVariant = "rectangle"
	ShapeCircle    ShapeVariant = "circle"
	ShapeTriangle  ShapeVariant = "triangle"
	ShapeStar      ShapeVariant = "star"
	ShapeHeart     ShapeVariant = "heart"
	ShapeHexagon   ShapeVariant = "hexagon"
)

func (v ShapeVariant) Valid() bool {
	switch v {
	case ShapeRectangle, ShapeCircle, ShapeTriangle, ShapeStar, ShapeHeart, ShapeHexagon:
		return true
	}
	return false
}

type Shape struct {
	Variant     ShapeVariant `json:"shapeVariant"`
	FillColor   string       `json:"fillColor"`
	BorderWidth float64      `json:"borderWidth"`
	BorderColor string       `json:"borderColor"`
}

func (Shape) Kind() Kind { return KindShape }
func (Shape) sealed()    {}

// Element is one placeable object. Its id and kind are fixed at creation;
// every other attribute changes only through Patch.
type Element struct {
	id string

	X        float64
	Y        float64
	Width    float64
	Height   float64
	Rotation float64
	ZIndex   int
	Opacity  float64
	FlipX    bool
	FlipY    bool

	body Body
}

// ID returns the element's identifier.
func (e Element) ID() string { return e.id }

// Kind returns the element's kind.
func (e Element) Kind() Kind {
	if e.body == nil {
		return ""
	}
	return e.body.Kind()
}

// Body returns the kind-specific payload. Switch on its concrete type.
func (e Element) Body() Body { return e.body }

// Position returns the element's top-left corner.
func (e Element) Position() geom.Point {
	return geom.Point{X: e.X, Y: e.Y}
}

// Bounds returns the unrotated box of the element.
func (e Element) Bounds() geom.Rect {
	return geom.Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

// HitBounds returns the axis-aligned box enclosing the rotated element.
func (e Element) HitBounds() geom.Rect {
	return e.Bounds().RotatedBounds(e.Rotation)
}

// Transform maps the unit square onto the element in document space.
func (e Element) Transform() geom.Matrix2D {
	return geom.BoxTransform(e.X, e.Y, e.Width, e.Height, e.Rotation, e.FlipX, e.FlipY)
}

// WithNewID returns a copy of e carrying a fresh identifier.
func (e Element) WithNewID() Element {
	e.id = typeid.NewElementID()
	return e
}

// NewElement builds an element of the given kind with default geometry and
// style. The caller decides its zIndex.
func NewElement(kind Kind, zIndex int) (Element, error) {
	e := Element{
		id:      typeid.NewElementID(),
		X:       100,
		Y:       100,
		ZIndex:  zIndex,
		Opacity: 1,
	}

	switch kind {
	case KindText:
		e.Width, e.Height = 200, 40
		e.body = DefaultText()
	case KindImage:
		e.Width, e.Height = 200, 200
		e.body = Image{}
	case KindShape:
		e.Width, e.Height = 100, 100
		e.body = DefaultShape()
	default:
		return Element{}, &ValidationError{Field: "kind", Reason: "unknown element kind " + string(kind)}
	}
	return e, nil
}

// NewImageElement builds an image element sized to the decoded picture.
func NewImageElement(src ImageSource, zIndex int) Element {
	e, _ := NewElement(KindImage, zIndex)
	if src.Width >= MinSize && src.Height >= MinSize {
		e.Width, e.Height = float64(src.Width), float64(src.Height)
	}
	e.body = Image{Source: src}
	return e
}

// DefaultText returns the style new text elements start with.
func DefaultText() Text {
	return Text{
		Content:        "Your text here",
		Color:          "#000000",
		FontSize:       24,
		FontFamily:     "Arial",
		FontWeight:     FontWeightNormal,
		FontStyle:      FontStyleNormal,
		TextDecoration: DecorationNone,
		TextAlign:      AlignLeft,
	}
}

// DefaultShape returns the style new shape elements start with.
func DefaultShape() Shape {
	return Shape{
		Variant:     ShapeRectangle,
		FillColor:   "#3b82f6",
		BorderWidth: 0,
		BorderColor: "#000000",
	}
}
