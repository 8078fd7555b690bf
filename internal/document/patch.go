package document

import (
	"math"

	"github.com/printdeck/studio/backend-go/internal/geom"
)

// Patch carries the attributes an update changes. Nil fields are left alone.
// Kind-specific sections must match the element's kind.
type Patch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	ZIndex   *int     `json:"zIndex,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"`
	FlipX    *bool    `json:"flipX,omitempty"`
	FlipY    *bool    `json:"flipY,omitempty"`

	Text  *TextPatch  `json:"text,omitempty"`
	Image *ImagePatch `json:"image,omitempty"`
	Shape *ShapePatch `json:"shape,omitempty"`
}

type TextPatch struct {
	Content        *string         `json:"content,omitempty"`
	Color          *string         `json:"color,omitempty"`
	FontSize       *float64        `json:"fontSize,omitempty"`
	FontFamily     *string         `json:"fontFamily,omitempty"`
	FontWeight     *FontWeight     `json:"fontWeight,omitempty"`
	FontStyle      *FontStyle      `json:"fontStyle,omitempty"`
	TextDecoration *TextDecoration `json:"textDecoration,omitempty"`
	TextAlign      *TextAlign      `json:"textAlign,omitempty"`
}

type ImagePatch struct {
	Source *ImageSource `json:"source,omitempty"`
}

type ShapePatch struct {
	Variant     *ShapeVariant `json:"shapeVariant,omitempty"`
	FillColor   *string       `json:"fillColor,omitempty"`
	BorderWidth *float64      `json:"borderWidth,omitempty"`
	BorderColor *string       `json:"borderColor,omitempty"`
}

// MovePatch is the patch a drag or nudge applies.
func MovePatch(p geom.Point) Patch {
	return Patch{X: &p.X, Y: &p.Y}
}

// Apply returns a copy of e with p merged in, or a ValidationError when the
// result would be invalid. e itself is never modified.
func (e Element) Apply(p Patch) (Element, error) {
	out := e

	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.Width != nil {
		out.Width = *p.Width
	}
	if p.Height != nil {
		out.Height = *p.Height
	}
	if p.Rotation != nil {
		out.Rotation = geom.NormalizeDegrees(*p.Rotation)
	}
	if p.ZIndex != nil {
		out.ZIndex = *p.ZIndex
	}
	if p.Opacity != nil {
		out.Opacity = *p.Opacity
	}
	if p.FlipX != nil {
		out.FlipX = *p.FlipX
	}
	if p.FlipY != nil {
		out.FlipY = *p.FlipY
	}

	switch body := out.body.(type) {
	case Text:
		if p.Image != nil || p.Shape != nil {
			return e, kindMismatch(KindText)
		}
		if p.Text != nil {
			out.body = body.apply(*p.Text)
		}
	case Image:
		if p.Text != nil || p.Shape != nil {
			return e, kindMismatch(KindImage)
		}
		if p.Image != nil && p.Image.Source != nil {
			body.Source = *p.Image.Source
			out.body = body
		}
	case Shape:
		if p.Text != nil || p.Image != nil {
			return e, kindMismatch(KindShape)
		}
		if p.Shape != nil {
			out.body = body.apply(*p.Shape)
		}
	}

	if err := out.Validate(); err != nil {
		return e, err
	}
	return out, nil
}

func (t Text) apply(p TextPatch) Text {
	if p.Content != nil {
		t.Content = *p.Content
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.FontSize != nil {
		t.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		t.FontFamily = *p.FontFamily
	}
	if p.FontWeight != nil {
		t.FontWeight = *p.FontWeight
	}
	if p.FontStyle != nil {
		t.FontStyle = *p.FontStyle
	}
	if p.TextDecoration != nil {
		t.TextDecoration = *p.TextDecoration
	}
	if p.TextAlign != nil {
		t.TextAlign = *p.TextAlign
	}
	return t
}

func (s Shape) apply(p ShapePatch) Shape {
	if p.Variant != nil {
		s.Variant = *p.Variant
	}
	if p.FillColor != nil {
		s.FillColor = *p.FillColor
	}
	if p.BorderWidth != nil {
		s.BorderWidth = *p.BorderWidth
	}
	if p.BorderColor != nil {
		s.BorderColor = *p.BorderColor
	}
	return s
}

func kindMismatch(k Kind) error {
	return &ValidationError{Field: "kind", Reason: "patch does not match " + string(k) + " element"}
}

// Validate checks geometry and kind-specific style.
func (e Element) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"x", e.X}, {"y", e.Y}, {"width", e.Width}, {"height", e.Height}, {"rotation", e.Rotation}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ValidationError{Field: f.name, Reason: "must be a finite number"}
		}
	}
	if e.Width < MinSize {
		return &ValidationError{Field: "width", Reason: "must be at least 1"}
	}
	if e.Height < MinSize {
		return &ValidationError{Field: "height", Reason: "must be at least 1"}
	}
	if math.IsNaN(e.Opacity) || e.Opacity < 0 || e.Opacity > 1 {
		return &ValidationError{Field: "opacity", Reason: "must be between 0 and 1"}
	}

	switch body := e.body.(type) {
	case Text:
		if math.IsNaN(body.FontSize) || math.IsInf(body.FontSize, 0) || body.FontSize <= 0 {
			return &ValidationError{Field: "fontSize", Reason: "must be positive"}
		}
		switch body.FontWeight {
		case FontWeightNormal, FontWeightBold, "":
		default:
			return &ValidationError{Field: "fontWeight", Reason: "unknown weight " + string(body.FontWeight)}
		}
		switch body.FontStyle {
		case FontStyleNormal, FontStyleItalic, "":
		default:
			return &ValidationError{Field: "fontStyle", Reason: "unknown style " + string(body.FontStyle)}
		}
		switch body.TextDecoration {
		case DecorationNone, DecorationUnderline, DecorationLineThrough, "":
		default:
			return &ValidationError{Field: "textDecoration", Reason: "unknown decoration " + string(body.TextDecoration)}
		}
		switch body.TextAlign {
		case AlignLeft, AlignCenter, AlignRight, "":
		default:
			return &ValidationError{Field: "textAlign", Reason: "unknown alignment " + string(body.TextAlign)}
		}
		return validColor("color", body.Color)
	case Image:
		if body.Source.Width < 0 || body.Source.Height < 0 {
			return &ValidationError{Field: "source", Reason: "negative image dimensions"}
		}
		return nil
	case Shape:
		if !body.Variant.Valid() {
			return &ValidationError{Field: "shapeVariant", Reason: "unknown variant " + string(body.Variant)}
		}
		if math.IsNaN(body.BorderWidth) || math.IsInf(body.BorderWidth, 0) || body.BorderWidth < 0 {
			return &ValidationError{Field: "borderWidth", Reason: "must be finite and not negative"}
		}
		if err := validColor("fillColor", body.FillColor); err != nil {
			return err
		}
		return validColor("borderColor", body.BorderColor)
	default:
		return &ValidationError{Field: "kind", Reason: "element has no body"}
	}
}
