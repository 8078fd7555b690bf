package document

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/printdeck/studio/backend-go/internal/geom"
	"github.com/printdeck/studio/backend-go/internal/typeid"
)

type elementJSON struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Rotation float64  `json:"rotation"`
	ZIndex   int      `json:"zIndex"`
	Opacity  *float64 `json:"opacity,omitempty"`
	FlipX    bool     `json:"flipX,omitempty"`
	FlipY    bool     `json:"flipY,omitempty"`

	Text  *Text  `json:"text,omitempty"`
	Image *Image `json:"image,omitempty"`
	Shape *Shape `json:"shape,omitempty"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	opacity := e.Opacity
	out := elementJSON{
		ID:       e.id,
		Kind:     e.Kind(),
		X:        e.X,
		Y:        e.Y,
		Width:    e.Width,
		Height:   e.Height,
		Rotation: e.Rotation,
		ZIndex:   e.ZIndex,
		Opacity:  &opacity,
		FlipX:    e.FlipX,
		FlipY:    e.FlipY,
	}
	switch body := e.body.(type) {
	case Text:
		out.Text = &body
	case Image:
		out.Image = &body
	case Shape:
		out.Shape = &body
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an element. A missing id gets a fresh one, a missing
// opacity is 1 and a missing payload takes the kind's defaults.
func (e *Element) UnmarshalJSON(data []byte) error {
	var in elementJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	out := Element{
		id:       in.ID,
		X:        in.X,
		Y:        in.Y,
		Width:    in.Width,
		Height:   in.Height,
		Rotation: in.Rotation,
		ZIndex:   in.ZIndex,
		Opacity:  1,
		FlipX:    in.FlipX,
		FlipY:    in.FlipY,
	}
	if out.id == "" {
		out.id = typeid.NewElementID()
	}
	if in.Opacity != nil {
		out.Opacity = *in.Opacity
	}

	switch in.Kind {
	case KindText:
		body := DefaultText()
		if in.Text != nil {
			body = *in.Text
		}
		out.body = body
	case KindImage:
		body := Image{}
		if in.Image != nil {
			body = *in.Image
		}
		out.body = body
	case KindShape:
		body := DefaultShape()
		if in.Shape != nil {
			body = *in.Shape
		}
		out.body = body
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown element kind %q", in.Kind)}
	}

	out.Rotation = geom.NormalizeDegrees(out.Rotation)
	if err := out.Validate(); err != nil {
		return fmt.Errorf("element %s: %w", out.id, err)
	}
	*e = out
	return nil
}

type sceneJSON struct {
	Canvas     Size      `json:"canvas"`
	Background string    `json:"background,omitempty"`
	Elements   []Element `json:"elements"`
}

func (s *Scene) MarshalJSON() ([]byte, error) {
	return json.Marshal(sceneJSON{
		Canvas:     s.canvas,
		Background: s.background,
		Elements:   s.elements,
	})
}

func (s *Scene) UnmarshalJSON(data []byte) error {
	var in sceneJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	out, err := NewScene(in.Canvas)
	if err != nil {
		return err
	}
	if err := out.SetBackground(in.Background); err != nil {
		return err
	}
	for _, e := range in.Elements {
		if err := out.Add(e); err != nil {
			return err
		}
	}
	*s = *out
	return nil
}

// DecodeScene parses a scene file. The format comes from the file extension:
// .yaml/.yml is YAML, anything else JSON.
func DecodeScene(name string, data []byte) (*Scene, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
		data = converted
	}

	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return &s, nil
}
