package render

import (
	"encoding/json"
	"image"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/geom"
)

// Command ops.
const (
	OpBackground = "background"
	OpPath       = "path"
	OpText       = "text"
	OpImage      = "image"
)

// DrawCommand is a single drawing operation. The rasterizer executes a list
// of these, and the browser bridge hands the same list to a Canvas2D client,
// so preview and export never disagree about what to paint.
type DrawCommand struct {
	Op          string        `json:"op"`
	ElementID   string        `json:"elementId,omitempty"`
	Transform   []float64     `json:"transform,omitempty"` // [a, b, c, d, e, f] unit box to device pixels
	Path        []PathCommand `json:"path,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // device pixels
	Opacity     float64       `json:"opacity"`

	// Box is the element's size in device pixels.
	BoxWidth  float64 `json:"boxWidth,omitempty"`
	BoxHeight float64 `json:"boxHeight,omitempty"`

	Text *TextRun `json:"text,omitempty"`

	ImageAssetID string      `json:"imageAssetId,omitempty"`
	ImageWidth   int         `json:"imageWidth,omitempty"`
	ImageHeight  int         `json:"imageHeight,omitempty"`
	pixels       image.Image `json:"-"`
}

// TextRun is the text payload of a text command, with the font size already
// multiplied by the render scale.
type TextRun struct {
	Content    string                  `json:"content"`
	Color      string                  `json:"color"`
	FontSize   float64                 `json:"fontSize"`
	FontFamily string                  `json:"fontFamily"`
	Weight     document.FontWeight     `json:"fontWeight"`
	Style      document.FontStyle      `json:"fontStyle"`
	Decoration document.TextDecoration `json:"textDecoration"`
	Align      document.TextAlign      `json:"textAlign"`
}

// Compile generates the command list for a scene at the given scale.
// Commands are in painter's order (back to front).
func Compile(scene *document.Scene, scale float64) []DrawCommand {
	var commands []DrawCommand
	if bg := scene.Background(); bg != "" {
		c := scene.Canvas()
		commands = append(commands, DrawCommand{
			Op:        OpBackground,
			Transform: geom.Scale(c.Width*scale, c.Height*scale).ToSlice(),
			Fill:      bg,
			Opacity:   1,
		})
	}

	for e := range scene.PaintOrder() {
		commands = append(commands, compileElement(e, scale))
	}
	return commands
}

func compileElement(e document.Element, scale float64) DrawCommand {
	cmd := DrawCommand{
		ElementID: e.ID(),
		Transform: geom.Scale(scale, scale).Multiply(e.Transform()).ToSlice(),
		Opacity:   e.Opacity,
		BoxWidth:  e.Width * scale,
		BoxHeight: e.Height * scale,
	}

	switch body := e.Body().(type) {
	case document.Shape:
		cmd.Op = OpPath
		cmd.Path = ShapePath(body.Variant)
		cmd.Fill = body.FillColor
		if body.BorderWidth > 0 {
			cmd.Stroke = body.BorderColor
			cmd.StrokeWidth = body.BorderWidth * scale
		}
	case document.Text:
		cmd.Op = OpText
		cmd.Text = &TextRun{
			Content:    body.Content,
			Color:      body.Color,
			FontSize:   body.FontSize * scale,
			FontFamily: body.FontFamily,
			Weight:     body.FontWeight,
			Style:      body.FontStyle,
			Decoration: body.TextDecoration,
			Align:      body.TextAlign,
		}
	case document.Image:
		cmd.Op = OpImage
		cmd.ImageAssetID = body.Source.AssetID
		cmd.ImageWidth = body.Source.Width
		cmd.ImageHeight = body.Source.Height
		cmd.pixels = body.Source.Pixels
	}
	return cmd
}

// DrawCommandsToJSON serializes draw commands to a JSON string.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
