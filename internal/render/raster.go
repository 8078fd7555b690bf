package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/geom"
)

var (
	placeholderFill   = color.NRGBA{0xe5, 0xe7, 0xeb, 0xff}
	placeholderStroke = color.NRGBA{0x9c, 0xa3, 0xaf, 0xff}
)

// execute paints one command onto dst. Elements below full opacity are
// painted on their own layer first so fill and border fade together.
// Offscreen buffers are held to budget pixels.
func execute(dst *image.RGBA, cmd DrawCommand, faces *faceCache, budget int) error {
	if cmd.Opacity <= 0 {
		return nil
	}

	target := dst
	if cmd.Opacity < 1 {
		target = image.NewRGBA(dst.Bounds())
	}

	var err error
	switch cmd.Op {
	case OpBackground:
		err = drawBackground(target, cmd)
	case OpPath:
		err = drawPath(target, cmd)
	case OpText:
		err = drawText(target, cmd, faces, budget)
	case OpImage:
		err = drawImage(target, cmd)
	default:
		err = fmt.Errorf("unknown op %q", cmd.Op)
	}
	if err != nil {
		return err
	}

	if target != dst {
		alpha := color.Alpha{A: uint8(math.Round(cmd.Opacity * 255))}
		draw.DrawMask(dst, dst.Bounds(), target, dst.Bounds().Min, image.NewUniform(alpha), image.Point{}, draw.Over)
	}
	return nil
}

func matrixOf(cmd DrawCommand) geom.Matrix2D {
	var m geom.Matrix2D
	copy(m[:], cmd.Transform)
	return m
}

// aff3 converts a Matrix2D to the row-major form x/image/draw expects.
func aff3(m geom.Matrix2D) f64.Aff3 {
	return f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
}

func drawBackground(dst *image.RGBA, cmd DrawCommand) error {
	c, err := document.ParseColor(cmd.Fill)
	if err != nil {
		return err
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

// addPath feeds unit-box path commands through m into a rasterx adder.
func addPath(a rasterx.Adder, path []PathCommand, m geom.Matrix2D) {
	pt := func(x, y float64) fixed.Point26_6 {
		tx, ty := m.TransformPoint(x, y)
		return rasterx.ToFixedP(tx, ty)
	}

	open := false
	for _, c := range path {
		switch c.Op {
		case 'M':
			if open {
				a.Stop(false)
			}
			a.Start(pt(c.Args[0], c.Args[1]))
			open = true
		case 'L':
			a.Line(pt(c.Args[0], c.Args[1]))
		case 'C':
			a.CubeBezier(pt(c.Args[0], c.Args[1]), pt(c.Args[2], c.Args[3]), pt(c.Args[4], c.Args[5]))
		case 'Z':
			a.Stop(true)
			open = false
		}
	}
	if open {
		a.Stop(false)
	}
}

func fillPath(dst *image.RGBA, path []PathCommand, m geom.Matrix2D, c color.Color) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	filler := rasterx.NewFiller(w, h, scanner)
	addPath(filler, path, m)
	filler.SetColor(c)
	filler.Draw()
}

func strokePath(dst *image.RGBA, path []PathCommand, m geom.Matrix2D, width float64, c color.Color) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	dasher.SetStroke(fixed.Int26_6(width*64), 4<<6, rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.MiterClip, nil, 0)
	addPath(dasher, path, m)
	dasher.SetColor(c)
	dasher.Draw()
}

func drawPath(dst *image.RGBA, cmd DrawCommand) error {
	m := matrixOf(cmd)

	fill, err := document.ParseColor(cmd.Fill)
	if err != nil {
		return err
	}
	if fill.A > 0 {
		fillPath(dst, cmd.Path, m, fill)
	}

	if cmd.StrokeWidth > 0 {
		stroke, err := document.ParseColor(cmd.Stroke)
		if err != nil {
			return err
		}
		if stroke.A > 0 {
			strokePath(dst, cmd.Path, m, cmd.StrokeWidth, stroke)
		}
	}
	return nil
}

// layerSize is the size of an offscreen layer covering a command's box, one
// layer pixel per device pixel.
func layerSize(cmd DrawCommand) (float64, float64) {
	return max(1, math.Ceil(cmd.BoxWidth)), max(1, math.Ceil(cmd.BoxHeight))
}

// visibleLayer returns the part of a w x h layer that toDevice maps into
// bounds, padded by a pixel so bilinear sampling has its neighbours. A rotated
// layer clipped to the canvas covers up to twice the canvas area.
func visibleLayer(bounds image.Rectangle, toDevice geom.Matrix2D, w, h float64, budget int) (image.Rectangle, error) {
	r := toDevice.Invert().TransformRect(geom.Rect{
		X: float64(bounds.Min.X), Y: float64(bounds.Min.Y),
		Width: float64(bounds.Dx()), Height: float64(bounds.Dy()),
	})
	x0, y0 := max(0, math.Floor(r.X)-1), max(0, math.Floor(r.Y)-1)
	x1, y1 := min(w, math.Ceil(r.X+r.Width)+1), min(h, math.Ceil(r.Y+r.Height)+1)
	if !(x1 > x0 && y1 > y0) {
		return image.Rectangle{}, nil
	}
	if (x1-x0)*(y1-y0) > 2*float64(budget) {
		return image.Rectangle{}, fmt.Errorf("text layer %.0fx%.0f px: %w", x1-x0, y1-y0, ErrCanvasTooLarge)
	}
	return image.Rect(int(x0), int(y0), int(x1), int(y1)), nil
}

// compositeLayer maps a w x h layer onto the command's box in dst.
func compositeLayer(dst *image.RGBA, cmd DrawCommand, layer image.Image) {
	b := layer.Bounds()
	s2d := matrixOf(cmd).
		Multiply(geom.Scale(1/float64(b.Dx()), 1/float64(b.Dy()))).
		Multiply(geom.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
	draw.BiLinear.Transform(dst, aff3(s2d), layer, b, draw.Over, nil)
}

// drawText lays the run out on an unrotated layer in element space and
// composites it through the element transform, so rotation and flips apply to
// glyphs the same way they do to shapes. The layer covers only the part of the
// box that lands on dst.
func drawText(dst *image.RGBA, cmd DrawCommand, faces *faceCache, budget int) error {
	run := cmd.Text
	if run == nil || run.Content == "" || run.FontSize <= 0 {
		return nil
	}
	// A single glyph is rasterised whole, visible or not.
	if run.FontSize*run.FontSize > float64(budget) {
		return fmt.Errorf("font size %.0f px: %w", run.FontSize, ErrCanvasTooLarge)
	}
	col, err := document.ParseColor(run.Color)
	if err != nil {
		return err
	}

	bw, bh := layerSize(cmd)
	toDevice := matrixOf(cmd).Multiply(geom.Scale(1/bw, 1/bh))
	clip, err := visibleLayer(dst.Bounds(), toDevice, bw, bh, budget)
	if err != nil || clip.Empty() {
		return err
	}

	face, err := faces.face(run)
	if err != nil {
		return err
	}

	// The layer holds only clip; layer pixel (0,0) is box pixel clip.Min.
	layer := image.NewRGBA(image.Rect(0, 0, clip.Dx(), clip.Dy()))
	ox, oy := float64(clip.Min.X), float64(clip.Min.Y)
	shift := geom.Translate(-ox, -oy)
	src := image.NewUniform(col)
	thickness := max(1, run.FontSize/16)
	metrics := face.Metrics()
	top, bottom := fixed.I(clip.Min.Y), fixed.I(clip.Max.Y)

	for _, line := range layoutText(face, run, bw) {
		if line.baseline+metrics.Descent+fixed.I(int(thickness)+1) < top {
			continue
		}
		if line.baseline-metrics.Ascent > bottom {
			break
		}
		d := &font.Drawer{
			Dst:  layer,
			Src:  src,
			Face: face,
			Dot:  fixed.Point26_6{X: line.x - fixed.I(clip.Min.X), Y: line.baseline - top},
		}
		d.DrawString(line.text)

		if line.text == "" {
			continue
		}
		x0 := float64(line.x) / 64
		base := float64(line.baseline) / 64
		width := float64(line.width) / 64
		switch run.Decoration {
		case document.DecorationUnderline:
			fillPath(layer, rectPath(x0, base+run.FontSize*0.1, width, thickness), shift, col)
		case document.DecorationLineThrough:
			fillPath(layer, rectPath(x0, base-run.FontSize*0.3, width, thickness), shift, col)
		}
	}

	m := toDevice.Multiply(geom.Translate(ox, oy))
	draw.BiLinear.Transform(dst, aff3(m), layer, layer.Bounds(), draw.Over, nil)
	return nil
}

func drawImage(dst *image.RGBA, cmd DrawCommand) error {
	if cmd.pixels == nil {
		m := matrixOf(cmd)
		box := rectPath(0, 0, 1, 1)
		fillPath(dst, box, m, placeholderFill)
		cross := []PathCommand{moveTo(0, 0), lineTo(1, 1), moveTo(1, 0), lineTo(0, 1)}
		strokePath(dst, cross, m, max(1, min(cmd.BoxWidth, cmd.BoxHeight)/100), placeholderStroke)
		return nil
	}
	if cmd.pixels.Bounds().Empty() {
		return nil
	}
	compositeLayer(dst, cmd, cmd.pixels)
	return nil
}
