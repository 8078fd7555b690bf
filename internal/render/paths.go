package render

import (
	"encoding/json"
	"math"

	"github.com/printdeck/studio/backend-go/internal/document"
)

// PathCommand is one SVG-style path instruction in unit-box coordinates:
// M x y, L x y, C x1 y1 x2 y2 x y, Z.
type PathCommand struct {
	Op   byte
	Args []float64
}

// MarshalJSON writes the command as ["M", x, y] so canvas clients can replay
// it directly.
func (c PathCommand) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(c.Args)+1)
	out = append(out, string(c.Op))
	for _, a := range c.Args {
		out = append(out, a)
	}
	return json.Marshal(out)
}

func moveTo(x, y float64) PathCommand { return PathCommand{'M', []float64{x, y}} }
func lineTo(x, y float64) PathCommand { return PathCommand{'L', []float64{x, y}} }
func cubeTo(x1, y1, x2, y2, x, y float64) PathCommand {
	return PathCommand{'C', []float64{x1, y1, x2, y2, x, y}}
}
func closePath() PathCommand { return PathCommand{Op: 'Z'} }

// ShapePath returns the outline of a shape variant inscribed in the unit
// square [0,1]x[0,1].
func ShapePath(v document.ShapeVariant) []PathCommand {
	switch v {
	case document.ShapeCircle:
		return ellipsePath()
	case document.ShapeTriangle:
		return []PathCommand{moveTo(0.5, 0), lineTo(1, 1), lineTo(0, 1), closePath()}
	case document.ShapeStar:
		return starPath(5, 0.382)
	case document.ShapeHeart:
		return heartPath()
	case document.ShapeHexagon:
		return []PathCommand{
			moveTo(0.25, 0), lineTo(0.75, 0), lineTo(1, 0.5),
			lineTo(0.75, 1), lineTo(0.25, 1), lineTo(0, 0.5), closePath(),
		}
	default:
		return rectPath(0, 0, 1, 1)
	}
}

func rectPath(x, y, w, h float64) []PathCommand {
	return []PathCommand{
		moveTo(x, y),
		lineTo(x+w, y),
		lineTo(x+w, y+h),
		lineTo(x, y+h),
		closePath(),
	}
}

// ellipsePath approximates the inscribed ellipse with four cubic beziers.
func ellipsePath() []PathCommand {
	// k = 4 * (sqrt(2) - 1) / 3
	const k = 0.5522847498
	const r = 0.5
	cx, cy := 0.5, 0.5
	kr := r * k

	return []PathCommand{
		moveTo(cx+r, cy),
		cubeTo(cx+r, cy+kr, cx+kr, cy+r, cx, cy+r),
		cubeTo(cx-kr, cy+r, cx-r, cy+kr, cx-r, cy),
		cubeTo(cx-r, cy-kr, cx-kr, cy-r, cx, cy-r),
		cubeTo(cx+kr, cy-r, cx+r, cy-kr, cx+r, cy),
		closePath(),
	}
}

// starPath builds a star with the given number of points, the first pointing
// straight up. inner is the inner radius as a fraction of the outer.
func starPath(points int, inner float64) []PathCommand {
	path := make([]PathCommand, 0, points*2+1)
	for i := range points * 2 {
		r := 0.5
		if i%2 == 1 {
			r *= inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/float64(points)
		x, y := 0.5+r*math.Cos(a), 0.5+r*math.Sin(a)
		if i == 0 {
			path = append(path, moveTo(x, y))
		} else {
			path = append(path, lineTo(x, y))
		}
	}
	return append(path, closePath())
}

func heartPath() []PathCommand {
	return []PathCommand{
		moveTo(0.5, 0.25),
		cubeTo(0.5, 0.1, 0.4, 0, 0.25, 0),
		cubeTo(0.1, 0, 0, 0.12, 0, 0.3),
		cubeTo(0, 0.55, 0.25, 0.75, 0.5, 1),
		cubeTo(0.75, 0.75, 1, 0.55, 1, 0.3),
		cubeTo(1, 0.12, 0.9, 0, 0.75, 0),
		cubeTo(0.6, 0, 0.5, 0.1, 0.5, 0.25),
		closePath(),
	}
}
