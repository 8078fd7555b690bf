// Package export turns rendered scenes into downloadable files.
package export

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/printdeck/studio/backend-go/internal/document"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
	FormatPDF  Format = "pdf"
)

const (
	MinQuality     = 0.5
	MaxQuality     = 3.0
	DefaultQuality = 1.0
	DefaultName    = "design"
)

var ErrInvalidOptions = errors.New("invalid export options")

// ParseFormat accepts png, jpg, jpeg and pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, s)
}

// Extension returns the file extension without a dot.
func (f Format) Extension() string { return string(f) }

func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

// Options configures one export. Quality is the raster scale factor; it is
// ignored for PDF, which always renders at the exporter's PDF scale.
type Options struct {
	Format  Format  `json:"format"`
	Quality float64 `json:"quality,omitempty"`
	Name    string  `json:"name,omitempty"`
}

// Normalize fills defaults and checks ranges.
func (o Options) Normalize() (Options, error) {
	f, err := ParseFormat(string(o.Format))
	if err != nil {
		return o, err
	}
	o.Format = f

	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Format != FormatPDF && (math.IsNaN(o.Quality) || o.Quality < MinQuality || o.Quality > MaxQuality) {
		return o, fmt.Errorf("%w: quality %v outside [%v, %v]", ErrInvalidOptions, o.Quality, MinQuality, MaxQuality)
	}
	return o, nil
}

// FileName is the sanitized name plus the format's extension.
func (o Options) FileName() string {
	return SanitizeName(o.Name) + "." + o.Format.Extension()
}

// SanitizeName keeps ASCII letters, digits, '-' and '_' and replaces
// everything else with '-'. An empty name becomes DefaultName.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}

// Error reports a failed export together with the configuration that was
// attempted.
type Error struct {
	Options Options
	Canvas  document.Size
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s at quality %v (canvas %vx%v): %v",
		e.Options.Format, e.Options.Quality, e.Canvas.Width, e.Canvas.Height, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
