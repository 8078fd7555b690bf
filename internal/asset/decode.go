package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/printdeck/studio/backend-go/internal/document"
)

// DefaultMaxPixels bounds the size of an uploaded picture.
const DefaultMaxPixels = 50_000_000

var (
	ErrEmpty       = errors.New("no image data")
	ErrUnsupported = errors.New("unsupported image format")
	ErrTooLarge    = errors.New("image dimensions too large")
)

// DecodeError reports an upload that could not be turned into pixels.
// Format is the detected format, empty when it could not be recognized.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return "decode image: " + e.Err.Error()
	}
	return fmt.Sprintf("decode %s image: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecode reports whether err is (or wraps) a DecodeError.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Decoder turns raw upload bytes into an image source.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (document.ImageSource, error)
}

// ImageDecoder decodes PNG, JPEG, GIF, WebP and BMP.
type ImageDecoder struct {
	MaxPixels int
}

func NewDecoder() *ImageDecoder {
	return &ImageDecoder{MaxPixels: DefaultMaxPixels}
}

// Decode checks the header before allocating pixels, so an oversized or
// unknown file fails fast.
func (d *ImageDecoder) Decode(ctx context.Context, data []byte) (document.ImageSource, error) {
	if len(data) == 0 {
		return document.ImageSource{}, &DecodeError{Err: ErrEmpty}
	}
	if err := ctx.Err(); err != nil {
		return document.ImageSource{}, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return document.ImageSource{}, &DecodeError{Err: ErrUnsupported}
		}
		return document.ImageSource{}, &DecodeError{Format: format, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return document.ImageSource{}, &DecodeError{Format: format, Err: fmt.Errorf("empty %dx%d picture", cfg.Width, cfg.Height)}
	}
	if d.MaxPixels > 0 && cfg.Width*cfg.Height > d.MaxPixels {
		return document.ImageSource{}, &DecodeError{Format: format, Err: ErrTooLarge}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return document.ImageSource{}, &DecodeError{Format: format, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return document.ImageSource{}, err
	}

	b := img.Bounds()
	return document.ImageSource{Width: b.Dx(), Height: b.Dy(), Pixels: img}, nil
}
