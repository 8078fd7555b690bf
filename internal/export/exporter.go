package export

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/render"
)

// DefaultPDFScale is the raster scale used for the bitmap inside a PDF.
const DefaultPDFScale = 2.0

// Result is an encoded export ready to hand to a Saver.
type Result struct {
	FileName string
	MIME     string
	Data     []byte
	Width    int
	Height   int
}

// Exporter renders scenes through the same Renderer as the preview and
// encodes the bitmap per format.
type Exporter struct {
	renderer render.Renderer
	pdfScale float64
}

func NewExporter(renderer render.Renderer, pdfScale float64) *Exporter {
	if pdfScale <= 0 {
		pdfScale = DefaultPDFScale
	}
	return &Exporter{renderer: renderer, pdfScale: pdfScale}
}

// Renderer returns the renderer exports are drawn with.
func (x *Exporter) Renderer() render.Renderer { return x.renderer }

// Export copies the scene before returning control to the encoder goroutine,
// so the caller may keep editing while the export runs. Cancelling ctx
// abandons the result; the scene and any history are never touched.
func (x *Exporter) Export(ctx context.Context, scene *document.Scene, opts Options) (*Result, error) {
	snapshot := scene.Clone()
	canvas := snapshot.Canvas()

	opts, err := opts.Normalize()
	if err != nil {
		return nil, &Error{Options: opts, Canvas: canvas, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Options: opts, Canvas: canvas, Err: err}
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		res, err := x.encode(snapshot, opts)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		slog.Info("export cancelled", "format", opts.Format, "error", ctx.Err())
		return nil, &Error{Options: opts, Canvas: canvas, Err: ctx.Err()}
	case o := <-done:
		if o.err != nil {
			slog.Error("export failed", "format", opts.Format, "quality", opts.Quality, "error", o.err)
			return nil, &Error{Options: opts, Canvas: canvas, Err: o.err}
		}
		slog.Info("export complete",
			"format", opts.Format,
			"size", len(o.res.Data),
			"width", o.res.Width,
			"height", o.res.Height,
			"duration", time.Since(start),
		)
		return o.res, nil
	}
}

func (x *Exporter) encode(scene *document.Scene, opts Options) (*Result, error) {
	scale := opts.Quality
	if opts.Format == FormatPDF {
		scale = x.pdfScale
	}

	img, err := x.renderer.Render(scene, scale)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch opts.Format {
	case FormatPNG:
		data, err = EncodePNG(img)
	case FormatJPEG:
		data, err = EncodeJPEG(img, scene.Background())
	case FormatPDF:
		data, err = EncodePDF(img, scene.Canvas())
	default:
		err = fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, opts.Format)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		FileName: opts.FileName(),
		MIME:     opts.Format.MIME(),
		Data:     data,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}, nil
}

// Thumbnail renders the scene scaled to fit a width x height box.
func Thumbnail(r render.Renderer, scene *document.Scene, width, height int) (*image.RGBA, error) {
	return r.Render(scene, render.FitScale(scene.Canvas(), width, height))
}

// ThumbnailPNG is Thumbnail encoded as PNG.
func ThumbnailPNG(r render.Renderer, scene *document.Scene, width, height int) ([]byte, error) {
	img, err := Thumbnail(r, scene, width, height)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	return EncodePNG(img)
}
