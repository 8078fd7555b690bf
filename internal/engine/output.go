package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/export"
	"github.com/printdeck/studio/backend-go/internal/template"
)

var ErrNoSink = errors.New("no template sink configured")

// AddImage decodes an uploaded picture and places it as a new image element
// on top of the scene. A decode failure leaves the scene and history alone.
func (e *Editor) AddImage(ctx context.Context, s *Session, data []byte) (document.Element, error) {
	src, err := e.decoder.Decode(ctx, data)
	if err != nil {
		return document.Element{}, err
	}
	el := document.NewImageElement(src, e.scene.Len())
	if err := e.insert(s, el); err != nil {
		return document.Element{}, err
	}
	return el, nil
}

// Export renders a snapshot of the working scene and encodes it. It never
// touches history, cancelled or not.
func (e *Editor) Export(ctx context.Context, opts export.Options) (*export.Result, error) {
	return e.exporter.Export(ctx, e.scene, opts)
}

// ExportTo exports and hands the file to saver.
func (e *Editor) ExportTo(ctx context.Context, opts export.Options, saver export.Saver) (*export.Result, error) {
	res, err := e.Export(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := saver.Save(ctx, res.FileName, res.Data, res.MIME); err != nil {
		return nil, fmt.Errorf("save %s: %w", res.FileName, err)
	}
	return res, nil
}

// Thumbnail renders the working scene into the configured thumbnail box as
// PNG.
func (e *Editor) Thumbnail() ([]byte, error) {
	return export.ThumbnailPNG(e.renderer, e.scene, e.thumbW, e.thumbH)
}

// Save builds a template from the working scene and hands it to the sink.
// Validation happens before any rendering.
func (e *Editor) Save(ctx context.Context, req template.Request) (*template.Template, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.sink == nil {
		return nil, ErrNoSink
	}
	thumb, err := e.Thumbnail()
	if err != nil {
		return nil, err
	}
	tpl, err := template.Build(e.scene, req, thumb, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.sink.Save(ctx, tpl); err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}
	slog.Info("template saved", "id", tpl.ID, "name", tpl.Name, "elements", len(tpl.Elements))
	return tpl, nil
}

// Proof renders the print proof sheet for the working scene.
func (e *Editor) Proof(name, category, author string) ([]byte, error) {
	thumb, err := e.Thumbnail()
	if err != nil {
		return nil, err
	}
	return export.ProofSheet(export.ProofInfo{
		Name:      name,
		Category:  category,
		Author:    author,
		Canvas:    e.scene.Canvas(),
		Counts:    e.scene.CountByKind(),
		Thumbnail: thumb,
		CreatedAt: e.now(),
	})
}
