package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/jung-kurt/gofpdf"

	"github.com/printdeck/studio/backend-go/internal/document"
)

// JPEGQuality is the encoder quality for JPEG exports.
const JPEGQuality = 92

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG flattens img onto background (white when transparent) since
// JPEG has no alpha channel.
func EncodeJPEG(img image.Image, background string) ([]byte, error) {
	bg := color.NRGBA{0xff, 0xff, 0xff, 0xff}
	if c, err := document.ParseColor(background); err == nil && c.A == 0xff {
		bg = c
	}
	flat := image.NewRGBA(img.Bounds())
	draw.Draw(flat, flat.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePDF wraps img in a single page the size of the canvas, one document
// unit per point, with the bitmap covering the whole page.
func EncodePDF(img image.Image, canvas document.Size) ([]byte, error) {
	pngData, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	// Portrait keeps Wd/Ht as given; "L" would swap them.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: canvas.Width, Ht: canvas.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("printdeck studio", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("scene", opts, bytes.NewReader(pngData))
	pdf.ImageOptions("scene", 0, 0, canvas.Width, canvas.Height, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("encode pdf: %w", err)
	}
	return buf.Bytes(), nil
}
