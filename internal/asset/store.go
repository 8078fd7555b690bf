package asset

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/typeid"
)

var ErrNotFound = errors.New("asset not found")

// Store keeps decoded pictures on disk as PNG files named by asset id.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory files are stored in.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(assetID string) string {
	return filepath.Join(s.dir, assetID+".png")
}

// Put encodes img as PNG under a fresh asset id.
func (s *Store) Put(img image.Image) (string, error) {
	assetID := typeid.NewAssetID()
	p := s.path(assetID)

	out, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(p)
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("close asset file: %w", err)
	}
	return assetID, nil
}

// Open decodes a stored asset.
func (s *Store) Open(assetID string) (image.Image, error) {
	if err := typeid.Validate(assetID, typeid.PrefixAsset); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, assetID)
	}
	f, err := os.Open(s.path(assetID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, assetID)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, &DecodeError{Format: "png", Err: err}
	}
	return img, nil
}

// Delete removes an asset file.
func (s *Store) Delete(assetID string) error {
	if err := os.Remove(s.path(assetID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, assetID)
		}
		return err
	}
	return nil
}

// Rehydrate attaches stored pixels to image elements that reference an asset
// but carry none, as happens after loading a scene from JSON or YAML. Missing
// assets are logged and left as placeholders.
func (s *Store) Rehydrate(scene *document.Scene) int {
	loaded := 0
	for _, e := range scene.Elements() {
		img, ok := e.Body().(document.Image)
		if !ok || img.Source.Loaded() || img.Source.AssetID == "" {
			continue
		}
		pixels, err := s.Open(img.Source.AssetID)
		if err != nil {
			slog.Warn("rehydrate image", "element", e.ID(), "asset", img.Source.AssetID, "error", err)
			continue
		}
		b := pixels.Bounds()
		src := document.ImageSource{AssetID: img.Source.AssetID, Width: b.Dx(), Height: b.Dy(), Pixels: pixels}
		if _, err := scene.Update(e.ID(), document.Patch{Image: &document.ImagePatch{Source: &src}}); err != nil {
			slog.Warn("rehydrate image", "element", e.ID(), "error", err)
			continue
		}
		loaded++
	}
	return loaded
}

// Library decodes uploads and keeps them in a Store so they can be served and
// rehydrated later. It satisfies Decoder.
type Library struct {
	decoder Decoder
	store   *Store
}

func NewLibrary(decoder Decoder, store *Store) *Library {
	return &Library{decoder: decoder, store: store}
}

func (l *Library) Decode(ctx context.Context, data []byte) (document.ImageSource, error) {
	src, err := l.decoder.Decode(ctx, data)
	if err != nil {
		return document.ImageSource{}, err
	}
	id, err := l.store.Put(src.Pixels)
	if err != nil {
		return document.ImageSource{}, err
	}
	src.AssetID = id
	return src, nil
}

func (l *Library) Store() *Store { return l.store }
