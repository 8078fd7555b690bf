// Package template builds the save unit handed to the caller and the sinks
// that receive it.
package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/typeid"
)

var ErrNotFound = errors.New("template not found")

type Metadata struct {
	Downloads int      `json:"downloads"`
	Rating    float64  `json:"rating"`
	Author    string   `json:"author,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Template is a saved design: the scene's canvas and elements, a PNG
// thumbnail and descriptive metadata.
type Template struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Category   string             `json:"category"`
	Canvas     document.Size      `json:"canvas"`
	Background string             `json:"background,omitempty"`
	Elements   []document.Element `json:"elements"`
	Thumbnail  []byte             `json:"thumbnail"`
	CreatedAt  time.Time          `json:"createdAt"`
	Metadata   Metadata           `json:"metadata"`
}

// Request is what the caller supplies when saving.
type Request struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Metadata Metadata `json:"metadata"`
}

// Validate rejects requests that cannot become a template.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &document.ValidationError{Field: "name", Reason: "template name is required"}
	}
	if r.Metadata.Downloads < 0 {
		return &document.ValidationError{Field: "downloads", Reason: "must not be negative"}
	}
	if math.IsNaN(r.Metadata.Rating) || r.Metadata.Rating < 0 || r.Metadata.Rating > 5 {
		return &document.ValidationError{Field: "rating", Reason: "must be between 0 and 5"}
	}
	return nil
}

// Build assembles a template from a scene. The scene is copied; later edits
// do not reach the template.
func Build(scene *document.Scene, req Request, thumbnail []byte, now time.Time) (*Template, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	snap := scene.Clone()
	return &Template{
		ID:         typeid.NewTemplateID(),
		Name:       strings.TrimSpace(req.Name),
		Category:   strings.TrimSpace(req.Category),
		Canvas:     snap.Canvas(),
		Background: snap.Background(),
		Elements:   snap.Elements(),
		Thumbnail:  thumbnail,
		CreatedAt:  now.UTC(),
		Metadata:   req.Metadata,
	}, nil
}

// Scene rebuilds an editable scene from the template.
func (t *Template) Scene() (*document.Scene, error) {
	s, err := document.NewScene(t.Canvas)
	if err != nil {
		return nil, err
	}
	if err := s.SetBackground(t.Background); err != nil {
		return nil, err
	}
	for _, e := range t.Elements {
		if err := s.Add(e); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.ID, err)
		}
	}
	return s, nil
}

// sceneJSON encodes the template's scene in the same form the document codec
// reads.
func (t *Template) sceneJSON() ([]byte, error) {
	s, err := t.Scene()
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// Sink receives saved templates. The editor is done with a template once
// Save returns.
type Sink interface {
	Save(ctx context.Context, t *Template) error
}

type SinkFunc func(ctx context.Context, t *Template) error

func (f SinkFunc) Save(ctx context.Context, t *Template) error { return f(ctx, t) }

// Store is a Sink that can also read templates back.
type Store interface {
	Sink
	Get(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context) ([]Template, error)
}
