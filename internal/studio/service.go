package studio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/printdeck/studio/backend-go/internal/auth"
	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/engine"
	"github.com/printdeck/studio/backend-go/internal/export"
	"github.com/printdeck/studio/backend-go/internal/render"
	"github.com/printdeck/studio/backend-go/internal/template"
	"github.com/printdeck/studio/backend-go/internal/typeid"
)

var (
	ErrNotFound        = errors.New("workspace not found")
	ErrElementNotFound = errors.New("element not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNoTemplates     = errors.New("template store not configured")
)

// Config wires the collaborators every workspace editor shares. Renderer is
// used for previews, thumbnails and exports alike.
type Config struct {
	Renderer  render.Renderer
	Exporter  *export.Exporter
	Templates template.Store    // optional; enables listing and reopening templates
	Assets    export.Rehydrator // optional; reattaches pixels to reopened images
	Archive   export.Saver      // optional; keeps a copy of every export

	// EditorOpts apply to every new editor (decoder, sink, history limit,
	// thumbnail size).
	EditorOpts []engine.Option

	// IdleTimeout is how long a workspace without sessions survives Sweep.
	IdleTimeout time.Duration
}

const DefaultIdleTimeout = 2 * time.Hour

type Service struct {
	cfg Config

	mu         sync.RWMutex
	workspaces map[string]*Workspace

	listenersMu sync.RWMutex
	listeners   []func(Change)

	now func() time.Time
}

func NewService(cfg Config) *Service {
	if cfg.Renderer == nil {
		cfg.Renderer = render.New()
	}
	if cfg.Exporter == nil {
		cfg.Exporter = export.NewExporter(cfg.Renderer, export.DefaultPDFScale)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Service{
		cfg:        cfg,
		workspaces: make(map[string]*Workspace),
		now:        time.Now,
	}
}

// Subscribe registers fn to hear about every scene change. fn runs on the
// goroutine that made the change and must not block.
func (s *Service) Subscribe(fn func(Change)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) publish(c Change) {
	s.listenersMu.RLock()
	defs := slices.Clone(s.listeners)
	s.listenersMu.RUnlock()
	for _, fn := range defs {
		fn(c)
	}
}

type CreateRequest struct {
	Preset     string `json:"preset,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
}

// Create opens a workspace on a blank preset canvas, or on a copy of a saved
// template.
func (s *Service) Create(ctx context.Context, owner string, req CreateRequest) (*Workspace, error) {
	scene, err := s.initialScene(ctx, req)
	if err != nil {
		return nil, err
	}

	opts := append(slices.Clone(s.cfg.EditorOpts),
		engine.WithRenderer(s.cfg.Renderer),
		engine.WithExporter(s.cfg.Exporter),
	)
	ws := newWorkspace(typeid.NewWorkspaceID(), owner, engine.New(scene, opts...), s.now(), s.publish)

	s.mu.Lock()
	s.workspaces[ws.ID] = ws
	s.mu.Unlock()

	slog.Info("workspace created", "workspace", ws.ID, "owner", owner, "canvas", scene.Canvas())
	return ws, nil
}

func (s *Service) initialScene(ctx context.Context, req CreateRequest) (*document.Scene, error) {
	if req.TemplateID != "" {
		if s.cfg.Templates == nil {
			return nil, ErrNoTemplates
		}
		tpl, err := s.cfg.Templates.Get(ctx, req.TemplateID)
		if err != nil {
			return nil, err
		}
		scene, err := tpl.Scene()
		if err != nil {
			return nil, err
		}
		if s.cfg.Assets != nil {
			s.cfg.Assets.Rehydrate(scene)
		}
		return scene, nil
	}

	preset := lo.Ternary(strings.TrimSpace(req.Preset) == "", document.DefaultPreset, req.Preset)
	p, err := document.LookupPreset(preset)
	if err != nil {
		return nil, err
	}
	return document.NewScene(p.Size())
}

// Get returns a workspace the subject may use. Workspaces opened without a
// token are open to anyone holding their id.
func (s *Service) Get(id, subject string) (*Workspace, error) {
	s.mu.RLock()
	ws, ok := s.workspaces[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if ws.Owner != "" && !auth.IsAnonymous(ws.Owner) && ws.Owner != subject {
		return nil, ErrForbidden
	}
	return ws, nil
}

func (s *Service) Delete(id, subject string) error {
	if _, err := s.Get(id, subject); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.workspaces, id)
	s.mu.Unlock()
	slog.Info("workspace deleted", "workspace", id)
	return nil
}

type Summary struct {
	ID        string        `json:"id"`
	Canvas    document.Size `json:"canvas"`
	Elements  int           `json:"elements"`
	Sessions  int           `json:"sessions"`
	CreatedAt time.Time     `json:"createdAt"`
}

// List returns the subject's workspaces, oldest first.
func (s *Service) List(subject string) []Summary {
	s.mu.RLock()
	mine := lo.Filter(lo.Values(s.workspaces), func(ws *Workspace, _ int) bool {
		return ws.Owner == subject
	})
	s.mu.RUnlock()

	slices.SortFunc(mine, func(a, b *Workspace) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return lo.Map(mine, func(ws *Workspace, _ int) Summary {
		scene := ws.Snapshot()
		return Summary{
			ID:        ws.ID,
			Canvas:    scene.Canvas(),
			Elements:  scene.Len(),
			Sessions:  ws.Sessions(),
			CreatedAt: ws.CreatedAt,
		}
	})
}

// Sweep drops workspaces that have had no sessions and no activity for the
// idle timeout. It returns how many were dropped.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.cfg.IdleTimeout)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, ws := range s.workspaces {
		if ws.Sessions() == 0 && ws.idleSince().Before(cutoff) {
			delete(s.workspaces, id)
			n++
		}
	}
	if n > 0 {
		slog.Info("idle workspaces dropped", "count", n)
	}
	return n
}

// Preview renders a snapshot outside the workspace lock.
func (s *Service) Preview(ws *Workspace, scale float64) (*image.RGBA, error) {
	return s.cfg.Renderer.Render(ws.Snapshot(), scale)
}

// Export encodes a snapshot outside the workspace lock, so editing carries on
// while it runs. With an archive configured a copy is kept under a unique
// name.
func (s *Service) Export(ctx context.Context, ws *Workspace, opts export.Options) (*export.Result, error) {
	res, err := s.cfg.Exporter.Export(ctx, ws.Snapshot(), opts)
	if err != nil {
		return nil, err
	}
	if s.cfg.Archive != nil {
		name := typeid.NewExportID() + "-" + res.FileName
		if err := s.cfg.Archive.Save(ctx, name, res.Data, res.MIME); err != nil {
			slog.Warn("archive export", "workspace", ws.ID, "file", name, "error", err)
		}
	}
	return res, nil
}

// Templates lists saved templates.
func (s *Service) Templates(ctx context.Context) ([]template.Template, error) {
	if s.cfg.Templates == nil {
		return nil, ErrNoTemplates
	}
	return s.cfg.Templates.List(ctx)
}
