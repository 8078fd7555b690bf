package engine

import (
	"image"
	"time"

	"github.com/printdeck/studio/backend-go/internal/asset"
	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/export"
	"github.com/printdeck/studio/backend-go/internal/history"
	"github.com/printdeck/studio/backend-go/internal/render"
	"github.com/printdeck/studio/backend-go/internal/template"
)

const (
	DefaultHistoryLimit    = 100
	DefaultThumbnailWidth  = 300
	DefaultThumbnailHeight = 300
)

// Editor owns the working scene and its history. Every mutation happens
// synchronously on the caller's goroutine; callers serving several clients
// must serialize access themselves.
type Editor struct {
	// Document state
	scene   *document.Scene
	history *history.History

	// Live edits applied since the last commit. Previews wait for
	// CommitPending; deferred commits wait for every gesture to end.
	previewed bool
	deferred  bool

	// Sessions with a gesture in progress, true once it has moved something
	gestures map[*Session]bool

	// Bumped on every scene change, committed or not
	revision uint64

	// Collaborators
	renderer render.Renderer
	exporter *export.Exporter
	decoder  asset.Decoder
	sink     template.Sink

	historyLimit int
	thumbW       int
	thumbH       int
	now          func() time.Time
}

type Option func(*Editor)

func WithRenderer(r render.Renderer) Option {
	return func(e *Editor) { e.renderer = r }
}

// WithExporter replaces the exporter; by default one is built over the
// editor's renderer.
func WithExporter(x *export.Exporter) Option {
	return func(e *Editor) { e.exporter = x }
}

func WithDecoder(d asset.Decoder) Option {
	return func(e *Editor) { e.decoder = d }
}

func WithSink(s template.Sink) Option {
	return func(e *Editor) { e.sink = s }
}

func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.historyLimit = n }
}

func WithThumbnailSize(w, h int) Option {
	return func(e *Editor) {
		if w > 0 && h > 0 {
			e.thumbW, e.thumbH = w, h
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// New creates an editor over a copy of scene. The copy is the initial history
// state.
func New(scene *document.Scene, opts ...Option) *Editor {
	e := &Editor{
		scene:        scene.Clone(),
		historyLimit: DefaultHistoryLimit,
		thumbW:       DefaultThumbnailWidth,
		thumbH:       DefaultThumbnailHeight,
		now:          time.Now,
		gestures:     make(map[*Session]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderer == nil {
		e.renderer = render.New()
	}
	if e.exporter == nil {
		e.exporter = export.NewExporter(e.renderer, export.DefaultPDFScale)
	}
	if e.decoder == nil {
		e.decoder = asset.NewDecoder()
	}
	e.history = history.New(e.scene, e.historyLimit)
	return e
}

// NewBlank creates an editor over an empty canvas of the named preset.
func NewBlank(preset string, opts ...Option) (*Editor, error) {
	p, err := document.LookupPreset(preset)
	if err != nil {
		return nil, err
	}
	scene, err := document.NewScene(p.Size())
	if err != nil {
		return nil, err
	}
	return New(scene, opts...), nil
}

// --- Queries ---

// Scene returns a copy of the working scene, live edits included.
func (e *Editor) Scene() *document.Scene { return e.scene.Clone() }

// Element returns the element with the given id from the working scene.
func (e *Editor) Element(id string) (document.Element, bool) { return e.scene.Get(id) }

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// HistoryLen returns the number of stored snapshots, the initial state
// included.
func (e *Editor) HistoryLen() int { return e.history.Len() }

// Pending reports whether live edits are waiting for a commit.
func (e *Editor) Pending() bool {
	return e.previewed || e.deferred || e.midGesture()
}

func (e *Editor) Revision() uint64 { return e.revision }

// Render draws the working scene with the same renderer exports use.
func (e *Editor) Render(scale float64) (*image.RGBA, error) {
	return e.renderer.Render(e.scene, scale)
}

// DrawCommands compiles the working scene into the display list a browser
// canvas replays.
func (e *Editor) DrawCommands(scale float64) ([]render.DrawCommand, error) {
	if _, _, err := render.PixelSize(e.scene.Canvas(), scale); err != nil {
		return nil, err
	}
	return render.Compile(e.scene, scale), nil
}

// Renderer returns the renderer shared by preview, thumbnails and export.
func (e *Editor) Renderer() render.Renderer { return e.renderer }

// --- History ---

// Commit records previewed edits. While a gesture is in progress the
// commit is deferred and lands together with that gesture's.
func (e *Editor) Commit() bool {
	if !e.previewed && !e.deferred {
		return false
	}
	e.commit()
	return true
}

// commit records the working scene. A gesture's intermediate frames never
// become history, so while any session is midway through one the commit
// waits for the last gesture to end.
func (e *Editor) commit() {
	if e.midGesture() {
		e.deferred = true
		return
	}
	e.history.Commit(e.scene)
	e.previewed = false
	e.deferred = false
}

// midGesture reports whether some session's gesture has changed the scene
// and not finished yet.
func (e *Editor) midGesture() bool {
	for _, moved := range e.gestures {
		if moved {
			return true
		}
	}
	return false
}

// touch marks a live, uncommitted change.
func (e *Editor) touch() {
	e.previewed = true
	e.revision++
}

// dropLive forgets every uncommitted edit after the scene was replaced.
// Gestures of other sessions keep going from the new scene.
func (e *Editor) dropLive() {
	e.previewed = false
	e.deferred = false
	for s := range e.gestures {
		e.gestures[s] = false
	}
}

// Undo restores the previous committed state. Live edits and any gesture in
// progress on s are discarded. At the oldest state it does nothing.
func (e *Editor) Undo(s *Session) bool {
	if e.Pending() {
		// Live edits sit on top of the cursor; dropping them is the first undo.
		e.restore(s, e.history.Current())
		return true
	}
	prev, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.restore(s, prev)
	return true
}

// Redo reapplies the next committed state. At the newest state it does
// nothing.
func (e *Editor) Redo(s *Session) bool {
	if !e.history.CanRedo() {
		return false
	}
	if e.Pending() {
		// A redo would silently drop live edits; keep them instead.
		return false
	}
	next, _ := e.history.Redo()
	e.restore(s, next)
	return true
}

func (e *Editor) restore(s *Session, scene *document.Scene) {
	e.scene = scene
	e.dropLive()
	e.revision++
	if s != nil {
		e.endGesture(s)
		if !e.scene.Has(s.Selected) {
			s.Selected = ""
		}
	}
}

// Load replaces the working scene and starts a fresh history.
func (e *Editor) Load(s *Session, scene *document.Scene) {
	e.scene = scene.Clone()
	e.history.Reset(e.scene)
	e.dropLive()
	e.revision++
	if s != nil {
		e.endGesture(s)
		s.Selected = ""
	}
}
