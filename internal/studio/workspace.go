package studio

import (
	"sync"
	"time"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/engine"
)

// State is what clients see of a workspace from one session's point of view.
type State struct {
	ID       string          `json:"id"`
	Revision uint64          `json:"revision"`
	Scene    *document.Scene `json:"scene"`
	Selected string          `json:"selected,omitempty"`
	Tool     engine.Tool     `json:"tool"`
	Zoom     float64         `json:"zoom"`
	Gesture  string          `json:"gesture"`
	CanUndo  bool            `json:"canUndo"`
	CanRedo  bool            `json:"canRedo"`
	Pending  bool            `json:"pending"`
	History  int             `json:"history"`
}

// Change is published after an operation bumps a workspace's revision.
type Change struct {
	WorkspaceID string
	Origin      string // session key that caused it
	Revision    uint64
	Selected    string
	Scene       *document.Scene
}

// Workspace is one editor plus the sessions driving it. All access goes
// through Do, which serializes callers.
type Workspace struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	mu       sync.Mutex
	editor   *engine.Editor
	sessions map[string]*engine.Session
	touched  time.Time
	notify   func(Change)
}

func newWorkspace(id, owner string, editor *engine.Editor, now time.Time, notify func(Change)) *Workspace {
	return &Workspace{
		ID:        id,
		Owner:     owner,
		CreatedAt: now,
		editor:    editor,
		sessions:  make(map[string]*engine.Session),
		touched:   now,
		notify:    notify,
	}
}

// Do runs fn with the editor and the session for key, creating the session
// on first use. Listeners hear about it if the scene changed.
func (w *Workspace) Do(key string, fn func(*engine.Editor, *engine.Session) error) (State, error) {
	w.mu.Lock()
	s := w.session(key)
	before := w.editor.Revision()
	err := fn(w.editor, s)
	st := w.state(s)
	w.touched = time.Now()
	w.mu.Unlock()

	if st.Revision != before && w.notify != nil {
		w.notify(Change{
			WorkspaceID: w.ID,
			Origin:      key,
			Revision:    st.Revision,
			Selected:    st.Selected,
			Scene:       st.Scene,
		})
	}
	return st, err
}

// State returns the workspace as seen by session key.
func (w *Workspace) State(key string) State {
	st, _ := w.Do(key, func(*engine.Editor, *engine.Session) error { return nil })
	return st
}

// Snapshot copies the working scene, live edits included.
func (w *Workspace) Snapshot() *document.Scene {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editor.Scene()
}

// Release drops a session, abandoning any gesture it had in progress.
func (w *Workspace) Release(key string) {
	_, _ = w.Do(key, func(ed *engine.Editor, s *engine.Session) error {
		ed.CancelGesture(s)
		return nil
	})
	w.mu.Lock()
	delete(w.sessions, key)
	w.mu.Unlock()
}

// Sessions returns the number of attached sessions.
func (w *Workspace) Sessions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touched
}

func (w *Workspace) session(key string) *engine.Session {
	s, ok := w.sessions[key]
	if !ok {
		s = engine.NewSession()
		w.sessions[key] = s
	}
	return s
}

func (w *Workspace) state(s *engine.Session) State {
	return State{
		ID:       w.ID,
		Revision: w.editor.Revision(),
		Scene:    w.editor.Scene(),
		Selected: s.Selected,
		Tool:     s.Tool,
		Zoom:     s.Zoom,
		Gesture:  s.Gesture().String(),
		CanUndo:  w.editor.CanUndo() || w.editor.Pending(),
		CanRedo:  w.editor.CanRedo(),
		Pending:  w.editor.Pending(),
		History:  w.editor.HistoryLen(),
	}
}
