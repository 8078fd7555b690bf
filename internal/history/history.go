// Package history records committed scene snapshots for undo and redo.
package history

import "github.com/printdeck/studio/backend-go/internal/document"

// History is a list of scene snapshots with a cursor at the current state.
// Snapshots are private copies; nothing outside History ever holds a pointer
// into the list.
type History struct {
	snapshots []*document.Scene
	cursor    int
	limit     int
}

// New starts a history whose only entry is a copy of initial. A limit <= 0
// keeps every snapshot; otherwise the oldest are dropped once more than limit
// entries exist.
func New(initial *document.Scene, limit int) *History {
	return &History{
		snapshots: []*document.Scene{initial.Clone()},
		limit:     limit,
	}
}

// Commit records a copy of s as the newest state. Any redo branch past the
// cursor is discarded first.
func (h *History) Commit(s *document.Scene) {
	clear(h.snapshots[h.cursor+1:])
	h.snapshots = append(h.snapshots[:h.cursor+1], s.Clone())
	h.cursor = len(h.snapshots) - 1

	if h.limit > 0 && len(h.snapshots) > h.limit {
		drop := len(h.snapshots) - h.limit
		clear(h.snapshots[:drop])
		h.snapshots = h.snapshots[drop:]
		h.cursor -= drop
	}
}

// Undo steps back one state and returns a copy of it. At the oldest state it
// returns false.
func (h *History) Undo() (*document.Scene, bool) {
	if h.cursor == 0 {
		return nil, false
	}
	h.cursor--
	return h.snapshots[h.cursor].Clone(), true
}

// Redo steps forward one state and returns a copy of it. At the newest state
// it returns false.
func (h *History) Redo() (*document.Scene, bool) {
	if h.cursor >= len(h.snapshots)-1 {
		return nil, false
	}
	h.cursor++
	return h.snapshots[h.cursor].Clone(), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.snapshots)-1 }

// Current returns a copy of the state the cursor points at.
func (h *History) Current() *document.Scene {
	return h.snapshots[h.cursor].Clone()
}

// Len returns the number of stored snapshots, the initial state included.
func (h *History) Len() int { return len(h.snapshots) }

// Cursor returns the index of the current snapshot.
func (h *History) Cursor() int { return h.cursor }

// Reset discards every snapshot and starts over from s.
func (h *History) Reset(s *document.Scene) {
	clear(h.snapshots)
	h.snapshots = []*document.Scene{s.Clone()}
	h.cursor = 0
}
