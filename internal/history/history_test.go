package history

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printdeck/studio/backend-go/internal/document"
)

func sceneWithX(t *testing.T, xs ...float64) *document.Scene {
	t.Helper()
	s, err := document.NewScene(document.Size{Width: 500, Height: 500})
	require.NoError(t, err)
	for _, x := range xs {
		e, err := s.NewElement(document.KindShape, document.Patch{X: lo.ToPtr(x)})
		require.NoError(t, err)
		require.NoError(t, s.Add(e))
	}
	return s
}

func TestBoundaryNoOps(t *testing.T) {
	h := New(sceneWithX(t), 0)

	_, ok := h.Undo()
	assert.False(t, ok)
	_, ok = h.Redo()
	assert.False(t, ok)
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
	assert.Equal(t, 1, h.Len())
}

func TestCommitTruncatesRedoBranch(t *testing.T) {
	h := New(sceneWithX(t), 0)
	a, b, c := sceneWithX(t, 1), sceneWithX(t, 2), sceneWithX(t, 3)

	h.Commit(a)
	h.Commit(b)
	_, ok := h.Undo()
	require.True(t, ok)
	h.Commit(c)

	_, ok = h.Redo()
	assert.False(t, ok)
	assert.True(t, c.Equal(h.Current()))

	got, ok := h.Undo()
	require.True(t, ok)
	assert.True(t, a.Equal(got))
	assert.Equal(t, 3, h.Len())
}

func TestCommitReleasesTruncatedSnapshots(t *testing.T) {
	h := New(sceneWithX(t), 0)
	h.Commit(sceneWithX(t, 1))
	h.Commit(sceneWithX(t, 2))
	h.Commit(sceneWithX(t, 3))
	for range 3 {
		_, ok := h.Undo()
		require.True(t, ok)
	}
	h.Commit(sceneWithX(t, 4))

	require.Equal(t, 2, h.Len())
	tail := h.snapshots[len(h.snapshots):cap(h.snapshots)]
	for i, s := range tail {
		assert.Nil(t, s, "slot %d past the end still holds a snapshot", i)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	const n = 6
	h := New(sceneWithX(t), 0)
	var last *document.Scene
	for i := range n {
		last = sceneWithX(t, float64(i))
		h.Commit(last)
	}

	for range n {
		_, ok := h.Undo()
		require.True(t, ok)
	}
	assert.False(t, h.CanUndo())

	var got *document.Scene
	for range n {
		var ok bool
		got, ok = h.Redo()
		require.True(t, ok)
	}
	assert.True(t, last.Equal(got))
	assert.False(t, h.CanRedo())
}

func TestSnapshotsAreIsolatedFromWorkingScene(t *testing.T) {
	working := sceneWithX(t, 10)
	h := New(working, 0)

	id := working.Elements()[0].ID()
	_, err := working.Update(id, document.Patch{X: lo.ToPtr(99.0)})
	require.NoError(t, err)
	h.Commit(working)

	restored, ok := h.Undo()
	require.True(t, ok)
	e, _ := restored.Get(id)
	assert.Equal(t, 10.0, e.X)

	// mutating a returned copy must not leak back into history
	_, err = restored.Update(id, document.Patch{X: lo.ToPtr(-5.0)})
	require.NoError(t, err)
	e, _ = h.Current().Get(id)
	assert.Equal(t, 10.0, e.X)
}

func TestLimitDropsOldest(t *testing.T) {
	h := New(sceneWithX(t), 3)
	for i := range 5 {
		h.Commit(sceneWithX(t, float64(i)))
	}

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Cursor())

	h.Undo()
	got, ok := h.Undo()
	require.True(t, ok)
	assert.True(t, sceneWithXEqual(got, 2))
	assert.False(t, h.CanUndo())
}

func sceneWithXEqual(s *document.Scene, x float64) bool {
	els := s.Elements()
	return len(els) == 1 && els[0].X == x
}

func TestReset(t *testing.T) {
	h := New(sceneWithX(t), 0)
	h.Commit(sceneWithX(t, 1))
	h.Reset(sceneWithX(t, 7))

	assert.Equal(t, 1, h.Len())
	assert.False(t, h.CanUndo())
	assert.True(t, sceneWithXEqual(h.Current(), 7))
}
