package template

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printdeck/studio/backend-go/internal/document"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))

func TestBuildValidates(t *testing.T) {
	scene := document.NewSampleScene()

	tests := map[string]Request{
		"empty name":         {Name: "   "},
		"negative downloads": {Name: "ok", Metadata: Metadata{Downloads: -1}},
		"rating too high":    {Name: "ok", Metadata: Metadata{Rating: 5.5}},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Build(scene, req, nil, fixedNow)
			assert.True(t, document.IsValidation(err))
		})
	}
}

func TestBuildCopiesScene(t *testing.T) {
	scene := document.NewSampleScene()
	tpl, err := Build(scene, Request{
		Name:     " Business card ",
		Category: "cards",
		Metadata: Metadata{Rating: 4.5, Author: "studio", Tags: []string{"minimal"}},
	}, []byte{1, 2, 3}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "Business card", tpl.Name)
	assert.Equal(t, time.UTC, tpl.CreatedAt.Location())
	assert.Equal(t, fixedNow.Unix(), tpl.CreatedAt.Unix())
	assert.Len(t, tpl.Elements, scene.Len())

	id := tpl.Elements[0].ID()
	_, err = scene.Update(id, document.Patch{X: lo.ToPtr(999.0)})
	require.NoError(t, err)
	assert.NotEqual(t, 999.0, tpl.Elements[0].X)

	back, err := tpl.Scene()
	require.NoError(t, err)
	assert.Equal(t, scene.Canvas(), back.Canvas())
	assert.Equal(t, scene.Background(), back.Background())
}

func TestTemplateJSON(t *testing.T) {
	tpl, err := Build(document.NewSampleScene(), Request{Name: "card"}, []byte("png"), fixedNow)
	require.NoError(t, err)

	data, err := json.Marshal(tpl)
	require.NoError(t, err)

	var back Template
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tpl.ID, back.ID)
	assert.Equal(t, tpl.Thumbnail, back.Thumbnail)
	assert.Equal(t, tpl.Elements, back.Elements)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a, err := Build(document.NewSampleScene(), Request{Name: "a"}, nil, fixedNow)
	require.NoError(t, err)
	b, err := Build(document.NewSampleScene(), Request{Name: "b"}, nil, fixedNow)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))
	a.Name = "a2"
	require.NoError(t, store.Save(ctx, a))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "b"}, lo.Map(list, func(t Template, _ int) string { return t.Name }))

	_, err = store.Get(ctx, "tpl_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSinkFunc(t *testing.T) {
	var got *Template
	sink := SinkFunc(func(_ context.Context, t *Template) error {
		got = t
		return nil
	})
	tpl, err := Build(document.NewSampleScene(), Request{Name: "x"}, nil, fixedNow)
	require.NoError(t, err)
	require.NoError(t, sink.Save(context.Background(), tpl))
	assert.Same(t, tpl, got)
}

func TestPgStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	store := NewPgStore(pool)
	require.NoError(t, store.Migrate(ctx))

	tpl, err := Build(document.NewSampleScene(), Request{
		Name:     "pg",
		Metadata: Metadata{Downloads: 3, Tags: []string{"a"}},
	}, []byte{0x89, 'P', 'N', 'G'}, fixedNow)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, tpl))

	got, err := store.Get(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Elements, got.Elements)
	assert.Equal(t, tpl.Metadata, got.Metadata)
	assert.True(t, tpl.CreatedAt.Equal(got.CreatedAt))

	_, err = pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, tpl.ID)
	require.NoError(t, err)
}
