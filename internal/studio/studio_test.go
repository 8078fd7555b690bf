package studio

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printdeck/studio/backend-go/internal/auth"
	"github.com/printdeck/studio/backend-go/internal/engine"
	"github.com/printdeck/studio/backend-go/internal/template"
)

type fixture struct {
	t       *testing.T
	router  *mux.Router
	service *Service
	auth    *auth.Service
	store   *template.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := template.NewMemoryStore()
	svc := NewService(Config{
		Templates:  store,
		EditorOpts: []engine.Option{engine.WithSink(store), engine.WithThumbnailSize(120, 120)},
	})
	authSvc := auth.NewService("test-secret", false)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authSvc.AuthMiddleware)
	NewHandler(svc).Routes(api)

	return &fixture{t: t, router: r, service: svc, auth: authSvc, store: store}
}

func (f *fixture) token(subject string) string {
	tok, err := f.auth.IssueToken(subject, time.Hour)
	require.NoError(f.t, err)
	return tok
}

func (f *fixture) call(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) State {
	t.Helper()
	var st State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st), rec.Body.String())
	return st
}

func (f *fixture) create(token string, body any) State {
	f.t.Helper()
	rec := f.call("POST", "/api/workspaces", token, body)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeState(f.t, rec)
}

func TestWorkspaceLifecycle(t *testing.T) {
	f := newFixture(t)
	tok := f.token("designer")

	st := f.create(tok, CreateRequest{Preset: "business-card"})
	assert.Equal(t, 1050.0, st.Scene.Canvas().Width)
	assert.Equal(t, 1, st.History)
	base := "/api/workspaces/" + st.ID

	rec := f.call("POST", base+"/elements", tok, map[string]any{
		"kind":     "shape",
		"defaults": map[string]any{"x": 10, "y": 20, "shape": map[string]any{"shapeVariant": "star"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st = decodeState(t, rec)
	require.NotEmpty(t, st.Selected)
	assert.Equal(t, 2, st.History)
	id := st.Selected

	rec = f.call("PATCH", base+"/elements/"+id, tok, map[string]any{"patch": map[string]any{"x": 300}, "commit": false})
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeState(t, rec)
	assert.True(t, st.Pending)
	assert.Equal(t, 2, st.History)

	rec = f.call("POST", base+"/commit", tok, nil)
	st = decodeState(t, rec)
	assert.False(t, st.Pending)
	assert.Equal(t, 3, st.History)

	rec = f.call("POST", base+"/elements/"+id+"/duplicate", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeState(t, rec)
	assert.Equal(t, 2, st.Scene.Len())
	assert.NotEqual(t, id, st.Selected)

	rec = f.call("POST", base+"/elements/"+id+"/flip?axis=vertical", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	el, _ := decodeState(t, rec).Scene.Get(id)
	assert.True(t, el.FlipY)

	rec = f.call("POST", base+"/elements/"+id+"/nudge", tok, map[string]any{"dx": -1000, "dy": 1})
	el, _ = decodeState(t, rec).Scene.Get(id)
	assert.Equal(t, 0.0, el.X)
	assert.Equal(t, 21.0, el.Y)

	rec = f.call("DELETE", base+"/elements/"+id, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeState(t, rec)
	rec = f.call("DELETE", base+"/elements/"+id, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeState(t, rec)
	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.Revision, second.Revision)

	rec = f.call("POST", base+"/undo", tok, nil)
	st = decodeState(t, rec)
	assert.True(t, st.Scene.Has(id))
	assert.True(t, st.CanRedo)

	rec = f.call("POST", base+"/elements/"+id+"/explode", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.call("POST", base+"/elements/el_missing/rotate", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	list := f.call("GET", "/api/workspaces", tok, nil)
	var summaries []Summary
	require.NoError(t, json.NewDecoder(list.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].Elements)

	rec = f.call("DELETE", base, tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.call("GET", base, tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t)
	tok := f.token("designer")

	rec := f.call("POST", "/api/workspaces", tok, CreateRequest{Preset: "napkin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	st := f.create(tok, nil)
	base := "/api/workspaces/" + st.ID

	rec = f.call("POST", base+"/elements", tok, map[string]any{"kind": "video"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call("POST", base+"/elements", tok, map[string]any{"kind": "text"})
	id := decodeState(t, rec).Selected

	rec = f.call("PATCH", base+"/elements/"+id, tok, map[string]any{"patch": map[string]any{"width": 0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call("PUT", base+"/canvas", tok, map[string]any{"width": -1, "height": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call("GET", base, tok, nil)
	assert.Equal(t, 2, decodeState(t, rec).History)
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	st := f.create(f.token("alice"), nil)

	rec := f.call("GET", "/api/workspaces/"+st.ID, f.token("bob"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Anonymous workspaces are shared by id.
	anon := f.create("", nil)
	rec = f.call("GET", "/api/workspaces/"+anon.ID, f.token("bob"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCanvasUpdate(t *testing.T) {
	f := newFixture(t)
	st := f.create("", nil)

	rec := f.call("PUT", "/api/workspaces/"+st.ID+"/canvas", "", map[string]any{"preset": "banner", "background": "#102030"})
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeState(t, rec)
	assert.Equal(t, 1920.0, st.Scene.Canvas().Width)
	assert.Equal(t, "#102030", st.Scene.Background())
	assert.Equal(t, 3, st.History)
}

func TestImageUpload(t *testing.T) {
	f := newFixture(t)
	st := f.create("", nil)
	path := "/api/workspaces/" + st.ID + "/images"

	upload := func(data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "pic.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", path, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload([]byte("GIF89a but not really"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1, decodeState(t, f.call("GET", "/api/workspaces/"+st.ID, "", nil)).History)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, solid(12, 7)))
	rec = upload(img.Bytes())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st = decodeState(t, rec)
	el, ok := st.Scene.Get(st.Selected)
	require.True(t, ok)
	assert.Equal(t, 12.0, el.Width)
	assert.Equal(t, 7.0, el.Height)
	assert.Equal(t, 2, st.History)
}

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

func TestPreviewAndExport(t *testing.T) {
	f := newFixture(t)
	st := f.create("", CreateRequest{Preset: "square"})
	base := "/api/workspaces/" + st.ID

	rec := f.call("GET", base+"/preview.png?scale=0.25", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg, err := png.DecodeConfig(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 270, cfg.Width)

	rec = f.call("GET", base+"/preview.png?scale=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call("POST", base+"/export", "", map[string]any{"format": "jpeg", "quality": 0.5, "name": "My Card"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="My-Card.jpg"`)

	rec = f.call("POST", base+"/export", "", map[string]any{"format": "png", "quality": 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call("POST", base+"/export", "", map[string]any{"format": "pdf"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = f.call("GET", base+"/proof.pdf?name=Card", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	rec = f.call("GET", base, "", nil)
	assert.Equal(t, 1, decodeState(t, rec).History, "exports never touch history")
}

func TestTemplateRoundTrip(t *testing.T) {
	f := newFixture(t)
	tok := f.token("designer")
	st := f.create(tok, nil)
	base := "/api/workspaces/" + st.ID
	f.call("POST", base+"/elements", tok, map[string]any{"kind": "text"})

	rec := f.call("POST", base+"/templates", tok, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.call("POST", base+"/templates", tok, map[string]any{
		"name": "Card", "category": "cards", "metadata": map[string]any{"rating": 4},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tpl template.Template
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tpl))
	assert.NotEmpty(t, tpl.Thumbnail)

	rec = f.call("GET", "/api/templates", tok, nil)
	var list []template.Template
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)

	reopened := f.create(tok, CreateRequest{TemplateID: tpl.ID})
	assert.Equal(t, 1, reopened.Scene.Len())
	assert.Equal(t, 1, reopened.History)

	rec = f.call("POST", "/api/workspaces", tok, CreateRequest{TemplateID: "tpl_missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscribersHearChanges(t *testing.T) {
	f := newFixture(t)
	var (
		mu      sync.Mutex
		changes []Change
	)
	f.service.Subscribe(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	st := f.create("", nil)
	base := "/api/workspaces/" + st.ID
	f.call("GET", base, "", nil)
	f.call("POST", base+"/elements", "", map[string]any{"kind": "shape"})
	f.call("POST", base+"/redo", "", nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 1)
	assert.Equal(t, st.ID, changes[0].WorkspaceID)
	assert.Equal(t, 1, changes[0].Scene.Len())
	assert.NotEmpty(t, changes[0].Selected)
}

func TestSweepDropsIdleWorkspaces(t *testing.T) {
	f := newFixture(t)
	st := f.create("", nil)

	assert.Equal(t, 0, f.service.Sweep())
	f.service.now = func() time.Time { return time.Now().Add(DefaultIdleTimeout + time.Minute) }

	ws, err := f.service.Get(st.ID, "")
	require.NoError(t, err)
	// An attached session keeps it alive.
	ws.State("live")
	assert.Equal(t, 0, f.service.Sweep())

	ws.Release("live")
	ws.Release("http")
	assert.Equal(t, 1, f.service.Sweep())
	_, err = f.service.Get(st.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
