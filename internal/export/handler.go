package export

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/render"
)

const maxSceneSize = 10 << 20 // 10MB

// Rehydrator attaches stored pixels to image elements of a decoded scene.
type Rehydrator interface {
	Rehydrate(scene *document.Scene) int
}

// Handler exports a scene posted in the request body, without any workspace
// state on the server.
type Handler struct {
	exporter *Exporter
	assets   Rehydrator
}

// NewHandler creates an export handler. assets may be nil, in which case
// image elements render as placeholders.
func NewHandler(exporter *Exporter, assets Rehydrator) *Handler {
	return &Handler{exporter: exporter, assets: assets}
}

type exportRequest struct {
	Scene   *document.Scene `json:"scene"`
	Options Options         `json:"options"`
}

// Export handles POST /export with {"scene": {...}, "options": {...}}.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSceneSize)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Scene == nil {
		http.Error(w, "missing scene", http.StatusBadRequest)
		return
	}
	if h.assets != nil {
		h.assets.Rehydrate(req.Scene)
	}

	slog.Info("export started", "format", req.Options.Format, "quality", req.Options.Quality)

	res, err := h.exporter.Export(r.Context(), req.Scene, req.Options)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := (ResponseSaver{W: w}).Save(r.Context(), res.FileName, res.Data, res.MIME); err != nil {
		slog.Error("write export", "error", err)
	}
}

// WriteError maps an export failure to an HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidOptions), errors.Is(err, render.ErrInvalidScale), document.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, render.ErrCanvasTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		slog.Error("export", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
