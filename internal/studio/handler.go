package studio

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/printdeck/studio/backend-go/internal/asset"
	"github.com/printdeck/studio/backend-go/internal/auth"
	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/engine"
	"github.com/printdeck/studio/backend-go/internal/export"
	"github.com/printdeck/studio/backend-go/internal/geom"
	"github.com/printdeck/studio/backend-go/internal/render"
	"github.com/printdeck/studio/backend-go/internal/template"
)

// SessionHeader lets REST clients keep their own selection within a
// workspace. Without it, requests share the caller's subject session.
const SessionHeader = "X-Session-ID"

const maxBodySize = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the workspace API on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/workspaces", h.List).Methods("GET")
	r.HandleFunc("/workspaces", h.Create).Methods("POST")
	r.HandleFunc("/workspaces/{id}", h.Get).Methods("GET")
	r.HandleFunc("/workspaces/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/workspaces/{id}/elements", h.AddElement).Methods("POST")
	r.HandleFunc("/workspaces/{id}/elements/{elementId}", h.UpdateElement).Methods("PATCH")
	r.HandleFunc("/workspaces/{id}/elements/{elementId}", h.DeleteElement).Methods("DELETE")
	r.HandleFunc("/workspaces/{id}/elements/{elementId}/{action}", h.ElementAction).Methods("POST")
	r.HandleFunc("/workspaces/{id}/select", h.Select).Methods("POST")
	r.HandleFunc("/workspaces/{id}/images", h.AddImage).Methods("POST")
	r.HandleFunc("/workspaces/{id}/undo", h.Undo).Methods("POST")
	r.HandleFunc("/workspaces/{id}/redo", h.Redo).Methods("POST")
	r.HandleFunc("/workspaces/{id}/commit", h.Commit).Methods("POST")
	r.HandleFunc("/workspaces/{id}/canvas", h.SetCanvas).Methods("PUT")
	r.HandleFunc("/workspaces/{id}/preview.png", h.Preview).Methods("GET")
	r.HandleFunc("/workspaces/{id}/export", h.Export).Methods("POST")
	r.HandleFunc("/workspaces/{id}/templates", h.SaveTemplate).Methods("POST")
	r.HandleFunc("/workspaces/{id}/proof.pdf", h.Proof).Methods("GET")
	r.HandleFunc("/templates", h.ListTemplates).Methods("GET")
}

func sessionKey(r *http.Request) string {
	if key := r.Header.Get(SessionHeader); key != "" {
		return key
	}
	subject := auth.SubjectFromContext(r.Context())
	if subject == "" || auth.IsAnonymous(subject) {
		return "http"
	}
	return subject
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	ws, err := h.service.Get(mux.Vars(r)["id"], auth.SubjectFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return ws, true
}

// do runs fn on the workspace from the path and answers with the resulting
// state.
func (h *Handler) do(w http.ResponseWriter, r *http.Request, status int, fn func(*engine.Editor, *engine.Session) error) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	st, err := ws.Do(sessionKey(r), fn)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, status, st)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	ws, err := h.service.Create(r.Context(), auth.SubjectFromContext(r.Context()), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws.State(sessionKey(r)))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List(auth.SubjectFromContext(r.Context())))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.State(sessionKey(r)))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(mux.Vars(r)["id"], auth.SubjectFromContext(r.Context())); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addElementRequest struct {
	Kind     document.Kind  `json:"kind"`
	Defaults document.Patch `json:"defaults"`
}

func (h *Handler) AddElement(w http.ResponseWriter, r *http.Request) {
	var req addElementRequest
	if !decode(w, r, &req) {
		return
	}
	h.do(w, r, http.StatusCreated, func(ed *engine.Editor, s *engine.Session) error {
		_, err := ed.AddElement(s, req.Kind, req.Defaults)
		return err
	})
}

type updateElementRequest struct {
	Patch document.Patch `json:"patch"`
	// Commit defaults to true; false previews the edit until the next commit.
	Commit *bool `json:"commit,omitempty"`
}

func (h *Handler) UpdateElement(w http.ResponseWriter, r *http.Request) {
	var req updateElementRequest
	if !decode(w, r, &req) {
		return
	}
	id := mux.Vars(r)["elementId"]
	h.do(w, r, http.StatusOK, func(ed *engine.Editor, _ *engine.Session) error {
		if _, ok := ed.Element(id); !ok {
			return ErrElementNotFound
		}
		if req.Commit != nil && !*req.Commit {
			_, err := ed.PreviewProperties(id, req.Patch)
			return err
		}
		_, err := ed.UpdateProperties(id, req.Patch)
		return err
	})
}

func (h *Handler) DeleteElement(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["elementId"]
	// Deleting twice is fine; the second call changes nothing.
	h.do(w, r, http.StatusOK, func(ed *engine.Editor, s *engine.Session) error {
		ed.Delete(s, id)
		return nil
	})
}

type nudgeRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// ElementAction handles duplicate, rotate, flip, front, back and nudge.
func (h *Handler) ElementAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, action := vars["elementId"], vars["action"]

	var nudge nudgeRequest
	if action == "nudge" && !decode(w, r, &nudge) {
		return
	}

	h.do(w, r, http.StatusOK, func(ed *engine.Editor, s *engine.Session) error {
		if _, ok := ed.Element(id); !ok {
			return ErrElementNotFound
		}
		switch action {
		case "duplicate":
			_, _, err := ed.Duplicate(s, id)
			return err
		case "rotate":
			ed.Rotate90(id)
		case "flip":
			q := r.URL.Query().Get("axis")
			axis, err := engine.ParseAxis(lo.Ternary(q == "", "horizontal", q))
			if err != nil {
				return err
			}
			ed.Flip(id, axis)
		case "front":
			ed.BringToFront(id)
		case "back":
			ed.SendToBack(id)
		case "nudge":
			ed.Nudge(id, geom.Point{X: nudge.DX, Y: nudge.DY})
		default:
			return errUnknownAction
		}
		return nil
	})
}

var errUnknownAction = errors.New("unknown element action")

type selectRequest struct {
	ElementID string  `json:"elementId"`
	Tool      string  `json:"tool,omitempty"`
	Zoom      float64 `json:"zoom,omitempty"`
}

// Select updates the session's selection, tool and zoom.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	h.do(w, r, http.StatusOK, func(ed *engine.Editor, s *engine.Session) error {
		if req.ElementID != "" {
			if _, ok := ed.Element(req.ElementID); !ok {
				return ErrElementNotFound
			}
		}
		s.Selected = req.ElementID
		switch engine.Tool(req.Tool) {
		case engine.ToolSelect, engine.ToolText, engine.ToolShape:
			s.Tool = engine.Tool(req.Tool)
		case "":
		default:
			return &document.ValidationError{Field: "tool", Reason: "unknown tool " + req.Tool}
		}
		if req.Zoom != 0 {
			s.SetZoom(req.Zoom)
		}
		return nil
	})
}

func (h *Handler) AddImage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	data, name, err := asset.ReadUpload(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	st, err := ws.Do(sessionKey(r), func(ed *engine.Editor, s *engine.Session) error {
		_, err := ed.AddImage(r.Context(), s, data)
		return err
	})
	if err != nil {
		slog.Info("image rejected", "workspace", ws.ID, "file", name, "error", err)
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, http.StatusOK, func(ed *engine.Editor, s *engine.Session) error {
		ed.Undo(s)
		return nil
	})
}

func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, http.StatusOK, func(ed *engine.Editor, s *engine.Session) error {
		ed.Redo(s)
		return nil
	})
}

func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	h.do(w, r, http.StatusOK, func(ed *engine.Editor, _ *engine.Session) error {
		ed.CommitPending()
		return nil
	})
}

type canvasRequest struct {
	Preset     string  `json:"preset,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	Background *string `json:"background,omitempty"`
}

func (h *Handler) SetCanvas(w http.ResponseWriter, r *http.Request) {
	var req canvasRequest
	if !decode(w, r, &req) {
		return
	}
	h.do(w, r, http.StatusOK, func(ed *engine.Editor, _ *engine.Session) error {
		switch {
		case req.Preset != "":
			if _, err := ed.SetCanvasPreset(req.Preset); err != nil {
				return err
			}
		case req.Width != 0 || req.Height != 0:
			if _, err := ed.SetCanvasSize(document.Size{Width: req.Width, Height: req.Height}); err != nil {
				return err
			}
		}
		if req.Background != nil {
			if _, err := ed.SetBackground(*req.Background); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	scale := 1.0
	if v := r.URL.Query().Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scale"})
			return
		}
		scale = f
	}

	img, err := h.service.Preview(ws, scale)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	data, err := export.EncodePNG(img)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var opts export.Options
	if !decode(w, r, &opts) {
		return
	}

	res, err := h.service.Export(r.Context(), ws, opts)
	if err != nil {
		export.WriteError(w, err)
		return
	}
	if err := (export.ResponseSaver{W: w}).Save(r.Context(), res.FileName, res.Data, res.MIME); err != nil {
		slog.Error("write export", "workspace", ws.ID, "error", err)
	}
}

func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req template.Request
	if !decode(w, r, &req) {
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var tpl *template.Template
	_, err := ws.Do(sessionKey(r), func(ed *engine.Editor, _ *engine.Session) error {
		var err error
		tpl, err = ed.Save(r.Context(), req)
		return err
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *Handler) Proof(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var pdf []byte
	_, err := ws.Do(sessionKey(r), func(ed *engine.Editor, _ *engine.Session) error {
		var err error
		pdf, err = ed.Proof(q.Get("name"), q.Get("category"), auth.SubjectFromContext(r.Context()))
		return err
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if err := (export.ResponseSaver{W: w}).Save(r.Context(), "proof.pdf", pdf, "application/pdf"); err != nil {
		slog.Error("write proof", "workspace", ws.ID, "error", err)
	}
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Templates(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrElementNotFound), errors.Is(err, template.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, errUnknownAction):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case document.IsValidation(err), errors.Is(err, render.ErrInvalidScale):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case asset.IsDecode(err):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, render.ErrCanvasTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNoTemplates), errors.Is(err, engine.ErrNoSink):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "request cancelled"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
