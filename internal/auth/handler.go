package auth

import (
	"encoding/json"
	"net/http"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

type meResponse struct {
	Subject   string `json:"subject"`
	Anonymous bool   `json:"anonymous"`
}

// Me reports who the middleware resolved the caller to.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject := SubjectFromContext(r.Context())
	if subject == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Subject:   subject,
		Anonymous: IsAnonymous(subject),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
