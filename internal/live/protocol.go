package live

import (
	"encoding/json"

	"github.com/printdeck/studio/backend-go/internal/document"
	"github.com/printdeck/studio/backend-go/internal/studio"
)

type Message struct {
	Type        string          `json:"type"`
	WorkspaceID string          `json:"workspaceId,omitempty"`
	ClientID    string          `json:"clientId,omitempty"`
	Subject     string          `json:"subject,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client -> server
	TypePointerDown   = "pointer.down"
	TypePointerMove   = "pointer.move"
	TypePointerUp     = "pointer.up"
	TypePointerCancel = "pointer.cancel"
	TypeZoomSet       = "zoom.set"
	TypeToolSet       = "tool.set"

	// Server -> client
	TypeWelcome      = "welcome"
	TypeSessionState = "session.state"
	TypeSceneChanged = "scene.changed"
	TypeError        = "error"

	// Presence of other sessions on the same workspace
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceUpdate = "presence.update"
	TypePresenceLeave  = "presence.leave"
)

// PointerPayload is a pointer position in screen pixels.
type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewportPayload sets the zoom and where the canvas's top-left corner sits
// on screen.
type ViewportPayload struct {
	Zoom    float64 `json:"zoom"`
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
}

type ToolPayload struct {
	Tool string `json:"tool"`
}

type WelcomePayload struct {
	ClientID string       `json:"clientId"`
	State    studio.State `json:"state"`
}

// SceneChangedPayload goes to every client on the workspace, the one that
// caused the change included.
type SceneChangedPayload struct {
	Revision uint64          `json:"revision"`
	Origin   string          `json:"origin"`
	Selected string          `json:"selected,omitempty"`
	Scene    *document.Scene `json:"scene"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresencePayload struct {
	ClientID string `json:"clientId"`
	Subject  string `json:"subject,omitempty"`
	Selected string `json:"selected,omitempty"`
	Gesture  string `json:"gesture,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
