package live

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/printdeck/studio/backend-go/internal/auth"
	"github.com/printdeck/studio/backend-go/internal/engine"
	"github.com/printdeck/studio/backend-go/internal/geom"
	"github.com/printdeck/studio/backend-go/internal/studio"
)

type Room struct {
	workspaceID string
	clients     map[string]*Client // clientID -> client
	presence    *PresenceManager
}

func NewRoom(workspaceID string) *Room {
	return &Room{
		workspaceID: workspaceID,
		clients:     make(map[string]*Client),
		presence:    NewPresenceManager(),
	}
}

// Hub routes pointer events from websocket clients into their workspace
// editors and fans scene changes back out to every client on the workspace.
type Hub struct {
	service *studio.Service

	mu         sync.RWMutex
	rooms      map[string]*Room // workspaceID -> room
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewHub(service *studio.Service) *Hub {
	h := &Hub{
		service:    service,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
	service.Subscribe(h.onChange)
	return h
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		client.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// Stop disconnects every client. Gestures in progress are abandoned.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.WorkspaceID]
	if !ok {
		room = NewRoom(client.WorkspaceID)
		h.rooms[client.WorkspaceID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	st := client.workspace.State(client.ClientID)
	if msg, err := newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID, State: st}); err == nil {
		client.Send(msg)
	}

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	p := presenceOf(client, st)
	room.presence.Update(client.ClientID, p)
	if joinMsg, err := newMessage(TypePresenceJoin, p); err == nil {
		joinMsg.ClientID = client.ClientID
		h.broadcastToRoom(client.WorkspaceID, joinMsg, client.ClientID)
	}

	slog.Info("client joined", "subject", client.Subject, "workspace", client.WorkspaceID, "client", client.ClientID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.WorkspaceID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.done)
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.WorkspaceID)
	}
	h.mu.Unlock()

	client.workspace.Release(client.ClientID)

	if leaveMsg, err := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID}); err == nil {
		h.broadcastToRoom(client.WorkspaceID, leaveMsg, "")
	}

	slog.Info("client left", "subject", client.Subject, "workspace", client.WorkspaceID, "client", client.ClientID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	var clients []*Client
	for id, room := range h.rooms {
		for _, c := range room.clients {
			clients = append(clients, c)
			close(c.done)
		}
		delete(h.rooms, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.workspace.Release(c.ClientID)
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	slog.Info("live hub stopped", "clients", len(clients))
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	var (
		st  studio.State
		err error
	)
	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.sendError("invalid pointer payload")
			return
		}
		pt := geom.Point{X: p.X, Y: p.Y}
		st, err = sender.workspace.Do(sender.ClientID, func(ed *engine.Editor, s *engine.Session) error {
			switch msg.Type {
			case TypePointerDown:
				return ed.PointerDown(s, pt)
			case TypePointerMove:
				ed.PointerMove(s, pt)
			default:
				ed.PointerUp(s, pt)
			}
			return nil
		})
		if msg.Type == TypePointerMove {
			// Moves answer through scene.changed only.
			if err != nil {
				sender.sendError(err.Error())
			}
			return
		}

	case TypePointerCancel:
		st, err = sender.workspace.Do(sender.ClientID, func(ed *engine.Editor, s *engine.Session) error {
			ed.CancelGesture(s)
			return nil
		})

	case TypeZoomSet:
		var v ViewportPayload
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			sender.sendError("invalid viewport payload")
			return
		}
		st, err = sender.workspace.Do(sender.ClientID, func(_ *engine.Editor, s *engine.Session) error {
			s.SetZoom(v.Zoom)
			s.Origin = geom.Point{X: v.OriginX, Y: v.OriginY}
			return nil
		})

	case TypeToolSet:
		var t ToolPayload
		if err := json.Unmarshal(msg.Payload, &t); err != nil {
			sender.sendError("invalid tool payload")
			return
		}
		st, err = sender.workspace.Do(sender.ClientID, func(_ *engine.Editor, s *engine.Session) error {
			switch tool := engine.Tool(t.Tool); tool {
			case engine.ToolSelect, engine.ToolText, engine.ToolShape:
				s.Tool = tool
				return nil
			}
			return errors.New("unknown tool " + t.Tool)
		})

	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		sender.sendError("unknown message type " + msg.Type)
		return
	}

	if err != nil {
		sender.sendError(err.Error())
	}
	if out, mErr := newMessage(TypeSessionState, st); mErr == nil {
		sender.Send(out)
	}
	h.updatePresence(sender, st)
}

func presenceOf(c *Client, st studio.State) *PresencePayload {
	return &PresencePayload{
		ClientID: c.ClientID,
		Subject:  c.Subject,
		Selected: st.Selected,
		Gesture:  st.Gesture,
	}
}

func (h *Hub) updatePresence(c *Client, st studio.State) {
	h.mu.RLock()
	room, ok := h.rooms[c.WorkspaceID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	p := presenceOf(c, st)
	if !room.presence.Update(c.ClientID, p) {
		return
	}
	if msg, err := newMessage(TypePresenceUpdate, p); err == nil {
		msg.ClientID = c.ClientID
		h.broadcastToRoom(c.WorkspaceID, msg, c.ClientID)
	}
}

// onChange fans a scene change out to every client on the workspace.
func (h *Hub) onChange(c studio.Change) {
	msg, err := newMessage(TypeSceneChanged, SceneChangedPayload{
		Revision: c.Revision,
		Origin:   c.Origin,
		Selected: c.Selected,
		Scene:    c.Scene,
	})
	if err != nil {
		slog.Error("marshal scene change", "workspace", c.WorkspaceID, "error", err)
		return
	}
	msg.WorkspaceID = c.WorkspaceID
	h.broadcastToRoom(c.WorkspaceID, msg, "")
}

func (h *Hub) broadcastToRoom(workspaceID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[workspaceID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

// ServeWS upgrades GET /ws/workspaces/{id}. The route must sit behind the
// auth middleware; browsers pass their token as a query parameter.
func (h *Hub) ServeWS(originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := auth.SubjectFromContext(r.Context())
		ws, err := h.service.Get(mux.Vars(r)["id"], subject)
		switch {
		case errors.Is(err, studio.ErrNotFound):
			http.Error(w, "workspace not found", http.StatusNotFound)
			return
		case errors.Is(err, studio.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		case err != nil:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			slog.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(h, conn, ws, subject, uuid.NewString())
		h.Register(client)

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
