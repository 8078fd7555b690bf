package live

import (
	"log/slog"
	"maps"
	"sync"
)

// PresenceManager tracks what each connected session has selected.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

// Update stores p and reports whether it differs from what was there.
func (pm *PresenceManager) Update(clientID string, p *PresencePayload) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if old, ok := pm.presences[clientID]; ok && *old == *p {
		return false
	}
	pm.presences[clientID] = p
	return true
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return maps.Clone(pm.presences)
}

func (pm *PresenceManager) StateMessage() *Message {
	msg, err := newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return msg
}
