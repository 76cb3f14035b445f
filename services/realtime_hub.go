package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type WSClient struct {
	PersonID string
	Conn     Conn
}

type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{clients: make(map[string]map[*WSClient]struct{})}
}

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.PersonID] == nil {
		h.clients[c.PersonID] = make(map[*WSClient]struct{})
	}
	h.clients[c.PersonID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.PersonID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.PersonID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// Connected reports how many sockets a person has open.
func (h *RealtimeHub) Connected(personID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[personID])
}

func (h *RealtimeHub) BroadcastAlert(personID string, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		return
	}
	// a full lock serializes writers; gorilla connections allow one concurrent writer
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[personID] {
		_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
	}
}
