package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"trade-service/internal/observability"
)

// Event is the envelope every realtime payload travels in.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub maintains active websocket rooms. Rooms are named strings
// (chat:{id}, listing:{id}, notifications:{user}) so one map serves all
// three room families.
type Hub struct {
	rooms map[string]map[*websocket.Conn]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]ConnInfo)}
}

// AddClient registers a websocket connection to a room.
func (h *Hub) AddClient(room string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[room][conn] = info
}

// RemoveClient removes a connection from a room.
func (h *Hub) RemoveClient(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[room]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize reports the number of connections in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish fans an event out to every connection in the room. Delivery is
// best effort: write failures drop the connection but are never surfaced
// to the caller, since durable state lives in the store.
func (h *Hub) Publish(room string, event string, payload any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[room]))
	for conn := range h.rooms[room] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	body, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		log.Printf("ws publish marshal %s: %v", event, err)
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			log.Printf("websocket write error room=%s: %v", room, err)
			conn.Close()
			h.RemoveClient(room, conn)
			observability.IncWSEvent(roomKind(room), "ws_error")
		}
	}
	observability.IncWSEvent(roomKind(room), event)
}
