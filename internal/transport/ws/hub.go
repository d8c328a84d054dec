package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Message is the WebSocket envelope format, both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// client is one registered connection's outbound side.
type client struct {
	connID string
	send   chan []byte
	close  func()
}

// Hub tracks connections and per-room broadcast groups. It implements
// game.Broadcaster. A connection exists from upgrade to close; room
// membership is driven by the coordinator via Subscribe/Unsubscribe.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{} // roomID -> connIDs
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// Register adds a connection. closeFn force-closes the underlying
// socket and is used by DisconnectRoom.
func (h *Hub) Register(connID string, send chan []byte, closeFn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connID] = &client{connID: connID, send: send, close: closeFn}
}

// Unregister removes a connection and drops it from any room group.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	delete(h.clients, connID)
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Subscribe adds the connection to a room's broadcast group.
func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]struct{})
	}
	h.rooms[roomID][connID] = struct{}{}
}

// Unsubscribe removes the connection from a room's broadcast group.
func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// InRoom reports whether the connection is in the room's group.
func (h *Hub) InRoom(connID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][connID]
	return ok
}

// ToRoom sends an event to every connection in the room.
func (h *Hub) ToRoom(roomID, event string, payload interface{}) {
	data, err := encode(event, payload)
	if err != nil {
		log.Printf("encoding %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.rooms[roomID] {
		if c, ok := h.clients[connID]; ok {
			select {
			case c.send <- data:
			default:
				// Drop message if the client's buffer is full.
			}
		}
	}
}

// ToClient sends an event to a single connection.
func (h *Hub) ToClient(connID, event string, payload interface{}) {
	data, err := encode(event, payload)
	if err != nil {
		log.Printf("encoding %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		select {
		case c.send <- data:
		default:
		}
	}
}

// DisconnectRoom force-closes every connection in the room. Queued
// outbound messages are flushed by each connection's write pump before
// the close lands. Members are unregistered under the lock first: once
// a closer runs, its send channel is closed, and a late ToRoom/ToClient
// must find no entry to deliver to.
func (h *Hub) DisconnectRoom(roomID string) {
	h.mu.Lock()
	var closers []func()
	for connID := range h.rooms[roomID] {
		if c, ok := h.clients[connID]; ok {
			closers = append(closers, c.close)
			delete(h.clients, connID)
		}
	}
	delete(h.rooms, roomID)
	h.mu.Unlock()

	for _, closeFn := range closers {
		closeFn()
	}
}

func encode(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: event, Payload: data})
}
