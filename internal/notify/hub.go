package notify

import (
	"encoding/json"
	"log"
	"sync"
)

// Envelope is the wire shape of every published event.
type Envelope struct {
	Event   string      `json:"event"`
	Room    string      `json:"room"`
	Payload interface{} `json:"payload"`
}

// Hub fans events out to websocket clients grouped by room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Join subscribes a client to a room.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

// Leave removes a client from every room it joined.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.rooms {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish sends the event to every client in the room. Clients whose send
// buffer is full are dropped rather than blocking the caller.
func (h *Hub) Publish(room, event string, payload interface{}) {
	message, err := json.Marshal(Envelope{Event: event, Room: room, Payload: payload})
	if err != nil {
		log.Println("[NOTIFY] [ERROR] marshal event failed:", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case <-c.done:
		case c.send <- message:
		default:
			go h.disconnect(c)
		}
	}
}

func (h *Hub) disconnect(c *Client) {
	h.Leave(c)
	c.Close()
}

func (h *Hub) inRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// relay forwards a chat frame from a client to a room it has joined. Frames
// naming a room the sender is not a member of are dropped.
func (h *Hub) relay(c *Client, raw []byte) {
	var frame struct {
		Room    string          `json:"room"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Room == "" {
		return
	}
	if !h.inRoom(frame.Room, c) {
		return
	}
	h.Publish(frame.Room, EventNewMessage, frame.Payload)
}

// RoomSize reports the subscriber count of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
