package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/util"
)

// Event is the envelope every websocket frame uses.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is a single websocket connection owned by one user. Writes are
// serialized through its own mutex because gorilla/websocket allows at
// most one concurrent writer.
type Client struct {
	UserID int64

	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(ev); err != nil {
		util.Logger.Warn("websocket write failed",
			zap.Int64("userID", c.UserID), zap.Error(err))
	}
}

// Hub tracks which users are online and which conversation rooms each
// connection has joined. One connection per user; a reconnect replaces
// the previous one.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*Client
	rooms   map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]*Client),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// Add registers a connection for userID, replacing any existing one,
// and broadcasts the updated presence list.
func (h *Hub) Add(userID int64, conn *websocket.Conn) *Client {
	c := &Client{UserID: userID, conn: conn}

	h.mu.Lock()
	if old, ok := h.clients[userID]; ok {
		h.detachLocked(old)
		old.conn.Close()
	}
	h.clients[userID] = c
	h.mu.Unlock()

	h.broadcastPresence()
	return c
}

// Remove drops a connection and its room memberships. A connection that
// was already replaced by a newer one for the same user is ignored.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.UserID]; !ok || cur != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.UserID)
	h.detachLocked(c)
	h.mu.Unlock()

	h.broadcastPresence()
}

func (h *Hub) detachLocked(c *Client) {
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Join subscribes a connection to a room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.UserID]; !ok || cur != c {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
}

// ToRoom sends an event to every connection subscribed to room.
func (h *Hub) ToRoom(room string, event string, payload interface{}) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	ev := Event{Type: event, Data: payload}
	for _, c := range targets {
		c.send(ev)
	}
}

// ToUser sends an event to userID if they are connected.
func (h *Hub) ToUser(userID int64, event string, payload interface{}) {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.send(Event{Type: event, Data: payload})
}

// ToUsers sends an event to each listed user that is connected.
func (h *Hub) ToUsers(userIDs []int64, event string, payload interface{}) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(userIDs))
	for _, id := range userIDs {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	ev := Event{Type: event, Data: payload}
	for _, c := range targets {
		c.send(ev)
	}
}

// OnlineIDs returns the IDs of every connected user.
func (h *Hub) OnlineIDs() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int64, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// IsUserOnline reports whether userID has a live connection.
func (h *Hub) IsUserOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func (h *Hub) broadcastPresence() {
	ids := h.OnlineIDs()

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	ev := Event{Type: "onlineUsersUpdate", Data: ids}
	for _, c := range targets {
		c.send(ev)
	}
}
