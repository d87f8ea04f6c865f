package ws

import (
	"sync"

	"go.uber.org/zap"

	"exchange-chat/logger"
	"exchange-chat/models"
)

type outbound struct {
	roomID string
	data   []byte
}

// Hub tracks every live connection, the per-conversation rooms they joined,
// and user presence. Register/unregister/room-broadcast are serialized
// through the Run loop; room and presence maps are additionally
// mutex-guarded because joins arrive on connection goroutines.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client          // connID -> client
	rooms    map[string]map[*Client]bool // conversationID -> members
	presence *Presence

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]bool),
		presence:   NewPresence(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case out := <-h.broadcast:
			h.deliverToRoom(out)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c

	logger.Log.Debug("client connected",
		zap.String("conn_id", c.id),
		zap.String("user_id", c.authUserID),
		zap.Int("total_clients", len(h.clients)))
}

// removeClient discards the connection and all of its room memberships, then
// broadcasts user_offline exactly once if the connection still owned its
// user's presence entry.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)

	for roomID := range c.rooms {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	c.markClosed()
	close(c.send)

	userID, owned := h.presence.RemoveByConn(c.id)
	h.mu.Unlock()

	logger.Log.Debug("client disconnected",
		zap.String("conn_id", c.id),
		zap.String("user_id", c.authUserID))

	if owned {
		h.broadcastToOthers(c, EventUserOffline, userPayload{UserID: userID})
	}
}

// JoinRoom adds the connection to a conversation room. Idempotent.
func (h *Hub) JoinRoom(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[*Client]bool)
	}
	h.rooms[conversationID][c] = true
	c.rooms[conversationID] = true

	logger.Log.Debug("client joined room",
		zap.String("conn_id", c.id),
		zap.String("conversation_id", conversationID),
		zap.Int("room_size", len(h.rooms[conversationID])))
}

// SetOnline records presence for the connection and announces it to every
// other connection. A replaced stale connection is evicted silently.
func (h *Hub) SetOnline(c *Client, userID string) {
	if evicted := h.presence.SetOnline(userID, c.id); evicted != "" {
		logger.Log.Debug("evicted stale presence entry",
			zap.String("user_id", userID),
			zap.String("conn_id", evicted))
	}
	h.broadcastToOthers(c, EventUserOnline, userPayload{UserID: userID})
}

// BroadcastMessage fans a persisted message out to every connection in the
// conversation's room. Satisfies services.RoomBroadcaster.
func (h *Hub) BroadcastMessage(conversationID string, msg models.MessageView) {
	data, err := marshalEvent(EventReceiveMessage, msg)
	if err != nil {
		logger.Log.Error("marshaling broadcast", zap.Error(err))
		return
	}
	h.broadcast <- outbound{roomID: conversationID, data: data}
}

func (h *Hub) deliverToRoom(out outbound) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[out.roomID]))
	for c := range h.rooms[out.roomID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.trySend(out.data)
	}
}

func (h *Hub) broadcastToOthers(sender *Client, event string, payload any) {
	data, err := marshalEvent(event, payload)
	if err != nil {
		logger.Log.Error("marshaling broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		if c != sender {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(data)
	}
}

// RoomCount returns the number of connections in a conversation's room.
func (h *Hub) RoomCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// IsOnline reports whether the user has a live registered connection.
func (h *Hub) IsOnline(userID string) bool {
	return h.presence.IsOnline(userID)
}
