package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"exchange-chat/logger"
	"exchange-chat/services"
)

const (
	readDeadline  = 300 * time.Second
	writeDeadline = 30 * time.Second
	pingInterval  = 240 * time.Second
	maxFrameSize  = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced by the HTTP layer
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one live WebSocket connection bound to an authenticated user.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	authUserID string
	rooms      map[string]bool // guarded by hub.mu

	sendMu sync.Mutex
	closed bool

	msgSvc *services.MessageService
}

// ServeWS upgrades the request and starts the connection's pumps. userID
// comes from the verified token, not from the client payloads.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string, msgSvc *services.MessageService) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("websocket upgrade failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, 256),
		id:         uuid.New().String(),
		authUserID: userID,
		rooms:      make(map[string]bool),
		msgSvc:     msgSvc,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// trySend queues data for delivery, dropping it if the connection is closed
// or its buffer is full. Slow consumers lose events rather than block the
// hub.
func (c *Client) trySend(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Log.Debug("dropped event for slow client",
			zap.String("conn_id", c.id),
			zap.String("user_id", c.authUserID))
	}
}

func (c *Client) markClosed() {
	c.sendMu.Lock()
	c.closed = true
	c.sendMu.Unlock()
}

func (c *Client) sendEvent(event string, payload any) {
	data, err := marshalEvent(event, payload)
	if err != nil {
		logger.Log.Error("marshaling event", zap.Error(err))
		return
	}
	c.trySend(data)
}

func (c *Client) sendError(msg string) {
	c.sendEvent(EventMessageError, errorPayload{Error: msg})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Debug("client read error",
				zap.String("conn_id", c.id), zap.Error(err))
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Log.Debug("client sent invalid frame",
				zap.String("conn_id", c.id), zap.Error(err))
			continue
		}

		c.handleEvent(env)
	}
}

func (c *Client) handleEvent(env Envelope) {
	switch env.Event {
	case EventPing:
		c.sendEvent(EventPong, nil)

	case EventPong:
		// connection is healthy

	case EventUserOnline:
		var p userPayload
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &p); err != nil {
				return
			}
		}
		if p.UserID != "" && p.UserID != c.authUserID {
			logger.Log.Warn("user_online for foreign user ignored",
				zap.String("conn_id", c.id),
				zap.String("claimed", p.UserID))
			return
		}
		c.hub.SetOnline(c, c.authUserID)

	case EventJoinRoom:
		var p joinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == "" {
			return
		}
		c.hub.JoinRoom(c, p.ConversationID)

	case EventSendMessage:
		var in services.SendInput
		if err := json.Unmarshal(env.Data, &in); err != nil {
			c.sendError("invalid send_message payload")
			return
		}
		if in.SenderID != "" && in.SenderID != c.authUserID {
			c.sendError("sender does not match authenticated user")
			return
		}
		in.SenderID = c.authUserID

		view, err := c.msgSvc.Send(context.Background(), in)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		// direct ack; the sender's connection may not have joined the room
		c.sendEvent(EventMessageSent, view)

	default:
		logger.Log.Debug("unknown event",
			zap.String("conn_id", c.id),
			zap.String("event", env.Event))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Log.Debug("client write error",
					zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
