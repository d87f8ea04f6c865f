package ws

import "encoding/json"

// Wire event names. Client->server: user_online, join_room, send_message,
// ping. Server->client: the rest.
const (
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventMessageError   = "message_error"
	EventPing           = "ping"
	EventPong           = "pong"
)

// Envelope is the JSON frame exchanged over the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type userPayload struct {
	UserID string `json:"userId"`
}

type joinPayload struct {
	ConversationID string `json:"conversationId"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func marshalEvent(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
