package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-chat/models"
)

func newTestClient(h *Hub, connID, userID string) *Client {
	return &Client{
		hub:        h,
		send:       make(chan []byte, 16),
		id:         connID,
		authUserID: userID,
		rooms:      make(map[string]bool),
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func receivedEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var events []Envelope
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return events
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(data, &env))
			events = append(events, env)
		default:
			return events
		}
	}
}

func TestHub_JoinRoomIdempotent(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "conn-1", "alice")
	h.addClient(c)

	h.JoinRoom(c, "req-1")
	h.JoinRoom(c, "req-1")

	assert.Equal(t, 1, h.RoomCount("req-1"))
}

func TestHub_RoomBroadcastDeliversOncePerMember(t *testing.T) {
	h := NewHub()
	member1 := newTestClient(h, "conn-1", "alice")
	member2 := newTestClient(h, "conn-2", "bob")
	outsider := newTestClient(h, "conn-3", "carol")
	for _, c := range []*Client{member1, member2, outsider} {
		h.addClient(c)
	}

	h.JoinRoom(member1, "req-1")
	h.JoinRoom(member1, "req-1") // repeat join must not duplicate delivery
	h.JoinRoom(member2, "req-1")

	msg := models.MessageView{Message: models.Message{ID: 1, ConversationID: "req-1", Content: "Hi"}}
	data, err := marshalEvent(EventReceiveMessage, msg)
	require.NoError(t, err)
	h.deliverToRoom(outbound{roomID: "req-1", data: data})

	for _, c := range []*Client{member1, member2} {
		events := receivedEvents(t, c)
		require.Len(t, events, 1)
		assert.Equal(t, EventReceiveMessage, events[0].Event)
	}
	assert.Empty(t, receivedEvents(t, outsider))
}

func TestHub_SetOnlineBroadcastsToOthers(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1", "alice")
	bob := newTestClient(h, "conn-2", "bob")
	h.addClient(alice)
	h.addClient(bob)

	h.SetOnline(alice, "alice")

	assert.Empty(t, receivedEvents(t, alice))
	events := receivedEvents(t, bob)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserOnline, events[0].Event)

	var p userPayload
	require.NoError(t, json.Unmarshal(events[0].Data, &p))
	assert.Equal(t, "alice", p.UserID)
}

func TestHub_DisconnectBroadcastsOfflineExactlyOnce(t *testing.T) {
	h := NewHub()
	alice := newTestClient(h, "conn-1", "alice")
	bob := newTestClient(h, "conn-2", "bob")
	h.addClient(alice)
	h.addClient(bob)

	h.SetOnline(alice, "alice")
	h.JoinRoom(alice, "req-1")
	drain(bob)

	h.removeClient(alice)
	events := receivedEvents(t, bob)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserOffline, events[0].Event)

	// repeated unregister is a no-op
	h.removeClient(alice)
	assert.Empty(t, receivedEvents(t, bob))

	// room membership discarded with the connection
	assert.Equal(t, 0, h.RoomCount("req-1"))
}

func TestHub_EvictedConnectionDisconnectsSilently(t *testing.T) {
	h := NewHub()
	stale := newTestClient(h, "conn-1", "alice")
	fresh := newTestClient(h, "conn-2", "alice")
	bob := newTestClient(h, "conn-3", "bob")
	h.addClient(stale)
	h.addClient(fresh)
	h.addClient(bob)

	h.SetOnline(stale, "alice")
	h.SetOnline(fresh, "alice")
	drain(bob)

	// the evicted stale socket closing must not flap alice offline
	h.removeClient(stale)
	assert.Empty(t, receivedEvents(t, bob))
	assert.True(t, h.IsOnline("alice"))

	h.removeClient(fresh)
	events := receivedEvents(t, bob)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserOffline, events[0].Event)
	assert.False(t, h.IsOnline("alice"))
}
