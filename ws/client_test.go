package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-chat/config"
	"exchange-chat/models"
	"exchange-chat/repository"
	"exchange-chat/services"
)

func newClientFixture(t *testing.T) (*Hub, *services.MessageService) {
	t.Helper()
	ctx := context.Background()

	users := repository.NewInMemoryUserRepo()
	for _, u := range []*models.User{
		{ID: "alice", Name: "Alice Martin", Email: "alice@example.com"},
		{ID: "bob", Name: "Bob Marley", Email: "bob@example.com"},
	} {
		require.NoError(t, users.Create(ctx, u))
	}

	items := repository.NewInMemoryItemRepo()
	require.NoError(t, items.Create(ctx, &models.Item{ID: "item-1", Name: "Cordless Drill"}))

	requests := repository.NewInMemoryRequestRepo()
	require.NoError(t, requests.Create(ctx, &models.ItemRequest{
		ID: "req-1", ItemID: "item-1", RequesterID: "alice", ProviderID: "bob", Status: "accepted",
	}))

	hub := NewHub()
	cfg := &config.Config{MaxMessageLength: 1000, SearchPageSize: 10}
	svc := services.NewMessageService(repository.NewInMemoryMessageRepo(), users, requests, items, hub, cfg)
	return hub, svc
}

func clientEnvelope(t *testing.T, event string, payload any) Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return Envelope{Event: event, Data: data}
}

func TestClient_PingPong(t *testing.T) {
	hub, svc := newClientFixture(t)
	c := newTestClient(hub, "conn-1", "alice")
	c.msgSvc = svc
	hub.addClient(c)

	c.handleEvent(Envelope{Event: EventPing})

	events := receivedEvents(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, EventPong, events[0].Event)
}

func TestClient_UserOnlineUsesAuthenticatedIdentity(t *testing.T) {
	hub, svc := newClientFixture(t)
	c := newTestClient(hub, "conn-1", "alice")
	c.msgSvc = svc
	hub.addClient(c)

	// claiming someone else's id is ignored
	c.handleEvent(clientEnvelope(t, EventUserOnline, map[string]string{"userId": "bob"}))
	assert.False(t, hub.IsOnline("bob"))
	assert.False(t, hub.IsOnline("alice"))

	c.handleEvent(clientEnvelope(t, EventUserOnline, map[string]string{"userId": "alice"}))
	assert.True(t, hub.IsOnline("alice"))
}

func TestClient_JoinRoom(t *testing.T) {
	hub, svc := newClientFixture(t)
	c := newTestClient(hub, "conn-1", "alice")
	c.msgSvc = svc
	hub.addClient(c)

	c.handleEvent(clientEnvelope(t, EventJoinRoom, map[string]string{"conversationId": "req-1"}))
	assert.Equal(t, 1, hub.RoomCount("req-1"))

	// empty id is a no-op
	c.handleEvent(clientEnvelope(t, EventJoinRoom, map[string]string{}))
	assert.Equal(t, 0, hub.RoomCount(""))
}

func TestClient_SendMessageAcksSender(t *testing.T) {
	hub, svc := newClientFixture(t)
	c := newTestClient(hub, "conn-1", "alice")
	c.msgSvc = svc
	hub.addClient(c)

	c.handleEvent(clientEnvelope(t, EventSendMessage, map[string]string{
		"receiverId":     "bob",
		"conversationId": "req-1",
		"content":        "Hi, is this still available?",
	}))

	events := receivedEvents(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageSent, events[0].Event)

	var view models.MessageView
	require.NoError(t, json.Unmarshal(events[0].Data, &view))
	assert.Equal(t, "alice", view.SenderID)
	assert.Positive(t, view.ID)
}

func TestClient_SendMessageRejectsSpoofedSender(t *testing.T) {
	hub, svc := newClientFixture(t)
	c := newTestClient(hub, "conn-1", "alice")
	c.msgSvc = svc
	hub.addClient(c)

	c.handleEvent(clientEnvelope(t, EventSendMessage, map[string]string{
		"senderId":       "bob",
		"receiverId":     "alice",
		"conversationId": "req-1",
		"content":        "spoofed",
	}))

	events := receivedEvents(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageError, events[0].Event)
}

func TestClient_SendMessageValidationError(t *testing.T) {
	hub, svc := newClientFixture(t)
	c := newTestClient(hub, "conn-1", "alice")
	c.msgSvc = svc
	hub.addClient(c)

	c.handleEvent(clientEnvelope(t, EventSendMessage, map[string]string{
		"receiverId":     "bob",
		"conversationId": "req-1",
		"content":        "   ",
	}))

	events := receivedEvents(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageError, events[0].Event)

	var p errorPayload
	require.NoError(t, json.Unmarshal(events[0].Data, &p))
	assert.Equal(t, "Content and receiver ID are required", p.Error)
}

func TestClient_TrySendAfterCloseDoesNotPanic(t *testing.T) {
	hub, _ := newClientFixture(t)
	c := newTestClient(hub, "conn-1", "alice")
	hub.addClient(c)
	hub.removeClient(c)

	assert.NotPanics(t, func() {
		c.trySend([]byte(`{"event":"pong"}`))
	})
}
