package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-chat/models"
)

func memMessage(t *testing.T, r *InMemoryMessageRepo, conv, sender, receiver, content string, at time.Time) *models.Message {
	t.Helper()

	msg, err := r.Create(context.Background(), &models.Message{
		ConversationID: conv,
		SenderID:       sender,
		ReceiverID:     receiver,
		Content:        content,
		CreatedAt:      at,
	})
	require.NoError(t, err)
	return msg
}

func TestInMemoryMessageRepo_CreateAssignsSequentialIDs(t *testing.T) {
	repo := NewInMemoryMessageRepo()
	now := time.Now()

	first := memMessage(t, repo, "req-1", "alice", "bob", "one", now)
	second := memMessage(t, repo, "req-1", "bob", "alice", "two", now)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestInMemoryMessageRepo_FindByIDCopies(t *testing.T) {
	repo := NewInMemoryMessageRepo()
	msg := memMessage(t, repo, "req-1", "alice", "bob", "original", time.Now())

	found, err := repo.FindByID(context.Background(), msg.ID)
	require.NoError(t, err)

	// mutating the returned value must not leak into the store
	found.Content = "tampered"
	again, err := repo.FindByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Content)
}

func TestInMemoryMessageRepo_ListByConversationOrder(t *testing.T) {
	repo := NewInMemoryMessageRepo()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	memMessage(t, repo, "req-1", "alice", "bob", "b", base.Add(time.Minute))
	memMessage(t, repo, "req-1", "bob", "alice", "a", base)
	memMessage(t, repo, "req-1", "alice", "bob", "c", base.Add(time.Minute))

	msgs, err := repo.ListByConversation(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "a", msgs[0].Content)
	// equal createdAt resolves by lower id first
	assert.Equal(t, "b", msgs[1].Content)
	assert.Equal(t, "c", msgs[2].Content)
}

func TestInMemoryMessageRepo_MarkConversationRead(t *testing.T) {
	repo := NewInMemoryMessageRepo()
	ctx := context.Background()
	now := time.Now()

	memMessage(t, repo, "req-1", "alice", "bob", "for bob", now)
	memMessage(t, repo, "req-1", "bob", "alice", "for alice", now)
	memMessage(t, repo, "req-2", "alice", "bob", "elsewhere", now)

	require.NoError(t, repo.MarkConversationRead(ctx, "req-1", "bob"))

	count, err := repo.CountUnreadTotal(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountUnreadTotal(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInMemoryMessageRepo_Delete(t *testing.T) {
	repo := NewInMemoryMessageRepo()
	ctx := context.Background()

	msg := memMessage(t, repo, "req-1", "alice", "bob", "gone", time.Now())

	require.NoError(t, repo.Delete(ctx, msg.ID))
	assert.ErrorIs(t, repo.Delete(ctx, msg.ID), ErrNotFound)

	msgs, err := repo.ListByConversation(ctx, "req-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestInMemoryMessageRepo_ListConversationHeads(t *testing.T) {
	repo := NewInMemoryMessageRepo()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	memMessage(t, repo, "req-1", "alice", "bob", "hello", base)
	memMessage(t, repo, "req-1", "bob", "alice", "latest in req-1", base.Add(3*time.Minute))
	memMessage(t, repo, "req-2", "carol", "alice", "latest overall", base.Add(5*time.Minute))
	memMessage(t, repo, "req-3", "bob", "carol", "not alice's", base.Add(10*time.Minute))

	heads, err := repo.ListConversationHeads(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, heads, 2)

	assert.Equal(t, "req-2", heads[0].Message.ConversationID)
	assert.Equal(t, 1, heads[0].UnreadCount)
	assert.Equal(t, 1, heads[0].TotalMessages)

	assert.Equal(t, "req-1", heads[1].Message.ConversationID)
	assert.Equal(t, "latest in req-1", heads[1].Message.Content)
	assert.Equal(t, 1, heads[1].UnreadCount)
	assert.Equal(t, 2, heads[1].TotalMessages)
}

func TestInMemoryUserRepo_Search(t *testing.T) {
	repo := NewInMemoryUserRepo()
	ctx := context.Background()

	users := []*models.User{
		{ID: "alice", Name: "Alice Martin", Email: "alice@example.com"},
		{ID: "bob", Name: "Bob Marley", Email: "bob@example.com"},
		{ID: "carol", Name: "Carol Marsh", Email: "carol@example.com", IsSuspended: true},
	}
	for _, u := range users {
		require.NoError(t, repo.Create(ctx, u))
	}

	results, err := repo.Search(ctx, "MAR", "alice", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].ID)
}
