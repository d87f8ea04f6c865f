package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"exchange-chat/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ConversationHead is the aggregation row produced per conversation: the
// latest message plus the viewing user's counts.
type ConversationHead struct {
	Message       models.Message
	UnreadCount   int
	TotalMessages int
}

type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	FindByID(ctx context.Context, id int64) (*models.Message, error)
	// ListByConversation returns every message of the conversation ordered
	// ascending by createdAt, then id.
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	// CountUnreadTotal counts unread messages addressed to userID across all
	// conversations.
	CountUnreadTotal(ctx context.Context, userID string) (int, error)
	// MarkRead flips every unread message from senderID to receiverID.
	// Idempotent.
	MarkRead(ctx context.Context, senderID, receiverID string) error
	// MarkConversationRead flips every unread message addressed to receiverID
	// within one conversation. Idempotent.
	MarkConversationRead(ctx context.Context, conversationID, receiverID string) error
	Delete(ctx context.Context, id int64) error
	// ListConversationHeads returns one row per conversation where userID is
	// sender or receiver of at least one message, latest message first.
	// Ties on createdAt resolve to the higher id.
	ListConversationHeads(ctx context.Context, userID string) ([]ConversationHead, error)
}

type InMemoryMessageRepo struct {
	mu     sync.RWMutex
	seq    int64
	data   map[int64]*models.Message
	byConv map[string][]int64
}

func NewInMemoryMessageRepo() *InMemoryMessageRepo {
	return &InMemoryMessageRepo{
		data:   make(map[int64]*models.Message),
		byConv: make(map[string][]int64),
	}
}

func (r *InMemoryMessageRepo) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	msg.ID = r.seq
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	stored := *msg
	r.data[msg.ID] = &stored
	r.byConv[msg.ConversationID] = append(r.byConv[msg.ConversationID], msg.ID)
	return msg, nil
}

func (r *InMemoryMessageRepo) FindByID(_ context.Context, id int64) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *InMemoryMessageRepo) ListByConversation(_ context.Context, conversationID string) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := make([]models.Message, 0, len(r.byConv[conversationID]))
	for _, id := range r.byConv[conversationID] {
		msgs = append(msgs, *r.data[id])
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (r *InMemoryMessageRepo) CountUnreadTotal(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, m := range r.data {
		if m.ReceiverID == userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryMessageRepo) MarkRead(_ context.Context, senderID, receiverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.data {
		if m.SenderID == senderID && m.ReceiverID == receiverID {
			m.IsRead = true
		}
	}
	return nil
}

func (r *InMemoryMessageRepo) MarkConversationRead(_ context.Context, conversationID, receiverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.byConv[conversationID] {
		if m := r.data[id]; m.ReceiverID == receiverID {
			m.IsRead = true
		}
	}
	return nil
}

func (r *InMemoryMessageRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}

	delete(r.data, id)
	ids := r.byConv[m.ConversationID]
	for i, mid := range ids {
		if mid == id {
			r.byConv[m.ConversationID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (r *InMemoryMessageRepo) ListConversationHeads(_ context.Context, userID string) ([]ConversationHead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byConv := make(map[string]*ConversationHead)
	for _, m := range r.data {
		if m.SenderID != userID && m.ReceiverID != userID {
			continue
		}

		head, ok := byConv[m.ConversationID]
		if !ok {
			head = &ConversationHead{Message: *m}
			byConv[m.ConversationID] = head
		} else if newerThan(m, &head.Message) {
			head.Message = *m
		}

		head.TotalMessages++
		if m.ReceiverID == userID && !m.IsRead {
			head.UnreadCount++
		}
	}

	heads := make([]ConversationHead, 0, len(byConv))
	for _, h := range byConv {
		heads = append(heads, *h)
	}
	sort.Slice(heads, func(i, j int) bool {
		return newerThan(&heads[i].Message, &heads[j].Message)
	})
	return heads, nil
}

func newerThan(a, b *models.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
