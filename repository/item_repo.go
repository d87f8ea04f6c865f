package repository

import (
	"context"
	"sync"
	"time"

	"exchange-chat/models"
)

// ItemStore reads listed items for conversation context. Managed by the
// listing subsystem; Create exists for seeding and tests.
type ItemStore interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id string) (*models.Item, error)
}

type InMemoryItemRepo struct {
	mu   sync.RWMutex
	byID map[string]*models.Item
}

func NewInMemoryItemRepo() *InMemoryItemRepo {
	return &InMemoryItemRepo{byID: make(map[string]*models.Item)}
}

func (r *InMemoryItemRepo) Create(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	stored := *item
	r.byID[item.ID] = &stored
	return nil
}

func (r *InMemoryItemRepo) FindByID(_ context.Context, id string) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}
