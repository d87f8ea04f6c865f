package repository

import (
	"context"
	"sync"
	"time"

	"exchange-chat/models"
)

// RequestStore reads item-requests, the records that conversations are keyed
// by. Managed by the request lifecycle subsystem; Create exists for seeding
// and tests.
type RequestStore interface {
	Create(ctx context.Context, req *models.ItemRequest) error
	FindByID(ctx context.Context, id string) (*models.ItemRequest, error)
}

type InMemoryRequestRepo struct {
	mu   sync.RWMutex
	byID map[string]*models.ItemRequest
}

func NewInMemoryRequestRepo() *InMemoryRequestRepo {
	return &InMemoryRequestRepo{byID: make(map[string]*models.ItemRequest)}
}

func (r *InMemoryRequestRepo) Create(_ context.Context, req *models.ItemRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	stored := *req
	r.byID[req.ID] = &stored
	return nil
}

func (r *InMemoryRequestRepo) FindByID(_ context.Context, id string) (*models.ItemRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}
