package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"exchange-chat/models"
)

// UserStore reads the identity records managed by the external account
// system. Create exists for seeding and tests.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	// Search matches name or email substrings, excluding excludeID and
	// suspended accounts, capped to limit results.
	Search(ctx context.Context, query, excludeID string, limit int) ([]models.UserSummary, error)
}

type InMemoryUserRepo struct {
	mu   sync.RWMutex
	byID map[string]*models.User
}

func NewInMemoryUserRepo() *InMemoryUserRepo {
	return &InMemoryUserRepo{byID: make(map[string]*models.User)}
}

func (r *InMemoryUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	stored := *user
	r.byID[user.ID] = &stored
	return nil
}

func (r *InMemoryUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *InMemoryUserRepo) Search(_ context.Context, query, excludeID string, limit int) ([]models.UserSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	var results []models.UserSummary
	for _, u := range r.byID {
		if u.ID == excludeID || u.IsSuspended {
			continue
		}
		if !strings.Contains(strings.ToLower(u.Name), q) && !strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		results = append(results, models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
