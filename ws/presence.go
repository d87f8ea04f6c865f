package ws

import "sync"

// Presence maps each user to their single live connection. Registering a new
// connection for a user silently evicts the previous mapping; the evicted
// connection's later disconnect does not emit an offline event because it no
// longer owns the entry.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connID
	byConn map[string]string // connID -> userID, reverse index for O(1) disconnect
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// SetOnline records userID as online on connID, replacing any prior
// connection. Returns the evicted connection id, if any.
func (p *Presence) SetOnline(userID, connID string) (evicted string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.byUser[userID]; ok && old != connID {
		delete(p.byConn, old)
		evicted = old
	}
	p.byUser[userID] = connID
	p.byConn[connID] = userID
	return evicted
}

// RemoveByConn drops the presence entry owned by connID. It reports the
// owning user and true only if the connection still owned its user's entry,
// so an evicted stale connection disconnecting later yields false.
func (p *Presence) RemoveByConn(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byConn[connID]
	if !ok {
		return "", false
	}
	delete(p.byConn, connID)
	if p.byUser[userID] == connID {
		delete(p.byUser, userID)
		return userID, true
	}
	return "", false
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byUser[userID]
	return ok
}

func (p *Presence) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.byUser))
	for userID := range p.byUser {
		users = append(users, userID)
	}
	return users
}
