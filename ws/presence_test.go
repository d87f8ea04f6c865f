package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresence_SetOnlineAndRemove(t *testing.T) {
	p := NewPresence()

	evicted := p.SetOnline("alice", "conn-1")
	assert.Empty(t, evicted)
	assert.True(t, p.IsOnline("alice"))

	userID, ok := p.RemoveByConn("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", userID)
	assert.False(t, p.IsOnline("alice"))
}

func TestPresence_LastRegisteredWins(t *testing.T) {
	p := NewPresence()

	p.SetOnline("alice", "conn-1")
	evicted := p.SetOnline("alice", "conn-2")
	assert.Equal(t, "conn-1", evicted)
	assert.True(t, p.IsOnline("alice"))

	// the evicted connection no longer owns the entry, its disconnect
	// must not produce an offline event
	_, ok := p.RemoveByConn("conn-1")
	assert.False(t, ok)
	assert.True(t, p.IsOnline("alice"))

	userID, ok := p.RemoveByConn("conn-2")
	require.True(t, ok)
	assert.Equal(t, "alice", userID)
	assert.False(t, p.IsOnline("alice"))
}

func TestPresence_ReRegisterSameConn(t *testing.T) {
	p := NewPresence()

	p.SetOnline("alice", "conn-1")
	evicted := p.SetOnline("alice", "conn-1")
	assert.Empty(t, evicted)
	assert.True(t, p.IsOnline("alice"))
}

func TestPresence_RemoveUnknownConn(t *testing.T) {
	p := NewPresence()

	_, ok := p.RemoveByConn("nope")
	assert.False(t, ok)
}

func TestPresence_OnlineUsers(t *testing.T) {
	p := NewPresence()

	p.SetOnline("alice", "conn-1")
	p.SetOnline("bob", "conn-2")

	users := p.OnlineUsers()
	assert.ElementsMatch(t, []string{"alice", "bob"}, users)
}
