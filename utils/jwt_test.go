package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", "alice", "USER", time.Hour)
	require.NoError(t, err)

	userID, role, err := ParseJWT("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)
	assert.Equal(t, "USER", role)
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret", "alice", "USER", time.Hour)
	require.NoError(t, err)

	_, _, err = ParseJWT("other-secret", token)
	assert.Error(t, err)
}

func TestParseJWT_Expired(t *testing.T) {
	token, err := GenerateJWT("secret", "alice", "USER", -time.Minute)
	require.NoError(t, err)

	_, _, err = ParseJWT("secret", token)
	assert.Error(t, err)
}

func TestParseJWT_Empty(t *testing.T) {
	_, _, err := ParseJWT("secret", "")
	assert.Error(t, err)
}

func TestParseJWT_Garbage(t *testing.T) {
	_, _, err := ParseJWT("secret", "not.a.token")
	assert.Error(t, err)
}
