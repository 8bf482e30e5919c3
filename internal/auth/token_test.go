package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)

	token, err := tm.IssueSessionToken("user123", "alice", false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.False(t, claims.IsAdmin)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_AdminClaim(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)

	token, err := tm.IssueSessionToken("admin", "admin", true)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)
	other := NewTokenManager("another-secret-32-characters-!!", time.Hour)

	token, err := tm.IssueSessionToken("user123", "alice", false)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", -time.Minute)

	token, err := tm.IssueSessionToken("user123", "alice", false)
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)

	_, err := tm.ValidateToken("not-a-token")
	assert.Error(t, err)
}
