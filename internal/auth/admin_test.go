package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminGate_Match(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)
	gate := NewAdminGate("admin", "super-secret-admin-value", tm)

	assert.True(t, gate.Match("admin", "super-secret-admin-value"))
	assert.False(t, gate.Match("admin", "wrong"))
	assert.False(t, gate.Match("alice", "super-secret-admin-value"))
}

func TestAdminGate_DisabledWithoutSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)
	gate := NewAdminGate("admin", "", tm)

	assert.False(t, gate.Enabled())
	// An empty configured secret must never match an empty password.
	assert.False(t, gate.Match("admin", ""))
}

func TestAdminGate_IssueToken(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Hour)
	gate := NewAdminGate("admin", "super-secret-admin-value", tm)

	token, err := gate.IssueToken()
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "admin", claims.Username)
}
