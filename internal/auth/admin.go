package auth

import (
	"crypto/subtle"
	"fmt"
)

// AdminGate authenticates the reserved administrative identity. This is a
// deliberately separate trust path: it never touches risk scoring, the lock
// state, or the access-attempt ledger. Keeping it out of the scored login
// function keeps that path auditable and lets this one be hardened on its
// own (it is disabled entirely unless a secret is configured).
type AdminGate struct {
	username string
	secret   string
	tm       *TokenManager
}

func NewAdminGate(username, secret string, tm *TokenManager) *AdminGate {
	return &AdminGate{username: username, secret: secret, tm: tm}
}

// Enabled reports whether the bypass identity is configured at all.
func (g *AdminGate) Enabled() bool {
	return g.secret != ""
}

// Match reports whether the supplied credentials are the reserved admin
// pair. Comparison is constant-time on the secret.
func (g *AdminGate) Match(username, password string) bool {
	if !g.Enabled() || username != g.username {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(g.secret)) == 1
}

// IssueToken mints an elevated session credential for the admin identity.
func (g *AdminGate) IssueToken() (string, error) {
	token, err := g.tm.IssueSessionToken("admin", g.username, true)
	if err != nil {
		return "", fmt.Errorf("failed to issue admin token: %w", err)
	}
	return token, nil
}
