package models

import (
	"time"
)

// Location is a coordinate pair with an optional human-readable address.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// User is an account gated by the risk-based login pipeline.
//
// Block-state invariant: IsBlocked with a nil BlockedUntil is an
// administrator-set indefinite block; a non-nil BlockedUntil is a system-set
// timed block that clears automatically once the deadline passes.
type User struct {
	ID                 string
	Username           string // unique, immutable identity key
	PasswordHash       string
	RegisteredLocation Location // trusted baseline coordinate, set at signup
	OTPEmail           *string  // presence gates whether MFA can be satisfied
	IsBlocked          bool
	BlockedUntil       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BlockState summarizes the lock status of the account at a point in time.
type BlockState int

const (
	BlockNone BlockState = iota
	BlockAdmin
	BlockActive
	BlockExpired
)

// BlockStateAt classifies the account's lock fields against now.
func (u *User) BlockStateAt(now time.Time) BlockState {
	if !u.IsBlocked {
		return BlockNone
	}
	if u.BlockedUntil == nil {
		return BlockAdmin
	}
	if now.Before(*u.BlockedUntil) {
		return BlockActive
	}
	return BlockExpired
}
