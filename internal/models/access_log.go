package models

import "time"

// Action is the outcome class of a risk evaluation. The numeric thresholds
// that map a score to an action live in internal/risk and nowhere else.
type Action string

const (
	ActionAccessGranted Action = "access_granted"
	ActionMFARequired   Action = "mfa_required"
	ActionBlocked       Action = "blocked"
)

// FactorScore is one risk sub-signal, persisted exactly as computed.
type FactorScore struct {
	Score    int `json:"score"`
	MaxScore int `json:"max_score"`
}

// KeystrokeFactor carries the raw delete count alongside its score.
type KeystrokeFactor struct {
	FactorScore
	DeleteCount int `json:"delete_count"`
}

// SessionTimeFactor carries the elapsed session seconds alongside its score.
type SessionTimeFactor struct {
	FactorScore
	Duration int `json:"duration"`
}

// RiskFactors is the per-attempt breakdown stored on every access log entry.
// Reporting tooling depends on this shape; the sub-scores and caps must be
// written as computed, never re-derived.
type RiskFactors struct {
	LocationAnomaly  FactorScore       `json:"location_anomaly"`
	KeystrokeAnomaly KeystrokeFactor   `json:"keystroke_anomaly"`
	SessionTime      SessionTimeFactor `json:"session_time"`
	UnusualTime      FactorScore       `json:"unusual_time"`
}

// AccessLog records one login risk evaluation. Append-only: MFACompleted and
// LoginSuccess are the only fields mutated after creation, by the OTP
// verification path.
//
// Username is denormalized at write time so the audit trail survives identity
// changes upstream.
type AccessLog struct {
	ID             string
	UserID         string
	Username       string
	Timestamp      time.Time
	Location       Coordinates
	RiskFactors    RiskFactors
	TotalRiskScore int
	Action         Action
	MFACompleted   bool
	LoginSuccess   bool
}

// Coordinates is a bare coordinate pair captured at attempt time.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
