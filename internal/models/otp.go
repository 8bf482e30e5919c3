package models

import "time"

const (
	// OTPCodeLength is the fixed width of the numeric challenge code.
	OTPCodeLength = 4

	// OTPMaxAttempts is the default verification attempt ceiling. The counter
	// is incremented before comparison, so the sixth submission fails even
	// with the correct code.
	OTPMaxAttempts = 5

	// OTPTTL is the default challenge lifetime. The store enforces the
	// deadline with a key-level TTL; the verify path re-checks ExpiresAt as
	// the logical backstop.
	OTPTTL = 5 * time.Minute
)

// OTP is an ephemeral MFA challenge. At most one unverified, unexpired OTP
// exists per user: issuing a new one replaces any prior challenge. Each
// challenge carries the expiry deadline and attempt budget it was issued
// with, so a configuration change never loosens an outstanding code.
type OTP struct {
	UserID      string    `json:"user_id"`
	Code        string    `json:"code"` // zero-padded numeric string
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts,omitempty"` // zero means OTPMaxAttempts
	Verified    bool      `json:"verified"`
	AccessLogID string    `json:"access_log_id,omitempty"` // back-reference, not an ownership edge
}

// AttemptCeiling returns the verification budget this challenge was issued
// with.
func (o *OTP) AttemptCeiling() int {
	if o.MaxAttempts > 0 {
		return o.MaxAttempts
	}
	return OTPMaxAttempts
}

// Expired reports whether the challenge is past its deadline.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// AttemptsRemaining reports the verification budget left after the counter
// has been incremented.
func (o *OTP) AttemptsRemaining() int {
	remaining := o.AttemptCeiling() - o.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
