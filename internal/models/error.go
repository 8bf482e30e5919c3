package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login gate errors. Unknown username and wrong password are deliberately
	// not distinguished to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrMFAUnavailable     = errors.New("mfa required but no otp email registered")

	// OTP lifecycle errors
	ErrOTPNotFound        = errors.New("otp not found")
	ErrOTPExpired         = errors.New("otp expired")
	ErrOTPTooManyAttempts = errors.New("too many otp attempts")
	ErrOTPInvalidCode     = errors.New("invalid otp code")
)

// BlockedUntilError is returned when a system-set timed block is still active.
// It wraps ErrAccountBlocked so callers can match either the class or the
// timed variant.
type BlockedUntilError struct {
	Until time.Time
}

func (e *BlockedUntilError) Error() string {
	return fmt.Sprintf("account is blocked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *BlockedUntilError) Unwrap() error { return ErrAccountBlocked }

// RemainingMinutes reports how long the caller has to wait, rounded up.
func (e *BlockedUntilError) RemainingMinutes(now time.Time) int {
	remaining := e.Until.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Minute - 1) / time.Minute)
}

// PolicyValidationError reports a malformed time-window policy update.
type PolicyValidationError struct {
	Detail string
}

func (e *PolicyValidationError) Error() string {
	return fmt.Sprintf("invalid time window policy: %s", e.Detail)
}

func (e *PolicyValidationError) Unwrap() error { return ErrBadRequest }
