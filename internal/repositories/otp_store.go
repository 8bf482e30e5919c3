package repositories

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkarlsen/riskgate/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix      = "otp"
	otpConsumeRetries = 4
)

// OTPStore keeps pending MFA challenges in Redis. Each user has at most one
// live challenge: the key is derived from the user ID, so issuing a new code
// atomically replaces any earlier one, and the key TTL enforces expiry even
// if the code is never attempted.
type OTPStore struct {
	redis *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{redis: client}
}

func (s *OTPStore) key(userID string) string {
	return otpKeyPrefix + ":" + userID
}

// Issue stores the challenge under the user's key with its TTL, replacing
// any prior challenge for that user.
func (s *OTPStore) Issue(ctx context.Context, otp *models.OTP) error {
	encoded, err := json.Marshal(otp)
	if err != nil {
		return fmt.Errorf("failed to encode otp: %w", err)
	}

	ttl := time.Until(otp.ExpiresAt)
	if ttl <= 0 {
		return models.ErrOTPExpired
	}

	if err := s.redis.Set(ctx, s.key(otp.UserID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}

	return nil
}

// Get returns the pending challenge without spending an attempt.
func (s *OTPStore) Get(ctx context.Context, userID string) (*models.OTP, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrOTPNotFound
		}
		return nil, fmt.Errorf("failed to read otp: %w", err)
	}

	var otp models.OTP
	if err := json.Unmarshal(data, &otp); err != nil {
		return nil, fmt.Errorf("failed to decode otp: %w", err)
	}

	return &otp, nil
}

// Delete discards any pending challenge for the user.
func (s *OTPStore) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

// Consume attempts to redeem the user's pending challenge with the supplied
// code. The attempt is charged before the code is compared, so even a
// correct code fails once the attempt ceiling is crossed. Terminal outcomes
// (success, exhaustion, expiry) delete the record; a plain mismatch persists
// the incremented counter under the remaining TTL and returns the updated
// record alongside the error so callers can report attempts remaining.
//
// The read-and-update runs under WATCH so two concurrent verification calls
// cannot both spend the same attempt; on contention the transaction is
// retried against the fresh record.
func (s *OTPStore) Consume(ctx context.Context, userID, code string) (*models.OTP, error) {
	key := s.key(userID)

	for i := 0; i < otpConsumeRetries; i++ {
		var consumed *models.OTP
		var verifyErr error

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					verifyErr = models.ErrOTPNotFound
					return nil
				}
				return err
			}

			var otp models.OTP
			if err := json.Unmarshal(data, &otp); err != nil {
				return fmt.Errorf("failed to decode otp: %w", err)
			}

			now := time.Now()
			if otp.Expired(now) {
				verifyErr = models.ErrOTPExpired
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			otp.Attempts++
			if otp.Attempts > otp.AttemptCeiling() {
				verifyErr = models.ErrOTPTooManyAttempts
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
				verifyErr = models.ErrOTPInvalidCode
				consumed = &otp

				encoded, err := json.Marshal(&otp)
				if err != nil {
					return fmt.Errorf("failed to encode otp: %w", err)
				}

				ttl := time.Until(otp.ExpiresAt)
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, encoded, ttl)
					return nil
				})
				return err
			}

			otp.Verified = true
			consumed = &otp

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("otp consume transaction failed: %w", err)
		}
		if verifyErr != nil {
			return consumed, verifyErr
		}
		return consumed, nil
	}

	return nil, fmt.Errorf("otp consume contention on user %s", userID)
}
