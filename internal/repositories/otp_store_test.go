package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/riskgate/internal/models"
)

func newTestOTPStore(t *testing.T) (*OTPStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewOTPStore(client), mr
}

func testOTP(userID, code string) *models.OTP {
	now := time.Now()
	return &models.OTP{
		UserID:      userID,
		Code:        code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(models.OTPTTL),
		AccessLogID: "log-1",
	}
}

func TestOTPStore_IssueAndConsume(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.Issue(ctx, testOTP("user-1", "4821")))

	otp, err := store.Consume(ctx, "user-1", "4821")
	require.NoError(t, err)
	assert.True(t, otp.Verified)
	assert.Equal(t, 1, otp.Attempts)
	assert.Equal(t, "log-1", otp.AccessLogID)

	// Success is terminal: the code cannot be redeemed twice.
	_, err = store.Consume(ctx, "user-1", "4821")
	assert.ErrorIs(t, err, models.ErrOTPNotFound)
}

func TestOTPStore_IssueReplacesPriorChallenge(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.Issue(ctx, testOTP("user-1", "1111")))
	require.NoError(t, store.Issue(ctx, testOTP("user-1", "2222")))

	_, err := store.Consume(ctx, "user-1", "1111")
	assert.ErrorIs(t, err, models.ErrOTPInvalidCode)

	otp, err := store.Consume(ctx, "user-1", "2222")
	require.NoError(t, err)
	assert.True(t, otp.Verified)
}

func TestOTPStore_WrongCodeChargesAttempt(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.Issue(ctx, testOTP("user-1", "4821")))

	otp, err := store.Consume(ctx, "user-1", "0000")
	assert.ErrorIs(t, err, models.ErrOTPInvalidCode)
	require.NotNil(t, otp)
	assert.Equal(t, 1, otp.Attempts)
	assert.Equal(t, 4, otp.AttemptsRemaining())

	// The charged attempt survives for the next submission.
	otp, err = store.Consume(ctx, "user-1", "9999")
	assert.ErrorIs(t, err, models.ErrOTPInvalidCode)
	require.NotNil(t, otp)
	assert.Equal(t, 2, otp.Attempts)
}

func TestOTPStore_SixthAttemptFailsEvenWithCorrectCode(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.Issue(ctx, testOTP("user-1", "4821")))

	for i := 0; i < models.OTPMaxAttempts; i++ {
		_, err := store.Consume(ctx, "user-1", "0000")
		assert.ErrorIs(t, err, models.ErrOTPInvalidCode)
	}

	// The attempt is charged before comparison, so the ceiling wins.
	_, err := store.Consume(ctx, "user-1", "4821")
	assert.ErrorIs(t, err, models.ErrOTPTooManyAttempts)

	// Exhaustion deletes the record entirely.
	_, err = store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, models.ErrOTPNotFound)
}

func TestOTPStore_HonorsPerChallengeAttemptCeiling(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	otp := testOTP("user-1", "4821")
	otp.MaxAttempts = 2
	require.NoError(t, store.Issue(ctx, otp))

	for i := 0; i < 2; i++ {
		got, err := store.Consume(ctx, "user-1", "0000")
		assert.ErrorIs(t, err, models.ErrOTPInvalidCode)
		require.NotNil(t, got)
		assert.Equal(t, 2-got.Attempts, got.AttemptsRemaining())
	}

	// The stamped budget wins over the default ceiling.
	_, err := store.Consume(ctx, "user-1", "4821")
	assert.ErrorIs(t, err, models.ErrOTPTooManyAttempts)
}

func TestOTPStore_ExpiredChallengeIsDeleted(t *testing.T) {
	store, mr := newTestOTPStore(t)
	ctx := context.Background()

	otp := testOTP("user-1", "4821")
	otp.ExpiresAt = time.Now().Add(50 * time.Millisecond)
	require.NoError(t, store.Issue(ctx, otp))

	mr.FastForward(time.Second)

	_, err := store.Consume(ctx, "user-1", "4821")
	assert.ErrorIs(t, err, models.ErrOTPNotFound)
}

func TestOTPStore_IssueRejectsAlreadyExpired(t *testing.T) {
	store, _ := newTestOTPStore(t)

	otp := testOTP("user-1", "4821")
	otp.ExpiresAt = time.Now().Add(-time.Second)

	err := store.Issue(context.Background(), otp)
	assert.ErrorIs(t, err, models.ErrOTPExpired)
}

func TestOTPStore_ChallengesAreScopedPerUser(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.Issue(ctx, testOTP("user-1", "1111")))
	require.NoError(t, store.Issue(ctx, testOTP("user-2", "2222")))

	otp, err := store.Consume(ctx, "user-1", "1111")
	require.NoError(t, err)
	assert.Equal(t, "user-1", otp.UserID)

	otp, err = store.Consume(ctx, "user-2", "2222")
	require.NoError(t, err)
	assert.Equal(t, "user-2", otp.UserID)
}

func TestOTPStore_Delete(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.Issue(ctx, testOTP("user-1", "4821")))
	require.NoError(t, store.Delete(ctx, "user-1"))

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, models.ErrOTPNotFound)
}
