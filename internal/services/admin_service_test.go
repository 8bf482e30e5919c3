package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/riskgate/internal/models"
)

func newTestAdminService(users *MockUserRepository, logs *MockAccessLogRepository, policies *MockPolicyRepository) *AdminService {
	return NewAdminService(users, logs, policies, discardLogger())
}

func TestSetAccountLock_BlockIsIndefinite(t *testing.T) {
	user := testUser(t)
	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	var gotBlocked bool
	var gotUntil *time.Time
	users.UpdateBlockStatusFunc = func(ctx context.Context, id string, blocked bool, until *time.Time) error {
		gotBlocked = blocked
		gotUntil = until
		return nil
	}
	svc := newTestAdminService(users, &MockAccessLogRepository{}, &MockPolicyRepository{})

	_, err := svc.SetAccountLock(context.Background(), "user-1", true)
	require.NoError(t, err)
	assert.True(t, gotBlocked)
	assert.Nil(t, gotUntil, "manual locks carry no deadline")
}

func TestSetAccountLock_UnblockClearsDeadline(t *testing.T) {
	user := testUser(t)
	until := time.Now().Add(time.Hour)
	user.IsBlocked = true
	user.BlockedUntil = &until

	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	var gotBlocked bool
	var gotUntil *time.Time
	called := false
	users.UpdateBlockStatusFunc = func(ctx context.Context, id string, blocked bool, u *time.Time) error {
		called = true
		gotBlocked = blocked
		gotUntil = u
		return nil
	}
	svc := newTestAdminService(users, &MockAccessLogRepository{}, &MockPolicyRepository{})

	_, err := svc.SetAccountLock(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, gotBlocked)
	assert.Nil(t, gotUntil, "unlocking lifts timed blocks early too")
}

func TestSetAccountLock_UnknownUser(t *testing.T) {
	svc := newTestAdminService(&MockUserRepository{}, &MockAccessLogRepository{}, &MockPolicyRepository{})

	_, err := svc.SetAccountLock(context.Background(), "missing", true)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetTimeWindows_ValidPolicyStored(t *testing.T) {
	var stored *models.TimeWindowPolicy
	policies := &MockPolicyRepository{
		SetTimeWindowPolicyFunc: func(ctx context.Context, policy *models.TimeWindowPolicy) (*models.TimeWindowPolicy, error) {
			stored = policy
			policy.UpdatedAt = time.Now()
			return policy, nil
		},
	}
	svc := newTestAdminService(&MockUserRepository{}, &MockAccessLogRepository{}, policies)

	ranges := []models.TimeRange{
		{StartTime: "09:00", EndTime: "18:00"},
		{StartTime: "22:00", EndTime: "06:00"},
	}

	updated, err := svc.SetTimeWindows(context.Background(), ranges)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, ranges, stored.Ranges)
	assert.False(t, updated.UpdatedAt.IsZero())
}

func TestSetTimeWindows_EmptyRangesClearPolicy(t *testing.T) {
	var stored *models.TimeWindowPolicy
	policies := &MockPolicyRepository{
		SetTimeWindowPolicyFunc: func(ctx context.Context, policy *models.TimeWindowPolicy) (*models.TimeWindowPolicy, error) {
			stored = policy
			return policy, nil
		},
	}
	svc := newTestAdminService(&MockUserRepository{}, &MockAccessLogRepository{}, policies)

	// No expected-hours windows is a valid policy; it disables the
	// time-of-day signal rather than failing validation.
	_, err := svc.SetTimeWindows(context.Background(), []models.TimeRange{})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.Ranges)
}

func TestSetTimeWindows_RejectsMalformedRange(t *testing.T) {
	policies := &MockPolicyRepository{
		SetTimeWindowPolicyFunc: func(ctx context.Context, policy *models.TimeWindowPolicy) (*models.TimeWindowPolicy, error) {
			t.Fatal("invalid policy must not reach storage")
			return nil, nil
		},
	}
	svc := newTestAdminService(&MockUserRepository{}, &MockAccessLogRepository{}, policies)

	_, err := svc.SetTimeWindows(context.Background(), []models.TimeRange{
		{StartTime: "25:00", EndTime: "18:00"},
	})
	require.Error(t, err)

	var invalid *models.PolicyValidationError
	assert.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestListAccessLogs_FiltersByUser(t *testing.T) {
	var recentCalled, byUserCalled bool
	logs := &MockAccessLogRepository{
		ListRecentFunc: func(ctx context.Context, limit, offset int) ([]*models.AccessLog, error) {
			recentCalled = true
			return []*models.AccessLog{}, nil
		},
		ListByUserFunc: func(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error) {
			byUserCalled = true
			assert.Equal(t, "user-1", userID)
			return []*models.AccessLog{}, nil
		},
	}
	svc := newTestAdminService(&MockUserRepository{}, logs, &MockPolicyRepository{})

	_, err := svc.ListAccessLogs(context.Background(), "user-1", 50, 0)
	require.NoError(t, err)
	assert.True(t, byUserCalled)
	assert.False(t, recentCalled)

	_, err = svc.ListAccessLogs(context.Background(), "", 50, 0)
	require.NoError(t, err)
	assert.True(t, recentCalled)
}

func TestGetStats(t *testing.T) {
	users := &MockUserRepository{
		CountsFunc: func(ctx context.Context) (int64, int64, error) {
			return 12, 3, nil
		},
	}
	logs := &MockAccessLogRepository{
		ActionCountsFunc: func(ctx context.Context, since time.Time) (map[models.Action]int64, error) {
			return map[models.Action]int64{
				models.ActionAccessGranted: 40,
				models.ActionMFARequired:   7,
				models.ActionBlocked:       2,
			}, nil
		},
	}
	svc := newTestAdminService(users, logs, &MockPolicyRepository{})

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.BlockedUsers)
	assert.Equal(t, int64(7), stats.ActionCounts[models.ActionMFARequired])
}
