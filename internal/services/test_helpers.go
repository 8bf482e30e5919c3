package services

import (
	"context"
	"time"

	"github.com/mkarlsen/riskgate/internal/models"
)

// MockUserRepository implements UserRepository and AdminUserRepository for testing
type MockUserRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.User, error)
	GetByUsernameFunc     func(ctx context.Context, username string) (*models.User, error)
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	ListFunc              func(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateBlockStatusFunc func(ctx context.Context, id string, blocked bool, blockedUntil *time.Time) error
	UpdatePasswordFunc    func(ctx context.Context, id, passwordHash string) error
	CountsFunc            func(ctx context.Context) (int64, int64, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) UpdateBlockStatus(ctx context.Context, id string, blocked bool, blockedUntil *time.Time) error {
	if m.UpdateBlockStatusFunc != nil {
		return m.UpdateBlockStatusFunc(ctx, id, blocked, blockedUntil)
	}
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) Counts(ctx context.Context) (int64, int64, error) {
	if m.CountsFunc != nil {
		return m.CountsFunc(ctx)
	}
	return 0, 0, nil
}

// MockAccessLogRepository implements AccessLogRepository and AdminAccessLogRepository for testing
type MockAccessLogRepository struct {
	CreateFunc           func(ctx context.Context, entry *models.AccessLog) (*models.AccessLog, error)
	MarkMFACompletedFunc func(ctx context.Context, id string) error
	ListRecentFunc       func(ctx context.Context, limit, offset int) ([]*models.AccessLog, error)
	ListByUserFunc       func(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error)
	ActionCountsFunc     func(ctx context.Context, since time.Time) (map[models.Action]int64, error)
}

func (m *MockAccessLogRepository) Create(ctx context.Context, entry *models.AccessLog) (*models.AccessLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	entry.ID = "log-1"
	return entry, nil
}

func (m *MockAccessLogRepository) MarkMFACompleted(ctx context.Context, id string) error {
	if m.MarkMFACompletedFunc != nil {
		return m.MarkMFACompletedFunc(ctx, id)
	}
	return nil
}

func (m *MockAccessLogRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.AccessLog, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit, offset)
	}
	return []*models.AccessLog{}, nil
}

func (m *MockAccessLogRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	return []*models.AccessLog{}, nil
}

func (m *MockAccessLogRepository) ActionCounts(ctx context.Context, since time.Time) (map[models.Action]int64, error) {
	if m.ActionCountsFunc != nil {
		return m.ActionCountsFunc(ctx, since)
	}
	return map[models.Action]int64{}, nil
}

// MockOTPStore implements OTPStore for testing
type MockOTPStore struct {
	IssueFunc   func(ctx context.Context, otp *models.OTP) error
	ConsumeFunc func(ctx context.Context, userID, code string) (*models.OTP, error)
	DeleteFunc  func(ctx context.Context, userID string) error
}

func (m *MockOTPStore) Issue(ctx context.Context, otp *models.OTP) error {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, otp)
	}
	return nil
}

func (m *MockOTPStore) Consume(ctx context.Context, userID, code string) (*models.OTP, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, userID, code)
	}
	return nil, models.ErrOTPNotFound
}

func (m *MockOTPStore) Delete(ctx context.Context, userID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return nil
}

// MockPolicyRepository implements PolicyProvider and PolicyRepository for testing
type MockPolicyRepository struct {
	GetTimeWindowPolicyFunc func(ctx context.Context) (*models.TimeWindowPolicy, error)
	SetTimeWindowPolicyFunc func(ctx context.Context, policy *models.TimeWindowPolicy) (*models.TimeWindowPolicy, error)
}

func (m *MockPolicyRepository) GetTimeWindowPolicy(ctx context.Context) (*models.TimeWindowPolicy, error) {
	if m.GetTimeWindowPolicyFunc != nil {
		return m.GetTimeWindowPolicyFunc(ctx)
	}
	return &models.TimeWindowPolicy{}, nil
}

func (m *MockPolicyRepository) SetTimeWindowPolicy(ctx context.Context, policy *models.TimeWindowPolicy) (*models.TimeWindowPolicy, error) {
	if m.SetTimeWindowPolicyFunc != nil {
		return m.SetTimeWindowPolicyFunc(ctx, policy)
	}
	return policy, nil
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	SendOTPFunc             func(ctx context.Context, email, code string, expiresAt time.Time) error
	SendHighRiskWarningFunc func(ctx context.Context, email, username string) error
	SendBlockedNoticeFunc   func(ctx context.Context, email, username string, blockedUntil time.Time) error
	SendTempPasswordFunc    func(ctx context.Context, email, tempPassword string) error
}

func (m *MockNotifier) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, email, code, expiresAt)
	}
	return nil
}

func (m *MockNotifier) SendHighRiskWarning(ctx context.Context, email, username string) error {
	if m.SendHighRiskWarningFunc != nil {
		return m.SendHighRiskWarningFunc(ctx, email, username)
	}
	return nil
}

func (m *MockNotifier) SendBlockedNotice(ctx context.Context, email, username string, blockedUntil time.Time) error {
	if m.SendBlockedNoticeFunc != nil {
		return m.SendBlockedNoticeFunc(ctx, email, username, blockedUntil)
	}
	return nil
}

func (m *MockNotifier) SendTempPassword(ctx context.Context, email, tempPassword string) error {
	if m.SendTempPasswordFunc != nil {
		return m.SendTempPasswordFunc(ctx, email, tempPassword)
	}
	return nil
}
