package handlers

import (
	"context"

	"github.com/mkarlsen/riskgate/internal/models"
	"github.com/mkarlsen/riskgate/internal/services"
)

// MockLoginService implements LoginServiceInterface for testing
type MockLoginService struct {
	RegisterFunc       func(ctx context.Context, input services.RegisterInput) (*models.User, error)
	EvaluateLoginFunc  func(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error)
	VerifyOTPFunc      func(ctx context.Context, userID, code string) (*services.MFAResult, error)
	ForgotPasswordFunc func(ctx context.Context, username string) error
}

func (m *MockLoginService) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockLoginService) EvaluateLogin(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error) {
	if m.EvaluateLoginFunc != nil {
		return m.EvaluateLoginFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockLoginService) VerifyOTP(ctx context.Context, userID, code string) (*services.MFAResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, userID, code)
	}
	return nil, models.ErrOTPNotFound
}

func (m *MockLoginService) ForgotPassword(ctx context.Context, username string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, username)
	}
	return nil
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	ListUsersFunc      func(ctx context.Context, limit, offset int) ([]*models.User, error)
	SetAccountLockFunc func(ctx context.Context, userID string, blocked bool) (*models.User, error)
	ListAccessLogsFunc func(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error)
	GetTimeWindowsFunc func(ctx context.Context) (*models.TimeWindowPolicy, error)
	SetTimeWindowsFunc func(ctx context.Context, ranges []models.TimeRange) (*models.TimeWindowPolicy, error)
	GetStatsFunc       func(ctx context.Context) (*services.Stats, error)
}

func (m *MockAdminService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockAdminService) SetAccountLock(ctx context.Context, userID string, blocked bool) (*models.User, error) {
	if m.SetAccountLockFunc != nil {
		return m.SetAccountLockFunc(ctx, userID, blocked)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminService) ListAccessLogs(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error) {
	if m.ListAccessLogsFunc != nil {
		return m.ListAccessLogsFunc(ctx, userID, limit, offset)
	}
	return []*models.AccessLog{}, nil
}

func (m *MockAdminService) GetTimeWindows(ctx context.Context) (*models.TimeWindowPolicy, error) {
	if m.GetTimeWindowsFunc != nil {
		return m.GetTimeWindowsFunc(ctx)
	}
	return &models.TimeWindowPolicy{}, nil
}

func (m *MockAdminService) SetTimeWindows(ctx context.Context, ranges []models.TimeRange) (*models.TimeWindowPolicy, error) {
	if m.SetTimeWindowsFunc != nil {
		return m.SetTimeWindowsFunc(ctx, ranges)
	}
	return &models.TimeWindowPolicy{Ranges: ranges}, nil
}

func (m *MockAdminService) GetStats(ctx context.Context) (*services.Stats, error) {
	if m.GetStatsFunc != nil {
		return m.GetStatsFunc(ctx)
	}
	return &services.Stats{}, nil
}
