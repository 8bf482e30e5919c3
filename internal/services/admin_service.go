package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkarlsen/riskgate/internal/models"
	"github.com/mkarlsen/riskgate/pkg/logger"
)

// AdminUserRepository is the persistence surface the admin console needs.
type AdminUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateBlockStatus(ctx context.Context, id string, blocked bool, blockedUntil *time.Time) error
	Counts(ctx context.Context) (total, blocked int64, err error)
}

// AdminAccessLogRepository reads the attempt ledger for reporting.
type AdminAccessLogRepository interface {
	ListRecent(ctx context.Context, limit, offset int) ([]*models.AccessLog, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error)
	ActionCounts(ctx context.Context, since time.Time) (map[models.Action]int64, error)
}

// PolicyRepository stores the admin-tunable expected-hours policy.
type PolicyRepository interface {
	GetTimeWindowPolicy(ctx context.Context) (*models.TimeWindowPolicy, error)
	SetTimeWindowPolicy(ctx context.Context, policy *models.TimeWindowPolicy) (*models.TimeWindowPolicy, error)
}

// AdminService backs the administrative console: user inventory, manual
// lock control, ledger inspection, and policy updates.
type AdminService struct {
	users      AdminUserRepository
	accessLogs AdminAccessLogRepository
	policies   PolicyRepository

	audit  *logger.AuditLogger
	logger *slog.Logger
}

func NewAdminService(users AdminUserRepository, accessLogs AdminAccessLogRepository, policies PolicyRepository, log *slog.Logger) *AdminService {
	return &AdminService{
		users:      users,
		accessLogs: accessLogs,
		policies:   policies,
		audit:      logger.NewAuditLogger(log),
		logger:     log,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.users.List(ctx, limit, offset)
}

// SetAccountLock applies or lifts a manual lock. Admin locks carry no
// deadline; they hold until an admin lifts them. Unlocking clears any
// timed deadline too, so a system block can also be lifted early here.
func (s *AdminService) SetAccountLock(ctx context.Context, userID string, blocked bool) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateBlockStatus(ctx, user.ID, blocked, nil); err != nil {
		return nil, err
	}

	action := "admin_unblock"
	if blocked {
		action = "admin_block"
	}
	s.audit.LogAccountAction(action, user.ID, map[string]string{
		"username": user.Username,
	})

	return s.users.GetByID(ctx, user.ID)
}

func (s *AdminService) ListAccessLogs(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error) {
	if userID != "" {
		return s.accessLogs.ListByUser(ctx, userID, limit, offset)
	}
	return s.accessLogs.ListRecent(ctx, limit, offset)
}

func (s *AdminService) GetTimeWindows(ctx context.Context) (*models.TimeWindowPolicy, error) {
	return s.policies.GetTimeWindowPolicy(ctx)
}

// SetTimeWindows validates and stores a replacement policy. The update is
// wholesale: the stored ranges are exactly the ones supplied.
func (s *AdminService) SetTimeWindows(ctx context.Context, ranges []models.TimeRange) (*models.TimeWindowPolicy, error) {
	policy := &models.TimeWindowPolicy{Ranges: ranges}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.policies.SetTimeWindowPolicy(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to store time window policy: %w", err)
	}

	s.audit.LogAccountAction("time_windows_updated", "admin", map[string]string{
		"range_count": fmt.Sprintf("%d", len(ranges)),
	})

	return updated, nil
}

// Stats summarizes gate activity for the console dashboard.
type Stats struct {
	TotalUsers    int64                   `json:"total_users"`
	BlockedUsers  int64                   `json:"blocked_users"`
	ActionCounts  map[models.Action]int64 `json:"action_counts"`
	WindowStarted time.Time               `json:"window_started"`
}

// GetStats aggregates user counts and ledger outcomes over the past day.
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	total, blocked, err := s.users.Counts(ctx)
	if err != nil {
		return nil, err
	}

	since := time.Now().Add(-24 * time.Hour)
	counts, err := s.accessLogs.ActionCounts(ctx, since)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalUsers:    total,
		BlockedUsers:  blocked,
		ActionCounts:  counts,
		WindowStarted: since,
	}, nil
}
