package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/mkarlsen/riskgate/internal/auth"
	"github.com/mkarlsen/riskgate/internal/metrics"
	"github.com/mkarlsen/riskgate/internal/models"
	"github.com/mkarlsen/riskgate/internal/risk"
	pkgauth "github.com/mkarlsen/riskgate/pkg/auth"
	"github.com/mkarlsen/riskgate/pkg/logger"
)

// UserRepository is the persistence surface the login flow needs.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateBlockStatus(ctx context.Context, id string, blocked bool, blockedUntil *time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// AccessLogRepository appends to and amends the attempt ledger.
type AccessLogRepository interface {
	Create(ctx context.Context, entry *models.AccessLog) (*models.AccessLog, error)
	MarkMFACompleted(ctx context.Context, id string) error
}

// OTPStore manages the per-user pending MFA challenge.
type OTPStore interface {
	Issue(ctx context.Context, otp *models.OTP) error
	Consume(ctx context.Context, userID, code string) (*models.OTP, error)
	Delete(ctx context.Context, userID string) error
}

// PolicyProvider supplies the current expected-hours policy.
type PolicyProvider interface {
	GetTimeWindowPolicy(ctx context.Context) (*models.TimeWindowPolicy, error)
}

// RegisterInput is the material for a new account.
type RegisterInput struct {
	Username string
	Password string
	Location models.Location
	OTPEmail string
}

// LoginInput carries the credentials plus the contextual signals captured by
// the client at submit time.
type LoginInput struct {
	Username       string
	Password       string
	Location       models.Coordinates
	DeleteCount    int
	SessionSeconds int
	IPAddress      string
}

// LoginDecision is the outcome of a scored login attempt. Exactly one of
// the three actions is set; Token is present only on access_granted,
// UserID and OTPEmail only on mfa_required (the verify call is keyed by
// user ID), BlockedUntil only on blocked.
type LoginDecision struct {
	Action       models.Action
	Token        string
	RiskScore    int
	Factors      models.RiskFactors
	UserID       string
	OTPEmail     string
	BlockedUntil *time.Time
}

// LoginConfig carries the deployment-tunable knobs of the login gate. Zero
// values for the OTP fields fall back to the model defaults.
type LoginConfig struct {
	BlockDuration  time.Duration
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

// LoginService runs the scored login pipeline: credential check, lock check,
// password check, risk evaluation, then the decision leg the score selects.
type LoginService struct {
	users      UserRepository
	accessLogs AccessLogRepository
	otps       OTPStore
	policies   PolicyProvider
	notifier   Notifier
	tokens     *auth.TokenManager

	cfg LoginConfig

	audit  *logger.AuditLogger
	logger *slog.Logger
	now    func() time.Time
}

func NewLoginService(
	users UserRepository,
	accessLogs AccessLogRepository,
	otps OTPStore,
	policies PolicyProvider,
	notifier Notifier,
	tokens *auth.TokenManager,
	cfg LoginConfig,
	log *slog.Logger,
) *LoginService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = models.OTPTTL
	}
	if cfg.OTPMaxAttempts <= 0 {
		cfg.OTPMaxAttempts = models.OTPMaxAttempts
	}

	return &LoginService{
		users:      users,
		accessLogs: accessLogs,
		otps:       otps,
		policies:   policies,
		notifier:   notifier,
		tokens:     tokens,
		cfg:        cfg,
		audit:      logger.NewAuditLogger(log),
		logger:     log,
		now:        time.Now,
	}
}

// Register creates an account. The username must be unused; the password is
// stored only as a bcrypt hash.
func (s *LoginService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:           input.Username,
		PasswordHash:       hash,
		RegisteredLocation: input.Location,
	}
	if input.OTPEmail != "" {
		user.OTPEmail = &input.OTPEmail
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", created.ID),
		slog.String("username", created.Username))

	return created, nil
}

// EvaluateLogin runs the full gate for one attempt.
//
// The stages run strictly in order and each failure short-circuits: unknown
// username and wrong password both surface as ErrInvalidCredentials, an
// admin lock as ErrAccountBlocked, an unexpired timed lock as
// *models.BlockedUntilError. An expired timed lock is cleared in place and
// the attempt proceeds. Only attempts that reach risk evaluation produce a
// ledger entry.
func (s *LoginService) EvaluateLogin(ctx context.Context, input LoginInput) (*LoginDecision, error) {
	now := s.now()

	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditFailure(input, "unknown_username")
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	switch user.BlockStateAt(now) {
	case models.BlockAdmin:
		s.auditFailure(input, "admin_block")
		return nil, models.ErrAccountBlocked
	case models.BlockActive:
		s.auditFailure(input, "timed_block")
		return nil, &models.BlockedUntilError{Until: *user.BlockedUntil}
	case models.BlockExpired:
		if err := s.users.UpdateBlockStatus(ctx, user.ID, false, nil); err != nil {
			return nil, fmt.Errorf("failed to clear expired block: %w", err)
		}
		s.audit.LogAccountAction("block_expired", user.ID, nil)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		s.auditFailure(input, "bad_password")
		return nil, models.ErrInvalidCredentials
	}

	policy, err := s.policies.GetTimeWindowPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load time window policy: %w", err)
	}

	assessment := risk.Evaluate(risk.Input{
		RegisteredLocation: user.RegisteredLocation,
		CurrentLocation:    input.Location,
		DeleteCount:        input.DeleteCount,
		SessionSeconds:     input.SessionSeconds,
		LoginTime:          now,
	}, *policy)

	metrics.RecordLoginDecision(string(assessment.Action))

	switch assessment.Action {
	case models.ActionAccessGranted:
		return s.grantAccess(ctx, user, input, assessment, now)
	case models.ActionMFARequired:
		return s.requireMFA(ctx, user, input, assessment, now)
	default:
		return s.blockAccount(ctx, user, input, assessment, now)
	}
}

func (s *LoginService) grantAccess(ctx context.Context, user *models.User, input LoginInput, assessment risk.Assessment, now time.Time) (*LoginDecision, error) {
	if _, err := s.accessLogs.Create(ctx, &models.AccessLog{
		UserID:         user.ID,
		Username:       user.Username,
		Timestamp:      now,
		Location:       input.Location,
		RiskFactors:    assessment.Factors,
		TotalRiskScore: assessment.Total,
		Action:         models.ActionAccessGranted,
		LoginSuccess:   true,
	}); err != nil {
		return nil, fmt.Errorf("failed to record access: %w", err)
	}

	token, err := s.tokens.IssueSessionToken(user.ID, user.Username, false)
	if err != nil {
		return nil, err
	}

	s.audit.LogLoginAttempt(logger.AuditEvent{
		EventType: "login_granted",
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: input.IPAddress,
		RiskScore: assessment.Total,
		Action:    string(models.ActionAccessGranted),
		Success:   true,
	})

	return &LoginDecision{
		Action:    models.ActionAccessGranted,
		Token:     token,
		RiskScore: assessment.Total,
		Factors:   assessment.Factors,
	}, nil
}

func (s *LoginService) requireMFA(ctx context.Context, user *models.User, input LoginInput, assessment risk.Assessment, now time.Time) (*LoginDecision, error) {
	if user.OTPEmail == nil || *user.OTPEmail == "" {
		s.auditFailure(input, "no_otp_email")
		return nil, models.ErrMFAUnavailable
	}

	entry, err := s.accessLogs.Create(ctx, &models.AccessLog{
		UserID:         user.ID,
		Username:       user.Username,
		Timestamp:      now,
		Location:       input.Location,
		RiskFactors:    assessment.Factors,
		TotalRiskScore: assessment.Total,
		Action:         models.ActionMFARequired,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record access: %w", err)
	}

	code, err := generateOTPCode()
	if err != nil {
		return nil, err
	}

	otp := &models.OTP{
		UserID:      user.ID,
		Code:        code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.OTPTTL),
		MaxAttempts: s.cfg.OTPMaxAttempts,
		AccessLogID: entry.ID,
	}
	if err := s.otps.Issue(ctx, otp); err != nil {
		return nil, fmt.Errorf("failed to issue otp: %w", err)
	}

	// Delivery failure is logged but does not undo the challenge: the user
	// can retry the login to get a fresh code.
	if err := s.notifier.SendOTP(ctx, *user.OTPEmail, code, otp.ExpiresAt); err != nil {
		metrics.RecordNotifierFailure("otp")
		s.logger.Error("otp delivery failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	}

	if err := s.notifier.SendHighRiskWarning(ctx, *user.OTPEmail, user.Username); err != nil {
		metrics.RecordNotifierFailure("high_risk_warning")
		s.logger.Error("high risk warning delivery failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	}

	s.audit.LogLoginAttempt(logger.AuditEvent{
		EventType: "login_challenged",
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: input.IPAddress,
		RiskScore: assessment.Total,
		Action:    string(models.ActionMFARequired),
	})

	return &LoginDecision{
		Action:    models.ActionMFARequired,
		RiskScore: assessment.Total,
		Factors:   assessment.Factors,
		UserID:    user.ID,
		OTPEmail:  *user.OTPEmail,
	}, nil
}

func (s *LoginService) blockAccount(ctx context.Context, user *models.User, input LoginInput, assessment risk.Assessment, now time.Time) (*LoginDecision, error) {
	blockedUntil := now.Add(s.cfg.BlockDuration)

	if err := s.users.UpdateBlockStatus(ctx, user.ID, true, &blockedUntil); err != nil {
		return nil, fmt.Errorf("failed to block account: %w", err)
	}

	if _, err := s.accessLogs.Create(ctx, &models.AccessLog{
		UserID:         user.ID,
		Username:       user.Username,
		Timestamp:      now,
		Location:       input.Location,
		RiskFactors:    assessment.Factors,
		TotalRiskScore: assessment.Total,
		Action:         models.ActionBlocked,
	}); err != nil {
		return nil, fmt.Errorf("failed to record access: %w", err)
	}

	if user.OTPEmail != nil && *user.OTPEmail != "" {
		if err := s.notifier.SendBlockedNotice(ctx, *user.OTPEmail, user.Username, blockedUntil); err != nil {
			metrics.RecordNotifierFailure("blocked_notice")
			s.logger.Error("blocked notice delivery failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()))
		}
	}

	s.audit.LogLoginAttempt(logger.AuditEvent{
		EventType: "login_blocked",
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: input.IPAddress,
		RiskScore: assessment.Total,
		Action:    string(models.ActionBlocked),
	})

	return &LoginDecision{
		Action:       models.ActionBlocked,
		RiskScore:    assessment.Total,
		Factors:      assessment.Factors,
		BlockedUntil: &blockedUntil,
	}, nil
}

// MFAResult is a successful OTP verification.
type MFAResult struct {
	Token             string
	AttemptsRemaining int
}

// VerifyOTP redeems the pending challenge for the user the mfa_required
// decision named. On success the originating ledger entry is amended to a
// completed login and a session token is issued. A wrong code returns
// ErrOTPInvalidCode with AttemptsRemaining populated on the result;
// exhausting the budget or letting the code expire is terminal.
func (s *LoginService) VerifyOTP(ctx context.Context, userID, code string) (*MFAResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrOTPNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	otp, err := s.otps.Consume(ctx, user.ID, code)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrOTPInvalidCode):
			metrics.RecordOTPVerification("invalid_code")
			result := &MFAResult{}
			if otp != nil {
				result.AttemptsRemaining = otp.AttemptsRemaining()
			}
			return result, err
		case errors.Is(err, models.ErrOTPTooManyAttempts):
			metrics.RecordOTPVerification("too_many_attempts")
			return nil, err
		case errors.Is(err, models.ErrOTPExpired), errors.Is(err, models.ErrOTPNotFound):
			metrics.RecordOTPVerification("not_found")
			return nil, err
		default:
			return nil, err
		}
	}

	if otp.AccessLogID != "" {
		if err := s.accessLogs.MarkMFACompleted(ctx, otp.AccessLogID); err != nil {
			s.logger.Error("failed to mark mfa completed",
				slog.String("access_log_id", otp.AccessLogID),
				slog.String("error", err.Error()))
		}
	}

	token, err := s.tokens.IssueSessionToken(user.ID, user.Username, false)
	if err != nil {
		return nil, err
	}

	metrics.RecordOTPVerification("success")
	s.audit.LogLoginAttempt(logger.AuditEvent{
		EventType: "mfa_completed",
		UserID:    user.ID,
		Username:  user.Username,
		Success:   true,
	})

	return &MFAResult{Token: token}, nil
}

// ForgotPassword replaces the user's password with a generated temporary one
// and delivers it to the registered recovery address.
func (s *LoginService) ForgotPassword(ctx context.Context, username string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	if user.OTPEmail == nil || *user.OTPEmail == "" {
		return models.ErrMFAUnavailable
	}

	tempPassword, err := pkgauth.GenerateTempPassword()
	if err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(tempPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.notifier.SendTempPassword(ctx, *user.OTPEmail, tempPassword); err != nil {
		metrics.RecordNotifierFailure("temp_password")
		return fmt.Errorf("failed to deliver temporary password: %w", err)
	}

	s.audit.LogAccountAction("password_reset", user.ID, nil)
	return nil
}

func (s *LoginService) auditFailure(input LoginInput, reason string) {
	s.audit.LogLoginAttempt(logger.AuditEvent{
		EventType:     "login_rejected",
		Username:      input.Username,
		IPAddress:     input.IPAddress,
		FailureReason: reason,
	})
}

// generateOTPCode draws a uniform 4-digit code, zero-padded.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
