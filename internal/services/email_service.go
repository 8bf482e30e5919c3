package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/mkarlsen/riskgate/pkg/logger"
)

// Notifier delivers out-of-band messages to users. Delivery failures are
// reported to the caller but never abort the login flow that triggered them.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error
	SendHighRiskWarning(ctx context.Context, email, username string) error
	SendBlockedNotice(ctx context.Context, email, username string, blockedUntil time.Time) error
	SendTempPassword(ctx context.Context, email, tempPassword string) error
}

// AWSSESNotifier sends notification emails using AWS SES
type AWSSESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESNotifier creates a new AWS SES notifier
func NewAWSSESNotifier(region, fromAddress string, log *slog.Logger) (*AWSSESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      log,
	}, nil
}

// SendOTP delivers a verification code for a challenged login.
func (s *AWSSESNotifier) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	minutes := int(time.Until(expiresAt).Round(time.Minute) / time.Minute)

	textBody := fmt.Sprintf(`Your verification code

A sign-in to your account needs additional verification.

Your code: %s

This code expires in %d minutes. If you did not attempt to sign in, change your password immediately.

This is an automated message. Please do not reply to this email.
`, code, minutes)

	return s.send(ctx, email, "Your verification code", textBody)
}

// SendHighRiskWarning tells the user a sign-in attempt scored as anomalous.
func (s *AWSSESNotifier) SendHighRiskWarning(ctx context.Context, email, username string) error {
	textBody := fmt.Sprintf(`Unusual sign-in activity

A sign-in attempt to the account %q looked unusual: it came from an unexpected place, at an unexpected time, or with atypical behavior.

If this was you, no action is needed. If it was not, change your password.

This is an automated message. Please do not reply to this email.
`, username)

	return s.send(ctx, email, "Unusual sign-in activity", textBody)
}

// SendBlockedNotice tells the user their account was blocked after a
// high-risk sign-in attempt.
func (s *AWSSESNotifier) SendBlockedNotice(ctx context.Context, email, username string, blockedUntil time.Time) error {
	textBody := fmt.Sprintf(`Suspicious sign-in blocked

A sign-in attempt to the account %q was assessed as high risk and has been blocked.

Your account is locked until %s. It will unlock automatically after that time.

If this was you, please wait and try again later. If it was not, contact support and change your password once the lock lifts.

This is an automated message. Please do not reply to this email.
`, username, blockedUntil.UTC().Format(time.RFC1123))

	return s.send(ctx, email, "Suspicious sign-in blocked", textBody)
}

// SendTempPassword delivers a replacement password after a reset request.
func (s *AWSSESNotifier) SendTempPassword(ctx context.Context, email, tempPassword string) error {
	textBody := fmt.Sprintf(`Password reset

A password reset was requested for your account. Your temporary password is:

%s

Sign in with it and change your password right away. If you did not request this reset, contact support.

This is an automated message. Please do not reply to this email.
`, tempPassword)

	return s.send(ctx, email, "Your temporary password", textBody)
}

func (s *AWSSESNotifier) send(ctx context.Context, email, subject, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		s.logger.Error("failed to send email",
			slog.String("to", logger.SanitizedEmail(email)),
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("to", logger.SanitizedEmail(email)),
		slog.String("subject", subject))

	return nil
}
