package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/riskgate/internal/auth"
	"github.com/mkarlsen/riskgate/internal/models"
	"github.com/mkarlsen/riskgate/internal/services"
)

func testAdminGate() *auth.AdminGate {
	tm := auth.NewTokenManager("test-secret-32-characters-long!", time.Hour)
	return auth.NewAdminGate("admin", "super-secret-admin-value", tm)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLogin_Granted(t *testing.T) {
	svc := &MockLoginService{
		EvaluateLoginFunc: func(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error) {
			assert.Equal(t, "alice", input.Username)
			assert.Equal(t, 3, input.DeleteCount)
			assert.Equal(t, 20, input.SessionSeconds)
			return &services.LoginDecision{
				Action:    models.ActionAccessGranted,
				Token:     "session-token",
				RiskScore: 8,
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.Login, "/auth/login", map[string]interface{}{
		"username":         "alice",
		"password":         "correct-horse",
		"latitude":         40.7128,
		"longitude":        -74.0060,
		"delete_count":     3,
		"session_duration": 20,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(models.ActionAccessGranted), body["action"])
	assert.Equal(t, "session-token", body["token"])
	assert.Equal(t, float64(8), body["risk_score"])
}

func TestLogin_MFARequired(t *testing.T) {
	svc := &MockLoginService{
		EvaluateLoginFunc: func(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error) {
			return &services.LoginDecision{
				Action:    models.ActionMFARequired,
				RiskScore: 55,
				UserID:    "user-1",
				OTPEmail:  "alice@example.com",
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.Login, "/auth/login", map[string]interface{}{
		"username": "alice",
		"password": "correct-horse",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(models.ActionMFARequired), body["action"])
	assert.Equal(t, "user-1", body["user_id"])
	assert.Equal(t, "alice@example.com", body["otp_email"])
	assert.NotContains(t, body, "token")
}

func TestLogin_BlockedDecision(t *testing.T) {
	until := time.Now().Add(4 * time.Hour)
	svc := &MockLoginService{
		EvaluateLoginFunc: func(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error) {
			return &services.LoginDecision{
				Action:       models.ActionBlocked,
				RiskScore:    86,
				BlockedUntil: &until,
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.Login, "/auth/login", map[string]interface{}{
		"username": "alice",
		"password": "correct-horse",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(models.ActionBlocked), body["action"])
	assert.Contains(t, body, "blocked_until")
	assert.NotContains(t, body, "token")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &MockLoginService{
		EvaluateLoginFunc: func(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error) {
			return nil, models.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.Login, "/auth/login", map[string]interface{}{
		"username": "alice",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_TimedBlockRejection(t *testing.T) {
	until := time.Now().Add(90 * time.Minute)
	svc := &MockLoginService{
		EvaluateLoginFunc: func(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error) {
			return nil, &models.BlockedUntilError{Until: until}
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.Login, "/auth/login", map[string]interface{}{
		"username": "alice",
		"password": "correct-horse",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "remaining_minutes")
}

func TestLogin_AdminBypassSkipsScoring(t *testing.T) {
	svc := &MockLoginService{
		EvaluateLoginFunc: func(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error) {
			t.Fatal("admin credentials must never reach the scored path")
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.Login, "/auth/login", map[string]interface{}{
		"username": "admin",
		"password": "super-secret-admin-value",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
}

func TestLogin_RejectsMissingFields(t *testing.T) {
	h := NewAuthHandler(&MockLoginService{}, testAdminGate())

	rec := postJSON(t, h.Login, "/auth/login", map[string]interface{}{
		"username": "alice",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_Created(t *testing.T) {
	svc := &MockLoginService{
		RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*models.User, error) {
			assert.Equal(t, "bob", input.Username)
			assert.Equal(t, "bob@example.com", input.OTPEmail)
			return &models.User{ID: "user-9", Username: input.Username}, nil
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.Register, "/auth/register", map[string]interface{}{
		"username":  "bob",
		"password":  "long-enough-pass",
		"latitude":  40.7128,
		"longitude": -74.0060,
		"address":   "New York, NY",
		"otp_email": "Bob@Example.com",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "user-9", body["id"])
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc := &MockLoginService{
		RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.Register, "/auth/register", map[string]interface{}{
		"username": "bob",
		"password": "long-enough-pass",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyOTP_Success(t *testing.T) {
	svc := &MockLoginService{
		VerifyOTPFunc: func(ctx context.Context, userID, code string) (*services.MFAResult, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, "4821", code)
			return &services.MFAResult{Token: "session-token"}, nil
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.VerifyOTP, "/auth/verify-otp", map[string]interface{}{
		"user_id": "user-1",
		"code":    "4821",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "session-token", body["token"])
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	svc := &MockLoginService{
		VerifyOTPFunc: func(ctx context.Context, userID, code string) (*services.MFAResult, error) {
			return &services.MFAResult{AttemptsRemaining: 2}, models.ErrOTPInvalidCode
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.VerifyOTP, "/auth/verify-otp", map[string]interface{}{
		"user_id": "user-1",
		"code":    "0000",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), details["attempts_remaining"])
}

func TestVerifyOTP_Exhausted(t *testing.T) {
	svc := &MockLoginService{
		VerifyOTPFunc: func(ctx context.Context, userID, code string) (*services.MFAResult, error) {
			return nil, models.ErrOTPTooManyAttempts
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.VerifyOTP, "/auth/verify-otp", map[string]interface{}{
		"user_id": "user-1",
		"code":    "4821",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestVerifyOTP_RejectsNonNumericCode(t *testing.T) {
	h := NewAuthHandler(&MockLoginService{}, testAdminGate())

	rec := postJSON(t, h.VerifyOTP, "/auth/verify-otp", map[string]interface{}{
		"user_id": "user-1",
		"code":    "abcd",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgotPassword_Success(t *testing.T) {
	svc := &MockLoginService{
		ForgotPasswordFunc: func(ctx context.Context, username string) error {
			assert.Equal(t, "alice", username)
			return nil
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.ForgotPassword, "/auth/forgot-password", map[string]interface{}{
		"username": "alice",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPassword_NoRecoveryEmail(t *testing.T) {
	svc := &MockLoginService{
		ForgotPasswordFunc: func(ctx context.Context, username string) error {
			return models.ErrMFAUnavailable
		},
	}
	h := NewAuthHandler(svc, testAdminGate())

	rec := postJSON(t, h.ForgotPassword, "/auth/forgot-password", map[string]interface{}{
		"username": "alice",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
