package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mkarlsen/riskgate/internal/auth"
	"github.com/mkarlsen/riskgate/internal/models"
	"github.com/mkarlsen/riskgate/internal/services"
	pkghttp "github.com/mkarlsen/riskgate/pkg/http"
)

// LoginServiceInterface defines the interface for the login gate business logic
type LoginServiceInterface interface {
	Register(ctx context.Context, input services.RegisterInput) (*models.User, error)
	EvaluateLogin(ctx context.Context, input services.LoginInput) (*services.LoginDecision, error)
	VerifyOTP(ctx context.Context, userID, code string) (*services.MFAResult, error)
	ForgotPassword(ctx context.Context, username string) error
}

// AuthHandler handles registration, login, and MFA HTTP requests
type AuthHandler struct {
	service   LoginServiceInterface
	adminGate *auth.AdminGate
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service LoginServiceInterface, adminGate *auth.AdminGate) *AuthHandler {
	return &AuthHandler{service: service, adminGate: adminGate}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=64"`
	Password  string  `json:"password" validate:"required,min=8,max=128"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address" validate:"max=256"`
	OTPEmail  string  `json:"otp_email" validate:"omitempty,email"`
}

// LoginRequest represents the request body for login. Latitude, longitude,
// delete count and session duration are the client-captured risk signals.
type LoginRequest struct {
	Username        string  `json:"username" validate:"required"`
	Password        string  `json:"password" validate:"required"`
	Latitude        float64 `json:"latitude" validate:"latitude"`
	Longitude       float64 `json:"longitude" validate:"longitude"`
	DeleteCount     int     `json:"delete_count" validate:"gte=0"`
	SessionDuration int     `json:"session_duration" validate:"gte=0"`
}

// VerifyOTPRequest represents the request body for OTP verification. The
// user ID is the one returned by the mfa_required login response.
type VerifyOTPRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required,len=4,numeric"`
}

// ForgotPasswordRequest represents the request body for a password reset
type ForgotPasswordRequest struct {
	Username string `json:"username" validate:"required"`
}

// Response DTOs

// LoginResponse represents the outcome of a scored login attempt
type LoginResponse struct {
	Action       models.Action       `json:"action"`
	Token        string              `json:"token,omitempty"`
	RiskScore    int                 `json:"risk_score"`
	RiskFactors  *models.RiskFactors `json:"risk_factors,omitempty"`
	UserID       string              `json:"user_id,omitempty"`
	OTPEmail     string              `json:"otp_email,omitempty"`
	BlockedUntil *time.Time          `json:"blocked_until,omitempty"`
	Message      string              `json:"message,omitempty"`
}

// VerifyOTPResponse represents a successful OTP verification
type VerifyOTPResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.OTPEmail = strings.ToLower(strings.TrimSpace(req.OTPEmail))

	user, err := h.service.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Location: models.Location{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Address:   req.Address,
		},
		OTPEmail: req.OTPEmail,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "Username is already taken")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, map[string]string{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login handles a scored login attempt
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	// The reserved administrative identity bypasses scoring entirely.
	if h.adminGate != nil && h.adminGate.Match(req.Username, req.Password) {
		token, err := h.adminGate.IssueToken()
		if err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
			Action: models.ActionAccessGranted,
			Token:  token,
		})
		return
	}

	decision, err := h.service.EvaluateLogin(r.Context(), services.LoginInput{
		Username:       req.Username,
		Password:       req.Password,
		Location:       models.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude},
		DeleteCount:    req.DeleteCount,
		SessionSeconds: req.SessionDuration,
		IPAddress:      pkghttp.ExtractClientIP(r),
	})
	if err != nil {
		var timed *models.BlockedUntilError
		switch {
		case errors.As(err, &timed):
			pkghttp.WriteErrorWithDetails(w, http.StatusForbidden, "forbidden",
				"Account is temporarily blocked. Try again later.",
				map[string]interface{}{
					"blocked_until":     timed.Until,
					"remaining_minutes": timed.RemainingMinutes(time.Now()),
				})
		case errors.Is(err, models.ErrAccountBlocked):
			pkghttp.WriteForbidden(w, "Account is blocked. Contact an administrator.")
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid username or password")
		case errors.Is(err, models.ErrMFAUnavailable):
			pkghttp.WriteForbidden(w, "Additional verification is required but no recovery email is registered")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	resp := LoginResponse{
		Action:      decision.Action,
		RiskScore:   decision.RiskScore,
		RiskFactors: &decision.Factors,
	}

	switch decision.Action {
	case models.ActionAccessGranted:
		resp.Token = decision.Token
		pkghttp.WriteJSON(w, http.StatusOK, resp)
	case models.ActionMFARequired:
		resp.UserID = decision.UserID
		resp.OTPEmail = decision.OTPEmail
		resp.Message = "A verification code has been sent to your registered email"
		pkghttp.WriteJSON(w, http.StatusOK, resp)
	case models.ActionBlocked:
		resp.BlockedUntil = decision.BlockedUntil
		resp.Message = "This attempt was assessed as high risk and the account has been temporarily blocked"
		pkghttp.WriteJSON(w, http.StatusForbidden, resp)
	}
}

// VerifyOTP handles redemption of a pending verification code
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.VerifyOTP(r.Context(), strings.TrimSpace(req.UserID), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrOTPInvalidCode):
			remaining := 0
			if result != nil {
				remaining = result.AttemptsRemaining
			}
			pkghttp.WriteErrorWithDetails(w, http.StatusUnauthorized, "unauthorized",
				"Incorrect verification code",
				map[string]interface{}{"attempts_remaining": remaining})
		case errors.Is(err, models.ErrOTPTooManyAttempts):
			pkghttp.WriteTooManyRequests(w, "Too many incorrect attempts. Sign in again to get a new code.")
		case errors.Is(err, models.ErrOTPExpired), errors.Is(err, models.ErrOTPNotFound):
			pkghttp.WriteBadRequest(w, "No pending verification code. Sign in again to get a new one.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyOTPResponse{
		Token:   result.Token,
		Message: "Verification successful",
	})
}

// ForgotPassword handles password reset requests
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ForgotPassword(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrMFAUnavailable):
			pkghttp.WriteBadRequest(w, "No recovery email is registered for this account")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "A temporary password has been sent to your recovery email",
	})
}
