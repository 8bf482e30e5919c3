package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkarlsen/riskgate/internal/models"
	"github.com/mkarlsen/riskgate/internal/services"
	pkghttp "github.com/mkarlsen/riskgate/pkg/http"
)

// AdminServiceInterface defines the interface for the admin console business logic
type AdminServiceInterface interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	SetAccountLock(ctx context.Context, userID string, blocked bool) (*models.User, error)
	ListAccessLogs(ctx context.Context, userID string, limit, offset int) ([]*models.AccessLog, error)
	GetTimeWindows(ctx context.Context) (*models.TimeWindowPolicy, error)
	SetTimeWindows(ctx context.Context, ranges []models.TimeRange) (*models.TimeWindowPolicy, error)
	GetStats(ctx context.Context) (*services.Stats, error)
}

// AdminHandler handles the administrative console HTTP requests
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// TimeRangeRequest is one expected-hours window in a policy update
type TimeRangeRequest struct {
	StartTime string `json:"start_time" validate:"required,len=5"`
	EndTime   string `json:"end_time" validate:"required,len=5"`
}

// SetTimeWindowsRequest represents the request body for a policy replacement.
// An empty range list is a valid policy: it clears every expected-hours
// window and disables the time-of-day signal.
type SetTimeWindowsRequest struct {
	Ranges []TimeRangeRequest `json:"ranges" validate:"max=24,dive"`
}

// SetAccountLockRequest represents the request body for a manual lock change
type SetAccountLockRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

// UserResponse is the admin-facing view of an account
type UserResponse struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	Location     models.Location `json:"registered_location"`
	OTPEmail     *string         `json:"otp_email,omitempty"`
	IsBlocked    bool            `json:"is_blocked"`
	BlockedUntil *time.Time      `json:"blocked_until,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Location:     user.RegisteredLocation,
		OTPEmail:     user.OTPEmail,
		IsBlocked:    user.IsBlocked,
		BlockedUntil: user.BlockedUntil,
		CreatedAt:    user.CreatedAt,
	}
}

// AccessLogResponse is one ledger entry in admin listings
type AccessLogResponse struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id"`
	Username       string             `json:"username"`
	Timestamp      time.Time          `json:"timestamp"`
	Location       models.Coordinates `json:"location"`
	RiskFactors    models.RiskFactors `json:"risk_factors"`
	TotalRiskScore int                `json:"total_risk_score"`
	Action         models.Action      `json:"action"`
	MFACompleted   bool               `json:"mfa_completed"`
	LoginSuccess   bool               `json:"login_success"`
}

func toAccessLogResponse(entry *models.AccessLog) AccessLogResponse {
	return AccessLogResponse{
		ID:             entry.ID,
		UserID:         entry.UserID,
		Username:       entry.Username,
		Timestamp:      entry.Timestamp,
		Location:       entry.Location,
		RiskFactors:    entry.RiskFactors,
		TotalRiskScore: entry.TotalRiskScore,
		Action:         entry.Action,
		MFACompleted:   entry.MFACompleted,
		LoginSuccess:   entry.LoginSuccess,
	}
}

// ListUsers returns the account inventory
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": resp})
}

// SetAccountLock applies or lifts a manual account lock
func (h *AdminHandler) SetAccountLock(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "Missing user id")
		return
	}

	var req SetAccountLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.SetAccountLock(r.Context(), userID, *req.Blocked)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// ListAccessLogs returns ledger entries, optionally filtered to one user
func (h *AdminHandler) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 100)
	userID := r.URL.Query().Get("user_id")

	entries, err := h.service.ListAccessLogs(r.Context(), userID, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := make([]AccessLogResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, toAccessLogResponse(entry))
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"access_logs": resp})
}

// GetTimeWindows returns the current expected-hours policy
func (h *AdminHandler) GetTimeWindows(w http.ResponseWriter, r *http.Request) {
	policy, err := h.service.GetTimeWindows(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, policy)
}

// SetTimeWindows replaces the expected-hours policy
func (h *AdminHandler) SetTimeWindows(w http.ResponseWriter, r *http.Request) {
	var req SetTimeWindowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ranges := make([]models.TimeRange, 0, len(req.Ranges))
	for _, r := range req.Ranges {
		ranges = append(ranges, models.TimeRange{StartTime: r.StartTime, EndTime: r.EndTime})
	}

	policy, err := h.service.SetTimeWindows(r.Context(), ranges)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, policy)
}

// GetStats returns the console dashboard summary
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

func paginationParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
