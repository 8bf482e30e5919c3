package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkarlsen/riskgate/internal/auth"
	"github.com/mkarlsen/riskgate/internal/handlers"
	"github.com/mkarlsen/riskgate/internal/metrics"
	"github.com/mkarlsen/riskgate/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	healthCheck http.HandlerFunc,
) {
	loginLimit := middleware.DefaultLoginRateLimit()
	otpLimit := middleware.DefaultOTPRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(loginLimit)).Post("/auth/register", authHandler.Register)
	router.With(middleware.RateLimitByIP(loginLimit)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(otpLimit)).Post("/auth/verify-otp", authHandler.VerifyOTP)
	router.With(middleware.RateLimitByIP(loginLimit)).Post("/auth/forgot-password", authHandler.ForgotPassword)

	router.Get("/health", healthCheck)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Admin console - requires a token carrying the admin claim
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))
		r.Use(auth.RequireAdmin)

		r.Get("/admin/users", adminHandler.ListUsers)
		r.Put("/admin/users/{id}/lock", adminHandler.SetAccountLock)
		r.Get("/admin/access-logs", adminHandler.ListAccessLogs)
		r.Get("/admin/settings/time-windows", adminHandler.GetTimeWindows)
		r.Put("/admin/settings/time-windows", adminHandler.SetTimeWindows)
		r.Get("/admin/stats", adminHandler.GetStats)
	})
}
