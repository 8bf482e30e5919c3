package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkarlsen/riskgate/internal/auth"
	"github.com/mkarlsen/riskgate/internal/background"
	"github.com/mkarlsen/riskgate/internal/config"
	"github.com/mkarlsen/riskgate/internal/database"
	"github.com/mkarlsen/riskgate/internal/handlers"
	"github.com/mkarlsen/riskgate/internal/metrics"
	middlewareCustom "github.com/mkarlsen/riskgate/internal/middleware"
	"github.com/mkarlsen/riskgate/internal/repositories"
	"github.com/mkarlsen/riskgate/internal/routes"
	"github.com/mkarlsen/riskgate/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Redis (pending OTP challenges)
	redisClient, err := database.NewRedisClient(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	// Register Prometheus collectors
	metrics.Init()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	accessLogRepo := repositories.NewAccessLogRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	otpStore := repositories.NewOTPStore(redisClient)

	// Initialize token manager and admin gate
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)
	adminGate := auth.NewAdminGate(cfg.Admin.Username, cfg.Admin.Secret, tokenManager)
	if !adminGate.Enabled() {
		logger.Warn("admin gate disabled: ADMIN_SECRET not set")
	}

	// AWS SES notifier
	notifier, err := services.NewAWSSESNotifier(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize email notifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	loginService := services.NewLoginService(
		userRepo,
		accessLogRepo,
		otpStore,
		settingsRepo,
		notifier,
		tokenManager,
		services.LoginConfig{
			BlockDuration:  cfg.Auth.BlockDuration,
			OTPTTL:         cfg.Auth.OTPTTL,
			OTPMaxAttempts: cfg.Auth.OTPMaxAttempts,
		},
		logger,
	)
	adminService := services.NewAdminService(userRepo, accessLogRepo, settingsRepo, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginService, adminGate)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Background sweep of expired system blocks
	sweeper := background.NewBlockSweeper(userRepo, logger, cfg.Auth.SweepInterval)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check with database
	healthCheck := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		if err := redisClient.Ping(ctx).Err(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","redis":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}

	// Register routes
	routes.RegisterRoutes(router, authHandler, adminHandler, tokenManager, healthCheck)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background sweep
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
