package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	t.Cleanup(os.Clearenv)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"SessionTokenExpiry", cfg.Auth.SessionTokenExpiry, 24 * time.Hour},
		{"OTPTTL", cfg.Auth.OTPTTL, 5 * time.Minute},
		{"BlockDuration", cfg.Auth.BlockDuration, 4 * time.Hour},
		{"SweepInterval", cfg.Auth.SweepInterval, 10 * time.Minute},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Auth.OTPMaxAttempts != 5 {
		t.Errorf("OTPMaxAttempts: got %d, want 5", cfg.Auth.OTPMaxAttempts)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr: got %q, want localhost:6379", cfg.Redis.Addr)
	}
	if cfg.Admin.Username != "admin" {
		t.Errorf("Admin.Username: got %q, want admin", cfg.Admin.Username)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("OTP_TTL", "10m")
	os.Setenv("OTP_MAX_ATTEMPTS", "3")
	os.Setenv("BLOCK_DURATION", "2h")
	os.Setenv("REDIS_ADDR", "redis.internal:6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.OTPTTL != 10*time.Minute {
		t.Errorf("OTPTTL: got %v, want 10m", cfg.Auth.OTPTTL)
	}
	if cfg.Auth.OTPMaxAttempts != 3 {
		t.Errorf("OTPMaxAttempts: got %d, want 3", cfg.Auth.OTPMaxAttempts)
	}
	if cfg.Auth.BlockDuration != 2*time.Hour {
		t.Errorf("BlockDuration: got %v, want 2h", cfg.Auth.BlockDuration)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr: got %q, want redis.internal:6380", cfg.Redis.Addr)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with no JWT_SECRET should fail")
	}
}

func TestLoad_WeakJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "short")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with a short JWT_SECRET should fail")
	}
}

func TestLoad_WeakAdminSecret(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("ADMIN_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with a short ADMIN_SECRET should fail")
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("OTP_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.OTPTTL != 5*time.Minute {
		t.Errorf("OTPTTL with invalid value: got %v, want %v", cfg.Auth.OTPTTL, 5*time.Minute)
	}
}
