package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkarlsen/riskgate/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the OTP ledger's backing store and verifies the
// connection before returning.
func NewRedisClient(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	logger.Info("redis connection established", slog.String("addr", cfg.Addr))
	return client, nil
}
