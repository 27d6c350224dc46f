package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/configs"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when no address is configured; callers fall
// back to in-process state.
func NewRedisClient(ctx context.Context, cfg configs.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
