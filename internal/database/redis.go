package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
)

// NewRedis connects the content cache. A nil client and nil error mean
// caching is disabled in cfg.
func NewRedis(cfg *config.CacheConfig, log zerolog.Logger) (*redis.Client, error) {
	if !cfg.CacheEnabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Info().Str("component", "cache").Str("addr", cfg.RedisAddr).Msg("Redis connection established")
	return client, nil
}
