package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedisClient connects to the redis holding feature flags and rate limit counters.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Connected to Redis")

	return client, nil
}

func CloseRedis(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis connection")
		return
	}
	log.Info().Msg("Closed Redis connection")
}

// Key prefixes. Flags are shared with the chat gateway, which reads the same keys.
const (
	KeyPrefixSettings  = "settings:"
	KeyPrefixRateLimit = "ratelimit:"
)

// GetFlag reads a boolean setting. found is false when the key is not set.
func GetFlag(ctx context.Context, client *redis.Client, name string) (value bool, found bool, err error) {
	value, err = client.Get(ctx, KeyPrefixSettings+name).Bool()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return value, true, nil
}

func SetFlag(ctx context.Context, client *redis.Client, name string, value bool) error {
	return client.Set(ctx, KeyPrefixSettings+name, value, 0).Err()
}

// IncrementRateLimit bumps the counter for key and starts its window on first use.
func IncrementRateLimit(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, error) {
	fullKey := KeyPrefixRateLimit + key
	pipe := client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
