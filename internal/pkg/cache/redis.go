package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/reviewhub/internal/config"
	"github.com/Pesokrava/reviewhub/internal/pkg/logger"
)

// Open creates a Redis client and pings it. Short socket timeouts keep a
// slow cache from stalling requests; callers treat cache errors as misses.
func Open(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Connect retries Open until it succeeds, attempts run out or ctx ends
func Connect(ctx context.Context, cfg *config.Config, attempts int, delay time.Duration, log *logger.Logger) (*redis.Client, error) {
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		var client *redis.Client
		client, err = Open(ctx, cfg)
		if err == nil {
			return client, nil
		}

		log.WithFields(logger.Fields{
			"attempt": attempt,
			"addr":    cfg.GetRedisAddr(),
		}).Warnf("Redis not ready: %v", err)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", attempts, err)
}
