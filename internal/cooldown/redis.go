package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eduresolve/support-platform/internal/lifecycle"
)

const keyPrefix = "suggestion_cooldown:"

// Redis is a Limiter shared by every API instance.
type Redis struct {
	client *redis.Client
	window time.Duration
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client, window time.Duration) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Redis{client: client, window: window}
}

// Acquire implements Limiter with SET NX so concurrent requests cannot both win.
func (r *Redis) Acquire(ctx context.Context, key string) error {
	k := keyPrefix + key

	acquired, err := r.client.SetNX(ctx, k, "1", r.window).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire cooldown: %w", err)
	}
	if acquired {
		return nil
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("failed to read cooldown ttl: %w", err)
	}
	if ttl <= 0 {
		// Expired between the two calls.
		ttl = time.Millisecond
	}
	return &lifecycle.CooldownError{RetryAfter: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
