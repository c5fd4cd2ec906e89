package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// FailureTracker counts failed logins per email over a sliding window.
type FailureTracker interface {
	RecordFailure(ctx context.Context, email string) (int64, error)
	Reset(ctx context.Context, email string) error
}

type RedisFailureTracker struct {
	client redis.Cmdable
	window time.Duration
}

func NewRedisFailureTracker(client redis.Cmdable, window time.Duration) *RedisFailureTracker {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisFailureTracker{client: client, window: window}
}

func failureKey(email string) string {
	return "login_failures:" + strings.ToLower(email)
}

// RecordFailure increments the counter; the window starts on the first
// failure and is not extended by later ones.
func (t *RedisFailureTracker) RecordFailure(ctx context.Context, email string) (int64, error) {
	key := failureKey(email)

	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return count, fmt.Errorf("expire login failures: %w", err)
		}
	}
	return count, nil
}

func (t *RedisFailureTracker) Reset(ctx context.Context, email string) error {
	if err := t.client.Del(ctx, failureKey(email)).Err(); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

type noopFailureTracker struct{}

func (noopFailureTracker) RecordFailure(context.Context, string) (int64, error) { return 0, nil }
func (noopFailureTracker) Reset(context.Context, string) error                   { return nil }
