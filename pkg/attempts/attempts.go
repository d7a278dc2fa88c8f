// Package attempts counts failed logins per email in Redis.
package attempts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker manages failed login counters in Redis. A counter lives for one
// window starting at the first failure.
type Tracker struct {
	redis  *redis.Client
	max    int
	window time.Duration
}

// NewTracker creates a new failed login tracker
func NewTracker(redisClient *redis.Client, max int, window time.Duration) *Tracker {
	return &Tracker{
		redis:  redisClient,
		max:    max,
		window: window,
	}
}

func key(email string) string {
	return fmt.Sprintf("login:failed:%s", strings.ToLower(email))
}

// IsBlocked reports whether the email reached the failure limit in the current window
func (t *Tracker) IsBlocked(ctx context.Context, email string) (bool, error) {
	count, err := t.redis.Get(ctx, key(email)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read login attempts: %w", err)
	}
	return count >= t.max, nil
}

// RegisterFailure increments the counter and returns the new count
func (t *Tracker) RegisterFailure(ctx context.Context, email string) (int64, error) {
	k := key(email)

	count, err := t.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to record login attempt: %w", err)
	}
	if count == 1 {
		if err := t.redis.Expire(ctx, k, t.window).Err(); err != nil {
			return count, fmt.Errorf("failed to set login attempt window: %w", err)
		}
	}
	return count, nil
}

// Reset clears the counter after a successful login
func (t *Tracker) Reset(ctx context.Context, email string) error {
	if err := t.redis.Del(ctx, key(email)).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}
