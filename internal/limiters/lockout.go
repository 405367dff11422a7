// Package limiters holds the redis-backed failed-attempt accounting used by
// the login flow.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockoutUnavailable indicates the lockout backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// LockoutConfig holds configuration for the account lockout limiter.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	// Window is both the rolling period in which failures accumulate and
	// the lockout duration once the threshold is reached.
	Window time.Duration
}

// LockoutLimiter tracks failed login attempts per account and reports when
// the configured threshold is reached. The counter carries a TTL set on the
// first failure, so a lockout expires on its own.
type LockoutLimiter struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutLimiter creates a new lockout limiter.
func NewLockoutLimiter(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{redis: redisClient, config: cfg}
}

func (l *LockoutLimiter) key(email string) string {
	return "lockout:" + strings.ToLower(email)
}

// IsLocked reports whether the account's failure count has reached the
// threshold within the current window.
func (l *LockoutLimiter) IsLocked(ctx context.Context, email string) (bool, error) {
	if !l.config.Enabled || email == "" {
		return false, nil
	}

	count, err := l.redis.Get(ctx, l.key(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return count >= int64(l.config.Threshold), nil
}

// RecordFailure increments the failure counter for an account.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, email string) error {
	if !l.config.Enabled || email == "" {
		return nil
	}

	count, err := l.redis.Incr(ctx, l.key(email)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if count == 1 && l.config.Window > 0 {
		// TTL on first failure makes the counter a rolling window and lets
		// a lockout clear itself without manual intervention.
		if err := l.redis.Expire(ctx, l.key(email), l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
	}

	return nil
}

// Reset clears the failure counter after a successful login.
func (l *LockoutLimiter) Reset(ctx context.Context, email string) error {
	if !l.config.Enabled || email == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// FailureCount returns the current failure count for an account.
func (l *LockoutLimiter) FailureCount(ctx context.Context, email string) (int, error) {
	if !l.config.Enabled || email == "" {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.key(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}
