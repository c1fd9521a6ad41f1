package limiters

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// AttemptStore tracks failed-login counters per key within a time window.
type AttemptStore interface {
	Get(ctx context.Context, key string) (int64, error)
	// Incr increments the counter, starting the window on first increment.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Del(ctx context.Context, key string) error
}

// LoginLimiter blocks login attempts for an email after too many failures
// inside a fixed window. Store outages fail open: availability of login
// is preferred over strict rate enforcement.
type LoginLimiter struct {
	store  AttemptStore
	max    int
	window time.Duration
	logger *zap.Logger
}

// NewLoginLimiter builds a limiter. A nil store disables limiting.
func NewLoginLimiter(store AttemptStore, max int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &LoginLimiter{store: store, max: max, window: window, logger: logger}
}

// Allow reports whether a login attempt for the email may proceed.
func (l *LoginLimiter) Allow(ctx context.Context, email string) bool {
	if l == nil || l.store == nil {
		return true
	}
	count, err := l.store.Get(ctx, attemptKey(email))
	if err != nil {
		l.logger.Warn("login limiter unavailable, allowing attempt", zap.Error(err))
		return true
	}
	return count < int64(l.max)
}

// RecordFailure counts a failed attempt.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) {
	if l == nil || l.store == nil {
		return
	}
	if _, err := l.store.Incr(ctx, attemptKey(email), l.window); err != nil {
		l.logger.Warn("failed to record login attempt", zap.Error(err))
	}
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if l == nil || l.store == nil {
		return
	}
	if err := l.store.Del(ctx, attemptKey(email)); err != nil {
		l.logger.Warn("failed to reset login attempts", zap.Error(err))
	}
}

func attemptKey(email string) string {
	return "auth:login_attempts:" + email
}

// RedisAttemptStore implements AttemptStore on go-redis.
type RedisAttemptStore struct {
	client *redis.Client
}

// NewRedisAttemptStore wraps the client.
func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

func (s *RedisAttemptStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

func (s *RedisAttemptStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (s *RedisAttemptStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
