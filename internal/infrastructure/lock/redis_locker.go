package lock

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"referralhub/internal/bootstrap/logging"
	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

const (
	redisLockPrefix   = "lock:"
	redisRetryBackoff = 100 * time.Millisecond
	redisRetryLimit   = 50
)

// RedisLocker holds keys across processes sharing one redis.
type RedisLocker struct {
	client *redislock.Client
}

var _ ports.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(client)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	held, err := l.client.Obtain(ctx, redisLockPrefix+key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(redisRetryBackoff), redisRetryLimit),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, ports.ErrLockNotObtained
	}
	if err != nil {
		return nil, errs.Wrap(err, "obtain redis lock")
	}

	return func() {
		// Release on a fresh context so a cancelled request still frees the key.
		if err := held.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logging.Warn(ctx, "release redis lock failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
		}
	}, nil
}
