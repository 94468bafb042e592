package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("lock held by another submission")

// RedisLocker hands out short-lived locks keyed by idempotency key so that two
// concurrent requests carrying the same key do not both reach the order store.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
	log    logrus.FieldLogger
}

// NewRedisLocker returns a locker backed by rdb.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, log logrus.FieldLogger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		prefix: "lock:submission",
		log:    log,
	}
}

// Connect pings addr and returns a client, or an error if Redis is unreachable.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0, // use default DB
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return rdb, nil
}

// Lock obtains the lock for key. The returned release func is safe to call
// once; it logs rather than fails if the lock already expired.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context), error) {
	lockKey := fmt.Sprintf("%s:%s", l.prefix, key)
	lock, err := l.client.Obtain(ctx, lockKey, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrHeld
	} else if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", lockKey, err)
	}

	return func(ctx context.Context) {
		if releaseErr := lock.Release(ctx); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			l.log.WithFields(logrus.Fields{
				"module":   "locks",
				"lock_key": lockKey,
			}).WithError(releaseErr).Warn("failed to release submission lock")
		}
	}, nil
}
