package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Ensure RedisLocker implements Locker
var _ Locker = (*RedisLocker)(nil)

// RedisLockerConfig configures a RedisLocker
type RedisLockerConfig struct {
	KeyPrefix     string
	TTL           time.Duration // Upper bound on how long one operation may hold a key
	WaitTimeout   time.Duration
	RetryInterval time.Duration
}

// RedisLocker is a distributed keyed lock for multi-instance deployments
type RedisLocker struct {
	client  *redislock.Client
	cfg     RedisLockerConfig
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewRedisLocker creates a RedisLocker on top of a go-redis client
func NewRedisLocker(client redislock.RedisClient, cfg RedisLockerConfig, logger *zap.Logger, metrics *telemetry.LedgerMetrics) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:  redislock.New(client),
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Acquire takes every key not already held by ctx
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (context.Context, func(), error) {
	return acquireAll(ctx, keys, l.metrics, l.obtain)
}

func (l *RedisLocker) redisKey(key string) string {
	return l.cfg.KeyPrefix + key
}

func (l *RedisLocker) retryStrategy() redislock.RetryStrategy {
	if l.cfg.WaitTimeout <= 0 {
		return redislock.NoRetry()
	}
	attempts := int(l.cfg.WaitTimeout / l.cfg.RetryInterval)
	if attempts < 1 {
		attempts = 1
	}
	return redislock.LimitRetry(redislock.LinearBackoff(l.cfg.RetryInterval), attempts)
}

func (l *RedisLocker) obtain(ctx context.Context, key string) (func(), error) {
	rkey := l.redisKey(key)
	lk, err := l.client.Obtain(ctx, rkey, l.cfg.TTL, &redislock.Options{
		RetryStrategy: l.retryStrategy(),
	})
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) {
			l.logger.Warn("Error obtaining redis lock", zap.String("key", rkey), zap.Error(err))
		}
		return nil, notObtained(key, err)
	}

	return func() {
		// The caller's context may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lk.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release redis lock", zap.String("key", rkey), zap.Error(err))
		}
	}, nil
}
