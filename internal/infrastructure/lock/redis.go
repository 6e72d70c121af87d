// Package lock provides the per-document advisory lock used by the pipeline.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/resper/paperless-onS/internal/core/domain"
)

const (
	keyPrefix        = "paperless-ons:document:"
	defaultWait      = 30 * time.Second
	retryBackoffStep = 500 * time.Millisecond
)

// RedisLocker serialises runs for the same document across instances.
type RedisLocker struct {
	locker *redislock.Client
	wait   time.Duration
	logger *slog.Logger
}

// NewRedisLocker waits up to wait for a held lock before giving up.
func NewRedisLocker(client redis.UniversalClient, wait time.Duration, logger *slog.Logger) *RedisLocker {
	if wait <= 0 {
		wait = defaultWait
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{locker: redislock.New(client), wait: wait, logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, documentID int, ttl time.Duration) (func(), error) {
	retries := int(l.wait / retryBackoffStep)
	lock, err := l.locker.Obtain(ctx, Key(documentID), ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryBackoffStep), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.WrapError(domain.ErrConflict, "lock document", fmt.Errorf("document %d is being processed elsewhere", documentID))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "lock document", err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("document_lock_release_failed", "document_id", documentID, "error", err)
		}
	}, nil
}

func Key(documentID int) string {
	return keyPrefix + strconv.Itoa(documentID)
}

// Noop is used when no Redis is configured: concurrent runs stay last-write-wins.
type Noop struct{}

func (Noop) Lock(context.Context, int, time.Duration) (func(), error) {
	return func() {}, nil
}
