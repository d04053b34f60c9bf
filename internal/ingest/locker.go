package ingest

import (
	"context"
	"time"

	"callflow-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Locker serializes concurrent webhooks for the same call.
// The returned release func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

const (
	lockTTL   = 10 * time.Second
	lockWait  = 3 * time.Second
	lockRetry = 50 * time.Millisecond
)

// RedisLocker takes a SET NX lock per key with a compare-and-delete release.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: "ingest:lock:"}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token, err := utils.AcquireLock(ctx, l.rdb, k, lockTTL, lockWait, lockRetry)
	if err != nil {
		return nil, err
	}
	return func() {
		// Release even if the request context is already cancelled.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = utils.ReleaseLock(rctx, l.rdb, k, token)
	}, nil
}
