package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper 基于 Redis SETNX 的一次性锁：同一个 handler + key 在 ttl 内只放行一次
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDeduperWithLogger creates a deduper with logger support
func NewDeduperWithLogger(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func dedupKey(handler, key string) string {
	return fmt.Sprintf("dedup:%s:%s", handler, key)
}

// AcquireOnce tries to acquire a dedup lock for a given handler + key.
// returns true if this caller got the lock
// returns false if someone else holds it
func (d *Deduper) AcquireOnce(ctx context.Context, handler, key string) bool {
	k := dedupKey(handler, key)

	ok, err := d.rdb.SetNX(ctx, k, 1, d.ttl).Result()
	if err != nil {
		// Redis 不可用时不阻止处理，返回 true
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("handler", handler),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated run",
			zap.String("handler", handler),
			zap.String("key", key),
			zap.String("dedup_key", k),
		)
	}

	return ok
}

// Release 提前释放锁（处理失败需要允许重试，或批处理已结束）
func (d *Deduper) Release(ctx context.Context, handler, key string) {
	if err := d.rdb.Del(ctx, dedupKey(handler, key)).Err(); err != nil && d.logger != nil {
		d.logger.Warn("Failed to release dedup lock",
			zap.String("handler", handler),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
