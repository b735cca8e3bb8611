package util

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter 记录某条消息被重新投递的次数，超过上限后转入 DLQ
type RetryCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRetryCounter(rdb *redis.Client, ttl time.Duration) *RetryCounter {
	return &RetryCounter{rdb: rdb, ttl: ttl}
}

// IncrementAndGet increments the retry count for a given key and returns the new count
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// 第一次计数时设置过期
	if count == 1 {
		r.rdb.Expire(ctx, key, r.ttl)
	}

	return count, nil
}

// Reset 处理成功后清零
func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey formats a retry key for a handler and email id
func FormatRetryKey(handler, emailID string) string {
	return fmt.Sprintf("retry:%s:%s", handler, emailID)
}

// LocalRetryCounter 进程内的重试计数，没有 Redis 时使用；重启后清零
type LocalRetryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewLocalRetryCounter() *LocalRetryCounter {
	return &LocalRetryCounter{counts: make(map[string]int64)}
}

func (r *LocalRetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key]++
	return r.counts[key], nil
}

func (r *LocalRetryCounter) Reset(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counts, key)
	return nil
}
