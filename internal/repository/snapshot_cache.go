package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mailassist/internal/store"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache 把整个 store 快照存成 Redis 中的一个 key（不过期）
type SnapshotCache struct {
	rdb *redis.Client
	key string
}

func NewSnapshotCache(rdb *redis.Client, key string) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, key: key}
}

func (c *SnapshotCache) Name() string { return "redis" }

func (c *SnapshotCache) Load(ctx context.Context) (*store.Snapshot, error) {
	data, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	var snap store.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (c *SnapshotCache) Save(ctx context.Context, snap *store.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.rdb.Set(ctx, c.key, data, 0).Err()
}

func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
