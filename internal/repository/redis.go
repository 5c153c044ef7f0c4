// Package repository provides the run locks guarding at-most-one concurrent
// execution per sync identity.
package repository

import (
	"context"
	"fmt"
	"time"

	"ledgersync/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// RedisLocker holds run locks in redis so workers on different hosts exclude
// each other. The TTL covers a stuck worker: the lock expires and the sync
// becomes runnable again.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func lockKey(syncID int64) string {
	return fmt.Sprintf("sync_lock:%d", syncID)
}

func (r *RedisLocker) Acquire(ctx context.Context, syncID int64, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, lockKey(syncID), time.Now().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	return ok, nil
}

func (r *RedisLocker) Release(ctx context.Context, syncID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, lockKey(syncID)).Err(); err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}
