package persistence

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"imagecache-service/internal/storage"
)

// RedisBackend persists records through the shared Redis client wrapper.
// The cache manages its own expiry, so records are stored without a
// Redis-side TTL unless one is configured as a safety net.
type RedisBackend struct {
	client *storage.RedisClient
	ttl    time.Duration
}

func NewRedisBackend(client *storage.RedisClient, ttl time.Duration) *RedisBackend {
	return &RedisBackend{
		client: client,
		ttl:    ttl,
	}
}

func (rb *RedisBackend) Name() string {
	return "REDIS"
}

func (rb *RedisBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := rb.client.Get(ctx, key)
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to get record %s from Redis", key)
	}
	return value, ok, nil
}

func (rb *RedisBackend) SetItem(ctx context.Context, key string, value string) error {
	if err := rb.client.Set(ctx, key, value, rb.ttl); err != nil {
		return errors.Wrapf(err, "failed to store record %s in Redis", key)
	}
	return nil
}

func (rb *RedisBackend) RemoveItem(ctx context.Context, key string) error {
	if err := rb.client.Delete(ctx, key); err != nil {
		return errors.Wrapf(err, "failed to remove record %s from Redis", key)
	}
	return nil
}
