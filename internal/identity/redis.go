package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/pkg/cache"
)

// RedisCache shares identity blobs between service replicas.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache wraps a connected client.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(slot string) string {
	return cache.Key("identity", slot)
}

func (c *RedisCache) Save(ctx context.Context, slot string, id models.CachedIdentity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key(slot), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("identity: redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Load(ctx context.Context, slot string) (*models.CachedIdentity, error) {
	raw, err := c.client.Get(ctx, key(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("identity: redis get: %w", err)
	}
	var id models.CachedIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("identity: decode: %w", err)
	}
	return &id, nil
}

func (c *RedisCache) Clear(ctx context.Context, slot string) error {
	if err := c.client.Del(ctx, key(slot)).Err(); err != nil {
		return fmt.Errorf("identity: redis del: %w", err)
	}
	return nil
}
