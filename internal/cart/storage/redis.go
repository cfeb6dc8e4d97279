package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisSnapshots(client *redis.Client) *RedisSnapshots {
	return &RedisSnapshots{
		client:  client,
		baseTTL: 90 * 24 * time.Hour,
	}
}

// RedisSnapshots stores the serialized cart under one key per user.
type RedisSnapshots struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisSnapshots) Load(ctx context.Context, userID string) ([]byte, error) {
	key := snapshotKey(userID)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return data, nil
}

func (r RedisSnapshots) Save(ctx context.Context, userID string, data []byte) error {
	key := snapshotKey(userID)

	jitter := time.Duration(rand.Intn(60)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisSnapshots) Clear(ctx context.Context, userID string) error {
	key := snapshotKey(userID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func snapshotKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
