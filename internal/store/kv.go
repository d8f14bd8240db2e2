package store

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned by KeyValue.Get when no value exists for the key.
var ErrNotFound = errors.New("store: key not found")

// KeyValue is the durable medium behind the answer cache. Production uses
// Redis; tests substitute an in-memory fake.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

type redisKV struct {
	client *redis.Client
}

// NewRedisKeyValue wraps a Redis client as the durable answer medium.
func NewRedisKeyValue(client *redis.Client) KeyValue {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisKV) Set(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *redisKV) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
