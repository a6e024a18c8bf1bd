package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrBackendUnavailable wraps I/O failures of a remote backend.
var ErrBackendUnavailable = errors.New("token backend unavailable")

// RedisKV stores sealed entries in Redis under "ats:<namespace>:<key>".
// Entries carry no TTL; expiry is enforced by the [Store].
type RedisKV struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisKV creates a Redis backend. namespace usually identifies the device.
func NewRedisKV(redisClient redis.UniversalClient, namespace string) *RedisKV {
	prefix := "ats:"
	if namespace != "" {
		prefix += namespace + ":"
	}
	return &RedisKV{redis: redisClient, prefix: prefix}
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.redis.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
