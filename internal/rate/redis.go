package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "sfa:"

// RedisStore shares counters across processes through Redis.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	window time.Duration
}

// NewRedisStore creates a Redis-backed counter store. namespace scopes the
// keys (e.g. per installation); window <= 0 keeps counters until deleted.
func NewRedisStore(redisClient redis.UniversalClient, namespace string, window time.Duration) *RedisStore {
	prefix := redisKeyPrefix
	if namespace != "" {
		prefix += namespace + ":"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
		window: window,
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Get(ctx, s.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	count, err := s.redis.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 && s.window > 0 {
		if err := s.redis.Expire(ctx, s.key(key), s.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return count, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
