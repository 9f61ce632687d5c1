package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps locks under "lock:<key>" and results under
// "result:<key>", each with its own TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, "lock:"+key, "1", ttl).Result()
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, "lock:"+key).Err()
}

func (s *RedisStore) GetResult(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, "result:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) SetResult(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, "result:"+key, value, ttl).Err()
}
