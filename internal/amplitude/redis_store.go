package amplitude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisScanBatch = 100

// RedisStore keeps snapshots as JSON strings under "<namespace>:<key>"
type RedisStore struct {
	client    redis.Cmdable
	namespace string
	ttl       time.Duration
}

// NewRedisStore wraps a redis client. A zero ttl keeps snapshots forever.
func NewRedisStore(client redis.Cmdable, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}
}

func (r *RedisStore) key(k string) string {
	return r.namespace + ":" + k
}

func (r *RedisStore) Put(ctx context.Context, key string, values []float64) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]float64, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return values, true, nil
}

// Clear deletes every key in the namespace
func (r *RedisStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.namespace+":*", redisScanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan snapshots: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete snapshots: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
