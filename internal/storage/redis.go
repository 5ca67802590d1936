package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sstasesores/trainingsoft/internal/platform/cache"
)

const redisKeyPrefix = "trainingsoft:"

// RedisStorage stores records in Redis without expiry.
type RedisStorage struct {
	client *redis.Client
	owned  bool
}

// NewRedisStorage wraps an existing client; Close leaves it open.
func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

// OpenRedis dials addr and verifies the connection.
func OpenRedis(ctx context.Context, addr string) (*RedisStorage, error) {
	client, err := cache.New(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &RedisStorage{client: client, owned: true}, nil
}

func (s *RedisStorage) redisKey(key string) string {
	return redisKeyPrefix + key
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: redis get: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("storage: redis set: %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("storage: redis del: %w", err)
	}
	return nil
}

// Close releases the client when this storage dialed it.
func (s *RedisStorage) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
