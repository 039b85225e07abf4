package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces every setting key in Redis.
const RedisKeyPrefix = "sentio:"

const redisOpTimeout = 3 * time.Second

// RedisStore keeps settings as plain Redis strings without expiry.
type RedisStore struct {
	client *redis.Client
}

// Ensure RedisStore implements Store interface.
var _ Store = (*RedisStore)(nil)

// NewRedis connects to Redis at the given URL, e.g. "redis://localhost:6379/0".
func NewRedis(redisURI string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.PoolSize = 4
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = redisOpTimeout
	opt.WriteTimeout = redisOpTimeout

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// DatabaseType returns the database backend name.
func (s *RedisStore) DatabaseType() string {
	return "Redis"
}

// GetSetting retrieves a setting value.
func (s *RedisStore) GetSetting(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	val, err := s.client.Get(ctx, RedisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

// SetSetting saves a setting.
func (s *RedisStore) SetSetting(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, RedisKeyPrefix+key, value, 0).Err()
}

// DeleteSetting removes a setting.
func (s *RedisStore) DeleteSetting(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Del(ctx, RedisKeyPrefix+key).Err()
}
