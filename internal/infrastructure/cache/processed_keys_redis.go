package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/comedor/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "dashboard:processed:"

// RedisProcessedKeyStore implements ProcessedKeyStore using Redis
// so several dashboard instances share one-shot bookkeeping
type RedisProcessedKeyStore struct {
	client    redis.UniversalClient
	keyPrefix string
	owned     bool
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects and pings a Redis server
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisProcessedKeyStore creates a store with an existing Redis client.
// Close does not close a shared client.
func NewRedisProcessedKeyStore(client redis.UniversalClient, keyPrefix string) *RedisProcessedKeyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisProcessedKeyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed uses SETNX with TTL in a single atomic operation
func (s *RedisProcessedKeyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark key as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed checks if a key has already been processed
func (s *RedisProcessedKeyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check processed key: %w", err)
	}
	return exists > 0, nil
}

// Forget deletes a key
func (s *RedisProcessedKeyStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to forget processed key: %w", err)
	}
	return nil
}

// Close closes the client only when the store created it
func (s *RedisProcessedKeyStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

var _ shared.ProcessedKeyStore = (*RedisProcessedKeyStore)(nil)
