package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/comedor/backend/internal/domain/shared"
	"github.com/comedor/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordination bundles the processed-key store and the day-close locker
type Coordination struct {
	Keys   shared.ProcessedKeyStore
	Locker Locker
	client *redis.Client
}

// Distributed reports whether state is shared through Redis
func (c *Coordination) Distributed() bool {
	return c.client != nil
}

// Close releases the store and the Redis connection
func (c *Coordination) Close() error {
	var errs []error
	if c.Keys != nil {
		errs = append(errs, c.Keys.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Factory creates coordination backends based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory state when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemory creates single-instance coordination
func (f *Factory) CreateInMemory() *Coordination {
	return &Coordination{
		Keys:   NewInMemoryProcessedKeyStore(),
		Locker: NewLocalLocker(),
	}
}

// Create uses Redis when enabled and reachable, otherwise in-memory state
func (f *Factory) Create(ctx context.Context) (*Coordination, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory processed keys and local lock")
		return f.CreateInMemory(), nil
	}

	client, err := NewRedisClient(ctx, RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis processed keys and day-close lock",
			zap.String("addr", f.redisConfig.Addr()),
		)
		return &Coordination{
			Keys:   NewRedisProcessedKeyStore(client, f.redisConfig.KeyPrefix),
			Locker: NewRedisLocker(client, f.redisConfig.KeyPrefix+"lock:"),
			client: client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory processed keys. "+
		"Several instances may then close the same day.",
		zap.Error(err),
	)
	return f.CreateInMemory(), nil
}
