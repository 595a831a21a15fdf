package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/clubdeportivo/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const redisConnectTimeout = 5 * time.Second

// IdempotencyStoreFactory picks an idempotency store from configuration
type IdempotencyStoreFactory struct {
	redisConfig  config.RedisConfig
	requireRedis bool
	logger       *zap.Logger
}

// IdempotencyStoreFactoryOption is a functional option for the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithRequireRedis turns a Redis failure into a startup error instead of
// falling back to memory
func WithRequireRedis(required bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.requireRedis = required
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is configured and reachable,
// and an in-memory store otherwise unless Redis is required.
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	if !f.redisConfig.Enabled() {
		if f.requireRedis {
			return nil, fmt.Errorf("redis is required for event idempotency but no host is configured")
		}
		f.logger.Info("redis not configured, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()

	store, err := NewRedisIdempotencyStore(connectCtx, f.redisConfig)
	if err == nil {
		f.logger.Info("using redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}
	if f.requireRedis {
		return nil, fmt.Errorf("redis required for event idempotency: %w", err)
	}

	f.logger.Warn("redis unavailable, falling back to in-memory idempotency store; "+
		"events may be handled twice across instances",
		zap.String("addr", f.redisConfig.Addr()),
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
