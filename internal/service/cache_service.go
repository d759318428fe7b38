package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheService exposes the cache to read paths with a feature toggle and a
// uniform TTL. Cache failures degrade to misses so the database stays the
// source of truth.
type CacheService struct {
	store   cacheStore
	enabled bool
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCacheService builds a CacheService. A nil store disables caching.
func NewCacheService(store cacheStore, enabled bool, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		store:   store,
		enabled: enabled && store != nil,
		ttl:     ttl,
		logger:  logger,
	}
}

// Enabled reports whether lookups should consult the cache at all.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled
}

// Get loads a cached value. The bool reports a hit; errors other than a
// miss are logged and reported as misses.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	err := s.store.Get(ctx, key, dest)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, appErrors.ErrCacheMiss) {
		return false, nil
	}
	s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	return false, nil
}

// Set stores a value under the service TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	if !s.Enabled() {
		return nil
	}
	return s.store.Set(ctx, key, value, s.ttl)
}

// Invalidate drops a key after a write.
func (s *CacheService) Invalidate(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	return s.store.Delete(ctx, key)
}
