package repository

import (
	"context"
	"errors"
	"fmt"

	"ShredPull/internal/domain/models"
	"ShredPull/internal/domain/repository"
	"ShredPull/pkg/cache"
)

// CachePoolSource reads the arbitrage pool registry from a cache key. When
// the key is missing the static addresses it was built with are stored
// under it and returned, so the registry is only seeded by a pipeline that
// loads it.
type CachePoolSource struct {
	cache  cache.Service
	key    string
	static []models.Pool
}

func NewCachePoolSource(c cache.Service, key string, static []string) repository.PoolSource {
	pools := make([]models.Pool, 0, len(static))
	for _, addr := range static {
		pools = append(pools, models.Pool{Address: addr})
	}
	return &CachePoolSource{cache: c, key: key, static: pools}
}

func (s *CachePoolSource) LoadPools(ctx context.Context) ([]models.Pool, error) {
	if s.cache == nil {
		return s.static, nil
	}
	var pools []models.Pool
	err := s.cache.Get(ctx, s.key, &pools)
	switch {
	case err == nil:
		return pools, nil
	case errors.Is(err, cache.ErrCacheMiss):
		if len(s.static) == 0 {
			return s.static, nil
		}
		if err := s.cache.Set(ctx, s.key, s.static, 0); err != nil {
			return nil, fmt.Errorf("seed pools %q: %w", s.key, err)
		}
		return s.static, nil
	default:
		return nil, fmt.Errorf("read pools %q: %w", s.key, err)
	}
}
