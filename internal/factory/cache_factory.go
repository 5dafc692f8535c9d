package factory

import (
	"fmt"

	"github.com/mikey/llm-action-extractor/internal/adapters/cache"
	"github.com/mikey/llm-action-extractor/internal/config"
	"go.uber.org/zap"
)

// CacheFactory creates result caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateResultCache creates the bounded in-memory result cache
func (f *CacheFactory) CreateResultCache() (*cache.MemoryCache, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, err
	}
	if cacheCfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("cache max_entries must be positive, got %d", cacheCfg.MaxEntries)
	}
	if cacheCfg.TTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", cacheCfg.TTL)
	}

	f.logger.Info("Creating result cache",
		zap.Duration("ttl", cacheCfg.TTL),
		zap.Int("max_entries", cacheCfg.MaxEntries),
		zap.Duration("cleanup_frequency", cacheCfg.CleanupFrequency))

	return cache.NewMemoryCache(f.logger, cacheCfg.TTL, cacheCfg.MaxEntries, cacheCfg.CleanupFrequency), nil
}

// IsCacheEnabled returns whether caching starts enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}
