package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikey/llm-action-extractor/internal/core"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a cache entry is not found
	ErrNotFound = errors.New("cache entry not found")
	// ErrExpired is returned when a cache entry has expired
	ErrExpired = errors.New("cache entry expired")
)

// MemoryCache is a bounded in-memory result cache. Entries expire by age;
// when full, expired entries are purged first and then the least accessed
// entry is evicted, the oldest one on a tie.
type MemoryCache struct {
	entries     map[string]*slot
	seq         uint64
	mu          sync.Mutex
	logger      *zap.Logger
	ttl         time.Duration
	maxEntries  int
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// slot is a stored entry plus its insertion sequence
type slot struct {
	core.CacheEntry
	seq uint64
}

// NewMemoryCache creates a new in-memory cache. A positive cleanupFreq starts
// a background sweep of expired entries.
func NewMemoryCache(logger *zap.Logger, ttl time.Duration, maxEntries int, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:     make(map[string]*slot),
		logger:      logger,
		ttl:         ttl,
		maxEntries:  maxEntries,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache
}

// Get retrieves the live entry for key and increments its access counter.
// An expired entry is evicted and reported as ErrExpired.
func (c *MemoryCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}

	if c.expired(entry, c.now()) {
		delete(c.entries, key)
		return nil, ErrExpired
	}

	entry.AccessCount++
	out := entry.CacheEntry
	return &out, nil
}

// Set stores a result under key
func (c *MemoryCache) Set(ctx context.Context, key string, result *core.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.purgeExpired(now)
		if len(c.entries) >= c.maxEntries {
			c.evictLeastAccessed()
		}
	}

	c.seq++
	c.entries[key] = &slot{
		CacheEntry: core.CacheEntry{
			Key:        key,
			Result:     result,
			InsertedAt: now,
		},
		seq: c.seq,
	}
	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiredCount := c.purgeExpired(c.now())
	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Clear removes every entry
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*slot)
	return nil
}

// Len reports the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) expired(entry *slot, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.InsertedAt) >= c.ttl
}

func (c *MemoryCache) purgeExpired(now time.Time) int {
	count := 0
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			count++
		}
	}
	return count
}

func (c *MemoryCache) evictLeastAccessed() {
	var victim *slot
	for _, entry := range c.entries {
		if victim == nil ||
			entry.AccessCount < victim.AccessCount ||
			(entry.AccessCount == victim.AccessCount && entry.seq < victim.seq) {
			victim = entry
		}
	}
	if victim != nil {
		delete(c.entries, victim.Key)
		c.logger.Debug("Evicted cache entry",
			zap.String("fingerprint", victim.Key),
			zap.Int("access_count", victim.AccessCount))
	}
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
