package core

import (
	"sync"
	"time"
)

// performanceTracker keeps the process-wide PerformanceMetrics aggregate
type performanceTracker struct {
	mu           sync.Mutex
	total        int64
	cacheHits    int64
	errors       int64
	totalLatency time.Duration
}

func (p *performanceTracker) record(latency time.Duration, cacheHit bool, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total++
	p.totalLatency += latency
	if cacheHit {
		p.cacheHits++
	}
	if failed {
		p.errors++
	}
}

func (p *performanceTracker) snapshot() PerformanceMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return PerformanceMetrics{}
	}
	return PerformanceMetrics{
		TotalAnalyses:  p.total,
		AverageLatency: p.totalLatency / time.Duration(p.total),
		CacheHitRate:   float64(p.cacheHits) / float64(p.total),
		ErrorRate:      float64(p.errors) / float64(p.total),
	}
}
