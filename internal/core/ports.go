package core

import (
	"context"
	"time"
)

// LLMClient is a single completion transport to a language model
type LLMClient interface {
	// Generate sends a prompt to the given model and returns the raw completion text
	Generate(ctx context.Context, model string, prompt string) (string, error)
}

// AIBackend wraps the local inference process behind the canonical item shape
type AIBackend interface {
	// Call analyzes text with the named model and returns validated items
	Call(ctx context.Context, model string, text string, actx *AnalysisContext) (*BackendReply, error)

	// CheckAvailability reports whether the backend is installed and reachable
	CheckAvailability(ctx context.Context) Availability

	// WarmUp primes the model so the first real call is not slowed by a cold load
	WarmUp(ctx context.Context, model string) error
}

// PatternEngine is the deterministic rule-based detector
type PatternEngine interface {
	DetectPatterns(text string) []DetectedActionItem
}

// CacheEntry wraps a cached analysis result
type CacheEntry struct {
	Key         string
	Result      *AnalysisResult
	InsertedAt  time.Time
	AccessCount int
}

// ResultCache stores analysis results keyed by text fingerprint
type ResultCache interface {
	// Get returns the live entry for key and counts the access
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set inserts or replaces the entry for key, evicting if at capacity
	Set(ctx context.Context, key string, result *AnalysisResult) error

	// Delete removes the entry for key
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error

	// Clear removes every entry
	Clear(ctx context.Context) error

	// Len reports the number of stored entries
	Len() int
}

// MetricsRecorder receives per-analysis observations for export
type MetricsRecorder interface {
	ObserveAnalysis(method AnalysisMethod, latency time.Duration, cacheHit bool, failed bool)
	SetQueueLength(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAnalysis(AnalysisMethod, time.Duration, bool, bool) {}
func (nopRecorder) SetQueueLength(int)                                        {}
