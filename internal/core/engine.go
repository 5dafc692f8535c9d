package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrAnalysisFailed is returned when even the pattern engine could not produce a result
var ErrAnalysisFailed = errors.New("analysis failed")

// EngineConfig holds the fixed thresholds of the analysis engine
type EngineConfig struct {
	MinTextLength  int
	ChunkThreshold int
	ChunkSize      int
	ContextRadius  int
}

// DefaultEngineConfig returns the standard thresholds
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinTextLength:  10,
		ChunkThreshold: 10000,
		ChunkSize:      2000,
		ContextRadius:  50,
	}
}

// EngineOptions are the resolved routing inputs of one request
type EngineOptions struct {
	Model           string
	UseAI           bool
	UseCache        bool
	FallbackToRegex bool
}

// AnalysisEngine routes text to the AI backend or the pattern engine and
// caches the outcome by fingerprint
type AnalysisEngine struct {
	backend  AIBackend
	patterns PatternEngine
	cache    ResultCache
	recorder MetricsRecorder
	logger   *zap.Logger
	cfg      EngineConfig

	flights singleflight.Group
	perf    performanceTracker

	warmMu sync.Mutex
	warmed map[string]*sync.Once

	cacheMu      sync.Mutex
	cacheEnabled bool
}

// NewAnalysisEngine creates a new analysis engine. backend and recorder may be nil.
func NewAnalysisEngine(
	backend AIBackend,
	patterns PatternEngine,
	cache ResultCache,
	recorder MetricsRecorder,
	logger *zap.Logger,
	cfg EngineConfig,
) *AnalysisEngine {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &AnalysisEngine{
		backend:  backend,
		patterns: patterns,
		cache:    cache,
		recorder: recorder,
		logger:   logger,
		cfg:      cfg,
		warmed:   make(map[string]*sync.Once),

		cacheEnabled: cache != nil,
	}
}

// sliceOutcome is what one uncached pass over a text produced
type sliceOutcome struct {
	items    []DetectedActionItem
	method   AnalysisMethod
	model    string
	language string
	failed   bool
}

// Analyze extracts action items from text. Text shorter than the minimum
// length yields an empty result. AI failures are absorbed by falling back to
// the pattern engine; an error is only returned when that fallback fails too,
// and the returned result is then empty rather than nil.
func (e *AnalysisEngine) Analyze(ctx context.Context, text string, actx *AnalysisContext, opts EngineOptions) (*AnalysisResult, error) {
	start := time.Now()

	if len(strings.TrimSpace(text)) < e.cfg.MinTextLength {
		return emptyResult(text, start, MethodRegex, ModelRegexFallback), nil
	}

	key := Fingerprint(text)
	useCache := opts.UseCache && e.CacheEnabled()

	if useCache {
		if res, ok := e.lookup(ctx, key, start); ok {
			e.observe(res.Metadata.AnalysisMethod, res.Metadata.ProcessingTime, true, false)
			return res, nil
		}
		e.logger.Debug("Cache miss", zap.String("fingerprint", key))
	}

	leader, cached := false, false
	v, err, _ := e.flights.Do(flightKey(key, opts), func() (interface{}, error) {
		leader = true
		// an identical flight may have finished and stored since the miss above
		if useCache {
			if res, ok := e.lookup(ctx, key, start); ok {
				cached = true
				return res, nil
			}
		}
		res, failed, err := e.analyzeFresh(ctx, text, actx, opts, start)
		if err != nil {
			e.observe(res.Metadata.AnalysisMethod, time.Since(start), false, true)
			return res, err
		}
		e.observe(res.Metadata.AnalysisMethod, res.Metadata.ProcessingTime, false, failed)
		if useCache && !failed {
			e.store(ctx, key, res)
		}
		return res, nil
	})

	res := v.(*AnalysisResult).Clone()
	switch {
	case cached:
		e.observe(res.Metadata.AnalysisMethod, res.Metadata.ProcessingTime, true, false)
	case !leader:
		// joined an identical in-flight analysis
		res.Metadata.CacheHit = true
		res.StartedAt = start
		res.Metadata.ProcessingTime = time.Since(start)
		e.observe(res.Metadata.AnalysisMethod, res.Metadata.ProcessingTime, true, err != nil)
	}
	return res, err
}

// lookup returns a copy of the cached result for key marked as a cache hit
func (e *AnalysisEngine) lookup(ctx context.Context, key string, start time.Time) (*AnalysisResult, bool) {
	entry, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	e.logger.Debug("Cache hit", zap.String("fingerprint", key), zap.Int("access_count", entry.AccessCount))
	res := entry.Result.Clone()
	res.Metadata.CacheHit = true
	res.Metadata.ProcessingTime = time.Since(start)
	res.StartedAt = start
	res.CompletedAt = time.Now()
	return res, true
}

// ClearCache drops every cached result
func (e *AnalysisEngine) ClearCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	return e.cache.Clear(ctx)
}

// SetCacheEnabled switches caching on or off. Switching off clears the cache
// before returning, and no insert can land after that.
func (e *AnalysisEngine) SetCacheEnabled(ctx context.Context, enabled bool) error {
	if e.cache == nil {
		return nil
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	e.cacheEnabled = enabled
	if !enabled {
		return e.cache.Clear(ctx)
	}
	return nil
}

// CacheEnabled reports whether results are being cached
func (e *AnalysisEngine) CacheEnabled() bool {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	return e.cacheEnabled
}

func (e *AnalysisEngine) store(ctx context.Context, key string, res *AnalysisResult) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	if !e.cacheEnabled {
		return
	}
	if err := e.cache.Set(ctx, key, res); err != nil {
		e.logger.Error("Failed to update cache", zap.Error(err))
	}
}

// CacheSize reports the number of cached results
func (e *AnalysisEngine) CacheSize() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}

// Metrics returns a snapshot of the running performance aggregate
func (e *AnalysisEngine) Metrics() PerformanceMetrics {
	return e.perf.snapshot()
}

// BackendAvailability reports the AI backend state
func (e *AnalysisEngine) BackendAvailability(ctx context.Context) Availability {
	if e.backend == nil {
		return Availability{}
	}
	return e.backend.CheckAvailability(ctx)
}

// DetectPatterns runs only the pattern engine over text and returns finalized items
func (e *AnalysisEngine) DetectPatterns(text string) ([]DetectedActionItem, error) {
	items, err := e.detect(text)
	if err != nil {
		return nil, err
	}
	return Deduplicate(e.finalize(text, items, MethodRegex, "")), nil
}

func (e *AnalysisEngine) observe(method AnalysisMethod, latency time.Duration, cacheHit, failed bool) {
	e.perf.record(latency, cacheHit, failed)
	e.recorder.ObserveAnalysis(method, latency, cacheHit, failed)
}

// analyzeFresh performs an uncached analysis. failed reports that the AI path
// failed without a permitted fallback, leaving the result empty.
func (e *AnalysisEngine) analyzeFresh(ctx context.Context, text string, actx *AnalysisContext, opts EngineOptions, start time.Time) (*AnalysisResult, bool, error) {
	var (
		items    []DetectedActionItem
		method   AnalysisMethod
		model    string
		language string
		chunked  bool
		failed   bool
	)

	if len(text) > e.cfg.ChunkThreshold {
		chunked = true
		chunks := splitChunks(text, e.cfg.ChunkSize)
		e.logger.Debug("Analyzing chunked text", zap.Int("length", len(text)), zap.Int("chunks", len(chunks)))

		methods := make(map[AnalysisMethod]bool)
		okChunks := 0
		for _, c := range chunks {
			out, err := e.analyzeSlice(ctx, c.text, actx, opts)
			if err != nil {
				e.logger.Error("Chunk analysis failed", zap.Int("offset", c.offset), zap.Error(err))
				continue
			}
			okChunks++
			methods[out.method] = true
			if out.method == MethodAI {
				model = out.model
			}
			if language == "" {
				language = out.language
			}
			failed = failed || out.failed
			for _, item := range out.items {
				item.TextPosition.Start += c.offset
				item.TextPosition.End += c.offset
				items = append(items, item)
			}
		}
		if okChunks == 0 {
			return emptyResult(text, start, MethodRegex, ModelRegexFallback), true, fmt.Errorf("all %d chunks: %w", len(chunks), ErrAnalysisFailed)
		}

		switch {
		case methods[MethodAI] && methods[MethodRegex]:
			method = MethodHybrid
		case methods[MethodAI]:
			method = MethodAI
		default:
			method = MethodRegex
			model = ModelRegexFallback
		}
	} else {
		out, err := e.analyzeSlice(ctx, text, actx, opts)
		if err != nil {
			return emptyResult(text, start, MethodRegex, ModelRegexFallback), true, err
		}
		items, method, model, language, failed = out.items, out.method, out.model, out.language, out.failed
	}

	items = Deduplicate(e.finalize(text, items, method, language))
	if language == "" {
		for _, item := range items {
			if item.Metadata.Language != "" {
				language = item.Metadata.Language
				break
			}
		}
	}

	now := time.Now()
	return &AnalysisResult{
		Items: items,
		Metadata: ResultMetadata{
			ProcessingTime:   now.Sub(start),
			ModelUsed:        model,
			AnalysisMethod:   method,
			TextLength:       len(text),
			DetectedLanguage: language,
			Chunked:          chunked,
		},
		Suggestions: []Suggestion{},
		StartedAt:   start,
		CompletedAt: now,
	}, failed, nil
}

// analyzeSlice runs one uncached pass: AI when permitted and reachable, with
// the pattern engine as fallback
func (e *AnalysisEngine) analyzeSlice(ctx context.Context, text string, actx *AnalysisContext, opts EngineOptions) (sliceOutcome, error) {
	if opts.UseAI && e.backend != nil && opts.Model != "" {
		if e.backend.CheckAvailability(ctx).Running {
			e.warmUp(ctx, opts.Model)

			reply, err := e.backend.Call(ctx, opts.Model, text, actx)
			if err == nil {
				return sliceOutcome{items: reply.Items, method: MethodAI, model: opts.Model, language: reply.Language}, nil
			}
			if !opts.FallbackToRegex {
				e.logger.Error("AI analysis failed and regex fallback is disabled",
					zap.String("model", opts.Model), zap.Error(err))
				return sliceOutcome{method: MethodAI, model: opts.Model, failed: true}, nil
			}
			e.logger.Warn("AI analysis failed, falling back to pattern engine",
				zap.String("model", opts.Model), zap.Error(err))
		} else {
			e.logger.Debug("AI backend not running, using pattern engine")
		}
	}

	items, err := e.detect(text)
	if err != nil {
		return sliceOutcome{}, err
	}
	return sliceOutcome{items: items, method: MethodRegex, model: ModelRegexFallback}, nil
}

// detect calls the pattern engine, turning a panic into ErrAnalysisFailed
func (e *AnalysisEngine) detect(text string) (items []DetectedActionItem, err error) {
	if e.patterns == nil {
		return nil, fmt.Errorf("no pattern engine: %w", ErrAnalysisFailed)
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Pattern engine panicked", zap.Any("panic", r))
			items, err = nil, fmt.Errorf("pattern engine panic: %v: %w", r, ErrAnalysisFailed)
		}
	}()
	return e.patterns.DetectPatterns(text), nil
}

func (e *AnalysisEngine) warmUp(ctx context.Context, model string) {
	e.warmMu.Lock()
	once, ok := e.warmed[model]
	if !ok {
		once = &sync.Once{}
		e.warmed[model] = once
	}
	e.warmMu.Unlock()

	once.Do(func() {
		if err := e.backend.WarmUp(ctx, model); err != nil {
			e.logger.Debug("Model warm-up failed", zap.String("model", model), zap.Error(err))
		}
	})
}

// finalize enforces item invariants against the original text
func (e *AnalysisEngine) finalize(text string, items []DetectedActionItem, method AnalysisMethod, language string) []DetectedActionItem {
	now := time.Now()
	out := make([]DetectedActionItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Content) == "" {
			continue
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.Type = ParseItemType(string(item.Type))
		item.Priority = ParsePriority(string(item.Priority))
		item.Confidence = ClampConfidence(item.Confidence)

		pos := item.TextPosition
		if pos.Start < 0 {
			pos.Start = 0
		}
		if pos.End > len(text) {
			pos.End = len(text)
		}
		if pos.Start > pos.End {
			pos.Start = pos.End
		}
		item.TextPosition = pos
		item.Context = contextWindow(text, pos.Start, pos.End, e.cfg.ContextRadius)

		if item.DetectionMethod == "" {
			item.DetectionMethod = method
		}
		if item.SuggestedTitle == "" {
			item.SuggestedTitle = strings.TrimSpace(item.Content)
		}
		if item.Metadata.Language == "" {
			item.Metadata.Language = language
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		out = append(out, item)
	}
	return out
}

func flightKey(fingerprint string, opts EngineOptions) string {
	return fmt.Sprintf("%s|%s|%t|%t|%t", fingerprint, opts.Model, opts.UseAI, opts.UseCache, opts.FallbackToRegex)
}

func emptyResult(text string, start time.Time, method AnalysisMethod, model string) *AnalysisResult {
	now := time.Now()
	return &AnalysisResult{
		Items:       []DetectedActionItem{},
		Suggestions: []Suggestion{},
		Metadata: ResultMetadata{
			ProcessingTime: now.Sub(start),
			ModelUsed:      model,
			AnalysisMethod: method,
			TextLength:     len(text),
		},
		StartedAt:   start,
		CompletedAt: now,
	}
}
