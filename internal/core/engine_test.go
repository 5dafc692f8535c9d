package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const testModel = "llama3.2"

func aiOptions() EngineOptions {
	return EngineOptions{Model: testModel, UseAI: true, UseCache: true, FallbackToRegex: true}
}

func regexOptions() EngineOptions {
	return EngineOptions{UseCache: true, FallbackToRegex: true}
}

func newTestEngine(t *testing.T, backend AIBackend, patterns PatternEngine, cache ResultCache) *AnalysisEngine {
	return NewAnalysisEngine(backend, patterns, cache, nil, zaptest.NewLogger(t), DefaultEngineConfig())
}

func TestAnalyze_ShortTextIsEmptyAndUncounted(t *testing.T) {
	patterns := markerPatterns("TODO", 0.9)
	e := newTestEngine(t, nil, patterns, newMapCache())

	res, err := e.Analyze(context.Background(), "  TODO  ", nil, regexOptions())
	require.NoError(t, err)

	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.Equal(t, MethodRegex, res.Metadata.AnalysisMethod)
	assert.Equal(t, int32(0), patterns.calls.Load())
	assert.Equal(t, int64(0), e.Metrics().TotalAnalyses)
}

func TestAnalyze_RepeatedTextIsServedFromCache(t *testing.T) {
	patterns := markerPatterns("TODO", 0.9)
	e := newTestEngine(t, nil, patterns, newMapCache())
	text := "TODO write the quarterly report"

	first, err := e.Analyze(context.Background(), text, nil, regexOptions())
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), text, nil, regexOptions())
	require.NoError(t, err)

	assert.False(t, first.Metadata.CacheHit)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, int32(1), patterns.calls.Load())
	assert.Equal(t, 1, e.CacheSize())

	m := e.Metrics()
	assert.Equal(t, int64(2), m.TotalAnalyses)
	assert.InDelta(t, 0.5, m.CacheHitRate, 1e-9)
}

func TestAnalyze_CachedResultIsNotAliased(t *testing.T) {
	e := newTestEngine(t, nil, markerPatterns("TODO", 0.9), newMapCache())
	text := "TODO write the quarterly report"

	first, err := e.Analyze(context.Background(), text, nil, regexOptions())
	require.NoError(t, err)
	first.Items[0].Content = "changed"

	second, err := e.Analyze(context.Background(), text, nil, regexOptions())
	require.NoError(t, err)
	assert.Equal(t, "TODO", second.Items[0].Content)
}

func TestAnalyze_AIFailureAlwaysFallsBackToRegex(t *testing.T) {
	obsCore, logs := observer.New(zapcore.WarnLevel)
	backend := runningBackend()
	backend.On("Call", mock.Anything, testModel, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	e := NewAnalysisEngine(backend, markerPatterns("TODO", 0.8), newMapCache(), nil, zap.New(obsCore), DefaultEngineConfig())

	for _, text := range []string{"TODO call the plumber", "TODO renew passport", "TODO book dentist"} {
		res, err := e.Analyze(context.Background(), text, nil, aiOptions())
		require.NoError(t, err)
		assert.Equal(t, MethodRegex, res.Metadata.AnalysisMethod)
		assert.Equal(t, ModelRegexFallback, res.Metadata.ModelUsed)
		require.Len(t, res.Items, 1)
		assert.Equal(t, MethodRegex, res.Items[0].DetectionMethod)
	}

	assert.Equal(t, 3, logs.FilterMessage("AI analysis failed, falling back to pattern engine").Len())
	backend.AssertNumberOfCalls(t, "WarmUp", 1)
	assert.Equal(t, 0.0, e.Metrics().ErrorRate)
}

func TestAnalyze_FallbackDisabledYieldsEmptyUncachedResult(t *testing.T) {
	backend := runningBackend()
	backend.On("Call", mock.Anything, testModel, mock.Anything, mock.Anything).
		Return(nil, errors.New("timeout"))
	patterns := markerPatterns("TODO", 0.8)
	e := newTestEngine(t, backend, patterns, newMapCache())

	opts := aiOptions()
	opts.FallbackToRegex = false
	text := "TODO call the plumber"

	res, err := e.Analyze(context.Background(), text, nil, opts)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, MethodAI, res.Metadata.AnalysisMethod)
	assert.Equal(t, 0, e.CacheSize())

	_, err = e.Analyze(context.Background(), text, nil, opts)
	require.NoError(t, err)
	backend.AssertNumberOfCalls(t, "Call", 2)
	assert.Equal(t, int32(0), patterns.calls.Load())
	assert.Equal(t, 1.0, e.Metrics().ErrorRate)
}

func TestAnalyze_AIReplyIsFinalized(t *testing.T) {
	text := "Notes from standup. Please send the invoice to ACME by Monday."
	content := "send the invoice to ACME by Monday"

	backend := runningBackend()
	backend.On("Call", mock.Anything, testModel, text, mock.Anything).Return(&BackendReply{
		Language: "en",
		Items: []DetectedActionItem{{
			Content:      content,
			Type:         "bogus",
			Priority:     "",
			Confidence:   1.7,
			TextPosition: LocateContent(text, content),
		}},
	}, nil)

	e := newTestEngine(t, backend, markerPatterns("TODO", 0.8), newMapCache())
	res, err := e.Analyze(context.Background(), text, nil, aiOptions())
	require.NoError(t, err)

	assert.Equal(t, MethodAI, res.Metadata.AnalysisMethod)
	assert.Equal(t, testModel, res.Metadata.ModelUsed)
	assert.Equal(t, "en", res.Metadata.DetectedLanguage)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, TypeGeneral, item.Type)
	assert.Equal(t, PriorityMedium, item.Priority)
	assert.Equal(t, 1.0, item.Confidence)
	assert.Equal(t, MethodAI, item.DetectionMethod)
	assert.Equal(t, content, text[item.TextPosition.Start:item.TextPosition.End])
	assert.Contains(t, item.Context, content)
	assert.Equal(t, "en", item.Metadata.Language)
	assert.False(t, item.CreatedAt.IsZero())
}

func TestAnalyze_BackendNotRunningUsesPatterns(t *testing.T) {
	backend := &mockBackend{}
	backend.On("CheckAvailability", mock.Anything).Return(Availability{Installed: true, Running: false})
	e := newTestEngine(t, backend, markerPatterns("TODO", 0.8), newMapCache())

	res, err := e.Analyze(context.Background(), "TODO water the plants", nil, aiOptions())
	require.NoError(t, err)

	assert.Equal(t, MethodRegex, res.Metadata.AnalysisMethod)
	backend.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "WarmUp", mock.Anything, mock.Anything)
}

func TestAnalyze_ChunkedOffsetsMapToOriginalText(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.ChunkThreshold = 100
	cfg.ChunkSize = 50

	e := NewAnalysisEngine(nil, markerPatterns("MARKER", 0.9), newMapCache(), nil, zaptest.NewLogger(t), cfg)

	text := strings.Repeat("x", 160) + "MARKER" + strings.Repeat("y", 84)
	res, err := e.Analyze(context.Background(), text, nil, regexOptions())
	require.NoError(t, err)

	assert.True(t, res.Metadata.Chunked)
	assert.Equal(t, MethodRegex, res.Metadata.AnalysisMethod)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 160, res.Items[0].TextPosition.Start)
	assert.Equal(t, 166, res.Items[0].TextPosition.End)
	assert.Equal(t, "MARKER", text[res.Items[0].TextPosition.Start:res.Items[0].TextPosition.End])
}

func TestAnalyze_ChunkedMixedMethodsIsHybrid(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.ChunkThreshold = 20
	cfg.ChunkSize = 15

	text := "first chunk ok.second chunk ok"
	backend := runningBackend()
	backend.On("Call", mock.Anything, testModel, text[:15], mock.Anything).
		Return(&BackendReply{Items: []DetectedActionItem{{Content: "first", Confidence: 0.9, TextPosition: TextPosition{Start: 0, End: 5}}}}, nil)
	backend.On("Call", mock.Anything, testModel, text[15:], mock.Anything).
		Return(nil, errors.New("malformed"))

	e := NewAnalysisEngine(backend, markerPatterns("second", 0.7), newMapCache(), nil, zaptest.NewLogger(t), cfg)
	res, err := e.Analyze(context.Background(), text, nil, aiOptions())
	require.NoError(t, err)

	assert.Equal(t, MethodHybrid, res.Metadata.AnalysisMethod)
	require.Len(t, res.Items, 2)
	for _, item := range res.Items {
		assert.Equal(t, item.Content, text[item.TextPosition.Start:item.TextPosition.End])
	}
}

func TestAnalyze_DuplicatesKeepHigherConfidence(t *testing.T) {
	text := "Call Bob about the lease. Later: call  bob about the lease"
	backend := runningBackend()
	backend.On("Call", mock.Anything, testModel, text, mock.Anything).Return(&BackendReply{
		Items: []DetectedActionItem{
			{Content: "Call Bob about the lease", Confidence: 0.4},
			{Content: "call  bob about the lease", Confidence: 0.9},
		},
	}, nil)

	e := newTestEngine(t, backend, markerPatterns("TODO", 0.8), newMapCache())
	res, err := e.Analyze(context.Background(), text, nil, aiOptions())
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, 0.9, res.Items[0].Confidence)
}

func TestAnalyze_BurstOfIdenticalRequestsRunsOnce(t *testing.T) {
	text := "TODO prepare the slides for Thursday"
	release := make(chan struct{})

	backend := runningBackend()
	backend.On("Call", mock.Anything, testModel, text, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&BackendReply{Items: []DetectedActionItem{{Content: "prepare the slides", Confidence: 0.9}}}, nil)

	e := newTestEngine(t, backend, markerPatterns("TODO", 0.8), newMapCache())

	const burst = 8
	results := make([]*AnalysisResult, burst)
	var wg sync.WaitGroup
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Analyze(context.Background(), text, nil, aiOptions())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	backend.AssertNumberOfCalls(t, "Call", 1)
	fresh := 0
	for _, res := range results {
		require.NotNil(t, res)
		require.Len(t, res.Items, 1)
		if !res.Metadata.CacheHit {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
}

// stallingCache holds the first Get after it has observed a miss until
// release is closed
type stallingCache struct {
	*mapCache
	stalled atomic.Bool
	missed  chan struct{}
	release chan struct{}
}

func (c *stallingCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	entry, err := c.mapCache.Get(ctx, key)
	if c.stalled.CompareAndSwap(false, true) {
		close(c.missed)
		<-c.release
	}
	return entry, err
}

func TestAnalyze_LateIdenticalRequestUsesStoredResult(t *testing.T) {
	text := "TODO renew the parking permit"
	patterns := markerPatterns("TODO", 0.9)
	cache := &stallingCache{
		mapCache: newMapCache(),
		missed:   make(chan struct{}),
		release:  make(chan struct{}),
	}
	e := newTestEngine(t, nil, patterns, cache)

	done := make(chan *AnalysisResult)
	go func() {
		res, err := e.Analyze(context.Background(), text, nil, regexOptions())
		assert.NoError(t, err)
		done <- res
	}()
	<-cache.missed

	first, err := e.Analyze(context.Background(), text, nil, regexOptions())
	require.NoError(t, err)
	assert.False(t, first.Metadata.CacheHit)

	close(cache.release)
	late := <-done

	require.NotNil(t, late)
	assert.True(t, late.Metadata.CacheHit)
	assert.Equal(t, first.Items, late.Items)
	assert.Equal(t, int32(1), patterns.calls.Load())
	assert.Equal(t, int64(2), e.Metrics().TotalAnalyses)
}

func TestAnalyze_PatternPanicIsRecovered(t *testing.T) {
	patterns := &stubPatterns{fn: func(string) []DetectedActionItem { panic("boom") }}
	e := newTestEngine(t, nil, patterns, newMapCache())

	res, err := e.Analyze(context.Background(), "TODO something long enough", nil, regexOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	require.NotNil(t, res)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, e.CacheSize())
	assert.Equal(t, 1.0, e.Metrics().ErrorRate)
}

func TestAnalyze_WarmUpOncePerModel(t *testing.T) {
	backend := runningBackend()
	backend.On("Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&BackendReply{}, nil)
	e := newTestEngine(t, backend, markerPatterns("TODO", 0.8), nil)

	opts := aiOptions()
	opts.UseCache = false
	for _, text := range []string{"first note text", "second note text"} {
		_, err := e.Analyze(context.Background(), text, nil, opts)
		require.NoError(t, err)
	}
	opts.Model = "mistral"
	_, err := e.Analyze(context.Background(), "third note text", nil, opts)
	require.NoError(t, err)

	backend.AssertNumberOfCalls(t, "WarmUp", 2)
	backend.AssertCalled(t, "WarmUp", mock.Anything, testModel)
	backend.AssertCalled(t, "WarmUp", mock.Anything, "mistral")
}

func TestSetCacheEnabled_DisablingClearsAndStopsCaching(t *testing.T) {
	patterns := markerPatterns("TODO", 0.8)
	e := newTestEngine(t, nil, patterns, newMapCache())
	text := "TODO file the expense report"

	_, err := e.Analyze(context.Background(), text, nil, regexOptions())
	require.NoError(t, err)
	require.Equal(t, 1, e.CacheSize())

	require.NoError(t, e.SetCacheEnabled(context.Background(), false))
	assert.Equal(t, 0, e.CacheSize())
	assert.False(t, e.CacheEnabled())

	res, err := e.Analyze(context.Background(), text, nil, regexOptions())
	require.NoError(t, err)
	assert.False(t, res.Metadata.CacheHit)
	assert.Equal(t, 0, e.CacheSize())
	assert.Equal(t, int32(2), patterns.calls.Load())
}
