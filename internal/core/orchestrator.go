package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxHealthyQueueLength is the backlog at which the queue stops counting as healthy
const maxHealthyQueueLength = 100

// CancelledData is the payload of a cancelled event
type CancelledData struct {
	RequestIDs []string `json:"requestIds"`
}

// OrchestratorOption customizes an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithScheduler replaces the wall-clock scheduler driving the debounce timer
func WithScheduler(s Scheduler) OrchestratorOption {
	return func(o *Orchestrator) {
		o.debouncer = newDebouncer(s)
	}
}

// Orchestrator is the editor-facing surface of the analysis pipeline
type Orchestrator struct {
	engine   *AnalysisEngine
	recorder MetricsRecorder
	logger   *zap.Logger
	defaults AnalysisSettings

	settingsMu sync.RWMutex
	settings   AnalysisSettings

	debouncer *debouncer
	callbacks *registry[ResultCallback]
	listeners *registry[EventListener]

	queueMu sync.Mutex
	queue   requestQueue
	seq     uint64
	idle    chan struct{} // non-nil while a drain runs, closed when it ends
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewOrchestrator creates a new orchestrator around engine with the given
// default settings. recorder may be nil.
func NewOrchestrator(
	engine *AnalysisEngine,
	recorder MetricsRecorder,
	logger *zap.Logger,
	defaults AnalysisSettings,
	opts ...OrchestratorOption,
) *Orchestrator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		engine:    engine,
		recorder:  recorder,
		logger:    logger,
		defaults:  defaults.clone(),
		settings:  defaults.clone(),
		debouncer: newDebouncer(clockScheduler{}),
		callbacks: newRegistry[ResultCallback]("callbacks", logger),
		listeners: newRegistry[EventListener]("listeners", logger),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := engine.SetCacheEnabled(ctx, defaults.CacheEnabled); err != nil {
		logger.Error("Failed to apply cache setting", zap.Error(err))
	}
	return o
}

// AnalyzeText runs one immediate analysis and returns the filtered result.
// It never fails: an engine failure yields a pattern-engine-only result.
func (o *Orchestrator) AnalyzeText(ctx context.Context, text string, actx *AnalysisContext, opts AnalyzeOptions) *AnalysisResult {
	return o.analyze(ctx, uuid.NewString(), text, actx, opts)
}

func (o *Orchestrator) analyze(ctx context.Context, requestID string, text string, actx *AnalysisContext, opts AnalyzeOptions) *AnalysisResult {
	settings := o.GetSettings()
	start := time.Now()
	o.emit(AnalysisEvent{Type: EventStarted, RequestID: requestID})

	if !settings.Enabled {
		res := emptyResult(text, start, MethodRegex, ModelRegexFallback)
		o.emit(AnalysisEvent{Type: EventCompleted, RequestID: requestID, Data: res})
		return res
	}

	res, err := o.engine.Analyze(ctx, text, actx, o.engineOptions(settings, opts))
	if err != nil {
		o.logger.Error("Analysis failed, using pattern engine result",
			zap.String("request_id", requestID), zap.Error(err))
		o.emit(AnalysisEvent{Type: EventError, RequestID: requestID, Error: err.Error()})
		res = o.fallback(text, start)
	}

	res = o.applySettings(res, settings)
	o.emit(AnalysisEvent{Type: EventCompleted, RequestID: requestID, Data: res})
	return res
}

// fallback computes a pattern-engine-only result outside the cache
func (o *Orchestrator) fallback(text string, start time.Time) *AnalysisResult {
	res := emptyResult(text, start, MethodRegex, ModelRegexFallback)
	items, err := o.engine.DetectPatterns(text)
	if err != nil {
		o.logger.Error("Pattern engine fallback failed", zap.Error(err))
		return res
	}
	res.Items = items
	res.CompletedAt = time.Now()
	res.Metadata.ProcessingTime = res.CompletedAt.Sub(start)
	return res
}

func (o *Orchestrator) engineOptions(settings AnalysisSettings, opts AnalyzeOptions) EngineOptions {
	model := opts.Model
	if model == "" {
		model = settings.AIModel
	}
	return EngineOptions{
		Model:           model,
		UseAI:           !opts.DisableAI && model != "",
		UseCache:        settings.CacheEnabled && !opts.DisableCache,
		FallbackToRegex: settings.FallbackToRegex,
	}
}

func (o *Orchestrator) applySettings(res *AnalysisResult, settings AnalysisSettings) *AnalysisResult {
	out := res.Clone()
	out.Items = FilterItems(out.Items, settings)
	out.Suggestions = GenerateSuggestions(out.Items, settings)
	return out
}

// DebouncedAnalysis schedules an analysis after the debounce interval,
// superseding any call still waiting. The result goes to every registered
// callback.
func (o *Orchestrator) DebouncedAnalysis(text string, actx *AnalysisContext, opts AnalyzeOptions) {
	delay := opts.Debounce
	if delay <= 0 {
		delay = o.GetSettings().Debounce
	}
	o.debouncer.Schedule(delay, func() {
		res := o.AnalyzeText(o.ctx, text, actx, opts)
		o.callbacks.each(func(cb ResultCallback) { cb(res) })
	})
}

// DebounceState reports the state of the debounce timer
func (o *Orchestrator) DebounceState() DebounceState {
	return o.debouncer.State()
}

// StartRealTimeAnalysis registers a callback for debounced results
func (o *Orchestrator) StartRealTimeAnalysis(cb ResultCallback) SubscriptionID {
	return o.callbacks.add(cb)
}

// StopRealTimeAnalysis removes the given callbacks. With no ids it removes
// all callbacks and drops any pending debounced analysis.
func (o *Orchestrator) StopRealTimeAnalysis(ids ...SubscriptionID) {
	if len(ids) == 0 {
		o.callbacks.clear()
		o.debouncer.Cancel()
		return
	}
	for _, id := range ids {
		o.callbacks.remove(id)
	}
}

// OnEvent registers a lifecycle event listener
func (o *Orchestrator) OnEvent(l EventListener) SubscriptionID {
	return o.listeners.add(l)
}

// RemoveEventListener removes a lifecycle event listener
func (o *Orchestrator) RemoveEventListener(id SubscriptionID) bool {
	return o.listeners.remove(id)
}

// QueueAnalysis enqueues text for sequential processing and returns its
// request id. After Close it enqueues nothing and returns an empty id.
func (o *Orchestrator) QueueAnalysis(text string, actx *AnalysisContext, priority int) string {
	req := &AnalysisRequest{
		ID:         uuid.NewString(),
		Text:       text,
		Context:    actx,
		EnqueuedAt: time.Now(),
		Priority:   priority,
	}

	o.queueMu.Lock()
	if o.closed {
		o.queueMu.Unlock()
		o.logger.Warn("Analysis queued after close, dropping", zap.String("request_id", req.ID))
		return ""
	}
	o.seq++
	req.seq = o.seq
	o.queue.push(req)
	n := o.queue.Len()
	start := o.idle == nil
	if start {
		o.idle = make(chan struct{})
	}
	o.queueMu.Unlock()

	o.recorder.SetQueueLength(n)
	if start {
		go o.drain()
	}
	return req.ID
}

// drain processes queued requests one at a time until the queue is empty
func (o *Orchestrator) drain() {
	o.logger.Debug("Queue drain started")

	for {
		o.queueMu.Lock()
		req := o.queue.pop()
		if req == nil {
			close(o.idle)
			o.idle = nil
			o.queueMu.Unlock()
			o.logger.Debug("Queue drain finished")
			return
		}
		remaining := o.queue.Len()
		o.queueMu.Unlock()

		o.recorder.SetQueueLength(remaining)
		o.emit(AnalysisEvent{Type: EventProgress, RequestID: req.ID, Data: ProgressData{QueueLength: remaining}})
		o.analyze(o.ctx, req.ID, req.Text, req.Context, AnalyzeOptions{})
	}
}

// QueueLength reports the number of requests waiting
func (o *Orchestrator) QueueLength() int {
	o.queueMu.Lock()
	defer o.queueMu.Unlock()
	return o.queue.Len()
}

// WaitIdle blocks until the queue has been drained
func (o *Orchestrator) WaitIdle() {
	o.queueMu.Lock()
	idle := o.idle
	o.queueMu.Unlock()
	if idle != nil {
		<-idle
	}
}

// CancelAll drops the pending debounced analysis and every queued request.
// Analyses already running are not interrupted.
func (o *Orchestrator) CancelAll() {
	o.debouncer.Cancel()

	o.queueMu.Lock()
	ids := make([]string, 0, o.queue.Len())
	for _, req := range o.queue {
		ids = append(ids, req.ID)
	}
	o.queue = nil
	o.queueMu.Unlock()

	o.recorder.SetQueueLength(0)
	o.logger.Info("Cancelled pending analyses", zap.Int("queued", len(ids)))
	o.emit(AnalysisEvent{Type: EventCancelled, Data: CancelledData{RequestIDs: ids}})
}

// GetSettings returns a copy of the current settings
func (o *Orchestrator) GetSettings() AnalysisSettings {
	o.settingsMu.RLock()
	defer o.settingsMu.RUnlock()
	return o.settings.clone()
}

// UpdateSettings merges u into the current settings and returns the result
func (o *Orchestrator) UpdateSettings(u SettingsUpdate) AnalysisSettings {
	o.settingsMu.Lock()
	defer o.settingsMu.Unlock()

	o.replaceSettings(o.settings.Merge(u))
	return o.settings.clone()
}

// ResetSettings restores the defaults the orchestrator was built with
func (o *Orchestrator) ResetSettings() AnalysisSettings {
	o.settingsMu.Lock()
	defer o.settingsMu.Unlock()

	o.replaceSettings(o.defaults.clone())
	return o.settings.clone()
}

// replaceSettings must be called with settingsMu held
func (o *Orchestrator) replaceSettings(next AnalysisSettings) {
	if next.CacheEnabled != o.settings.CacheEnabled {
		if err := o.engine.SetCacheEnabled(o.ctx, next.CacheEnabled); err != nil {
			o.logger.Error("Failed to apply cache setting", zap.Error(err))
		}
	}
	o.settings = next
	o.logger.Info("Analysis settings updated",
		zap.Bool("enabled", next.Enabled),
		zap.Bool("cache_enabled", next.CacheEnabled),
		zap.String("model", next.AIModel),
		zap.Float64("confidence_threshold", next.ConfidenceThreshold))
}

// ClearCache drops every cached result
func (o *Orchestrator) ClearCache(ctx context.Context) error {
	return o.engine.ClearCache(ctx)
}

// Metrics returns the running performance aggregate
func (o *Orchestrator) Metrics() PerformanceMetrics {
	return o.engine.Metrics()
}

// HealthCheck reports backend reachability, queue backlog and whether
// analysis is enabled
func (o *Orchestrator) HealthCheck(ctx context.Context) HealthReport {
	details := map[string]bool{
		"aiBackend": o.engine.BackendAvailability(ctx).Running,
		"queue":     o.QueueLength() < maxHealthyQueueLength,
		"enabled":   o.GetSettings().Enabled,
	}

	passed := 0
	for _, ok := range details {
		if ok {
			passed++
		}
	}

	status := HealthDegraded
	switch {
	case passed == len(details):
		status = HealthHealthy
	case passed <= 1:
		status = HealthUnhealthy
	}
	return HealthReport{Status: status, Details: details}
}

// Close cancels pending work, aborts in-flight backend calls and refuses
// further queueing
func (o *Orchestrator) Close() {
	o.queueMu.Lock()
	o.closed = true
	o.queueMu.Unlock()

	o.StopRealTimeAnalysis()
	o.CancelAll()
	o.cancel()
	o.WaitIdle()
}

func (o *Orchestrator) emit(event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	o.listeners.each(func(l EventListener) { l(event) })
}
