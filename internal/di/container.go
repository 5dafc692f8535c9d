package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-action-extractor/internal/adapters/cache"
	"github.com/mikey/llm-action-extractor/internal/adapters/frontend"
	"github.com/mikey/llm-action-extractor/internal/adapters/pattern"
	"github.com/mikey/llm-action-extractor/internal/config"
	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/mikey/llm-action-extractor/internal/factory"
	"github.com/mikey/llm-action-extractor/internal/logging"
	"github.com/mikey/llm-action-extractor/internal/metrics"
	"github.com/mikey/llm-action-extractor/internal/ports"
	"github.com/mikey/llm-action-extractor/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// BuildContainer creates and configures a dependency injection container
// for the HTTP service
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics registry, exposed on /metrics
	if err := container.Provide(func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		return reg
	}); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register HTTP frontend
	if err := container.Provide(func(f *factory.FrontendFactory, reg *prometheus.Registry) *frontend.HTTPFrontend {
		return f.CreateHTTPFrontend(reg)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *frontend.HTTPFrontend) ports.Frontend {
		return f
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideAnalysis registers everything from the factories down to the
// orchestrator. It expects *config.Config, *zap.Logger and
// *prometheus.Registry to be provided already.
func provideAnalysis(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register metrics recorder
	if err := container.Provide(func(reg *prometheus.Registry) *metrics.Recorder {
		return metrics.NewRecorder(reg)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(r *metrics.Recorder) core.MetricsRecorder {
		return r
	}); err != nil {
		return err
	}

	// Register AI backend, nil when the provider is "none"
	if err := container.Provide(func(f *factory.LLMFactory) (core.AIBackend, error) {
		return f.CreateBackend()
	}); err != nil {
		return err
	}

	// Register pattern engine
	if err := container.Provide(func() core.PatternEngine {
		return pattern.NewEngine(nil)
	}); err != nil {
		return err
	}

	// Register result cache
	if err := container.Provide(func(f *factory.CacheFactory) (*cache.MemoryCache, error) {
		return f.CreateResultCache()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(c *cache.MemoryCache) core.ResultCache {
		return c
	}); err != nil {
		return err
	}

	// Register engine thresholds and default settings
	if err := container.Provide(func(cfg *config.Config) core.EngineConfig {
		return cfg.GetEngine()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config) (core.AnalysisSettings, error) {
		return cfg.GetAnalysisSettings()
	}); err != nil {
		return err
	}

	// Register analysis engine
	if err := container.Provide(core.NewAnalysisEngine); err != nil {
		return err
	}

	// Register orchestrator
	if err := container.Provide(func(
		engine *core.AnalysisEngine,
		recorder core.MetricsRecorder,
		logger *zap.Logger,
		settings core.AnalysisSettings,
	) *core.Orchestrator {
		return core.NewOrchestrator(engine, recorder, logger, settings)
	}); err != nil {
		return err
	}

	return nil
}
