package factory

import (
	"fmt"

	"github.com/mikey/llm-action-extractor/internal/adapters/backend"
	"github.com/mikey/llm-action-extractor/internal/adapters/bedrock"
	"github.com/mikey/llm-action-extractor/internal/adapters/gemini"
	"github.com/mikey/llm-action-extractor/internal/adapters/ollama"
	"github.com/mikey/llm-action-extractor/internal/adapters/openai"
	"github.com/mikey/llm-action-extractor/internal/config"
	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/mikey/llm-action-extractor/internal/utils"
	"go.uber.org/zap"
)

// ProviderNone disables the AI backend; every analysis uses the pattern engine
const ProviderNone = "none"

// LLMFactory creates the AI backend
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates the primary transport for the configured provider
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	provider := f.cfg.GetAI().Provider

	switch provider {
	case "ollama":
		return ollama.NewFactory(f.cfg, f.logger).CreateHTTPClient(), nil
	case "ollama-cli":
		return ollama.NewFactory(f.cfg, f.logger).CreateCLIClient(), nil
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateClient()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateClient()
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", provider)
	}
}

// CreateBackend creates the AI backend. Local Ollama servers get the
// command-line transport as fallback. With provider "none" it returns a nil
// backend.
func (f *LLMFactory) CreateBackend() (core.AIBackend, error) {
	aiCfg := f.cfg.GetAI()
	if aiCfg.Provider == ProviderNone {
		f.logger.Info("AI backend disabled, using pattern engine only")
		return nil, nil
	}

	// unchunked notes go to the backend whole, so it must accept up to the chunk threshold
	threshold := f.cfg.GetEngine().ChunkThreshold
	if aiCfg.MaxTextSize > 0 && aiCfg.MaxTextSize < threshold {
		return nil, fmt.Errorf("ai.max_text_size %d is below analysis.chunk_threshold %d", aiCfg.MaxTextSize, threshold)
	}

	primary, err := f.CreateLLMClient()
	if err != nil {
		return nil, err
	}

	var fallback core.LLMClient
	if aiCfg.Provider == "ollama" {
		fallback = ollama.NewFactory(f.cfg, f.logger).CreateCLIClient()
	}

	f.logger.Info("Creating AI backend",
		zap.String("provider", aiCfg.Provider),
		zap.String("model", aiCfg.Model),
		zap.Bool("cli_fallback", fallback != nil))

	return backend.NewBackend(primary, fallback, f.textProcessor, f.logger, backend.Config{
		Timeout:         aiCfg.Timeout,
		MaxTextSize:     aiCfg.MaxTextSize,
		AvailabilityTTL: aiCfg.AvailabilityTTL,
	}), nil
}
