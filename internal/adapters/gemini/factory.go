package gemini

import (
	"fmt"

	"github.com/mikey/llm-action-extractor/internal/config"
	"github.com/mikey/llm-action-extractor/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates a new GeminiClient
func (f *Factory) CreateClient() (core.LLMClient, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	aiCfg := f.cfg.GetAI()
	return NewGeminiClient(
		geminiCfg.APIKey,
		aiCfg.MaxTokens,
		aiCfg.Temperature,
		aiCfg.TopP,
		f.logger,
	)
}
