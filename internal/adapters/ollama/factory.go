package ollama

import (
	"net/http"

	"github.com/mikey/llm-action-extractor/internal/config"
	"go.uber.org/zap"
)

// Factory creates Ollama transports
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Ollama transports
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHTTPClient creates the HTTP transport
func (f *Factory) CreateHTTPClient() *HTTPClient {
	ollamaCfg := f.cfg.GetOllama()
	aiCfg := f.cfg.GetAI()

	return NewHTTPClient(
		ollamaCfg.URL,
		&http.Client{},
		aiCfg.Temperature,
		aiCfg.TopP,
		aiCfg.MaxTokens,
		f.logger,
	)
}

// CreateCLIClient creates the command-line transport
func (f *Factory) CreateCLIClient() *CLIClient {
	ollamaCfg := f.cfg.GetOllama()
	return NewCLIClient(ollamaCfg.Command, ollamaCfg.CommandArgs, f.logger)
}
