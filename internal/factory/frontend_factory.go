package factory

import (
	"io"

	"github.com/mikey/llm-action-extractor/internal/adapters/frontend"
	"github.com/mikey/llm-action-extractor/internal/config"
	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// FrontendFactory creates caller-facing frontends over the orchestrator
type FrontendFactory struct {
	cfg          *config.Config
	logger       *zap.Logger
	orchestrator *core.Orchestrator
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(cfg *config.Config, logger *zap.Logger, orchestrator *core.Orchestrator) *FrontendFactory {
	return &FrontendFactory{
		cfg:          cfg,
		logger:       logger,
		orchestrator: orchestrator,
	}
}

// CreateHTTPFrontend creates the HTTP frontend on the configured listen address
func (f *FrontendFactory) CreateHTTPFrontend(gatherer prometheus.Gatherer) *frontend.HTTPFrontend {
	return frontend.NewHTTPFrontend(
		f.orchestrator,
		gatherer,
		f.logger.Named("http"),
		f.cfg.GetString("server.listen_address"),
	)
}

// CreateCLIFrontend creates the command-line frontend writing to out
func (f *FrontendFactory) CreateCLIFrontend(out io.Writer) *frontend.CliFrontend {
	return frontend.NewCliFrontend(
		f.orchestrator,
		f.logger,
		out,
		f.cfg.GetBool("cli.verbose"),
		f.cfg.GetBool("cli.json_output"),
	)
}
