package ports

import (
	"context"

	"github.com/mikey/llm-action-extractor/internal/core"
)

// Frontend is a caller-facing surface over the orchestrator
type Frontend interface {
	// Analyze runs one analysis on behalf of the caller
	Analyze(ctx context.Context, text string, actx *core.AnalysisContext) (*core.AnalysisResult, error)

	// Start starts the frontend
	Start() error

	// Stop stops the frontend
	Stop() error
}
