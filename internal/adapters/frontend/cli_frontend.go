package frontend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mikey/llm-action-extractor/internal/core"
	"go.uber.org/zap"
)

// settlePoll is how often Watch checks whether the last debounced analysis ran
const settlePoll = 10 * time.Millisecond

// CliFrontend implements a command-line interface for action item detection
type CliFrontend struct {
	orchestrator *core.Orchestrator
	logger       *zap.Logger
	out          io.Writer
	verbose      bool
	jsonOutput   bool

	mu sync.Mutex
}

// NewCliFrontend creates a new CLI frontend writing to out
func NewCliFrontend(orchestrator *core.Orchestrator, logger *zap.Logger, out io.Writer, verbose bool, jsonOutput bool) *CliFrontend {
	return &CliFrontend{
		orchestrator: orchestrator,
		logger:       logger,
		out:          out,
		verbose:      verbose,
		jsonOutput:   jsonOutput,
	}
}

// Analyze runs one immediate analysis and prints the result
func (f *CliFrontend) Analyze(ctx context.Context, text string, actx *core.AnalysisContext) (*core.AnalysisResult, error) {
	f.logger.Debug("Analyzing text", zap.Int("length", len(text)))

	if !f.jsonOutput {
		fmt.Fprintf(f.out, "\n=== Note Summary ===\n")
		fmt.Fprintf(f.out, "Length: %d bytes\n", len(text))
		if f.verbose {
			preview := text
			if len(preview) > 500 {
				preview = preview[:500] + "..."
			}
			fmt.Fprintf(f.out, "\nPreview:\n%s\n", preview)
		}
	}

	res := f.orchestrator.AnalyzeText(ctx, text, actx, core.AnalyzeOptions{})
	if err := f.print(res); err != nil {
		return res, err
	}
	return res, nil
}

// Watch treats every line read from r as an edit appended to the note and
// runs the debounced analysis over the text so far. It returns once r is
// exhausted and the last debounced analysis has been printed.
func (f *CliFrontend) Watch(ctx context.Context, r io.Reader, actx *core.AnalysisContext) error {
	id := f.orchestrator.StartRealTimeAnalysis(func(res *core.AnalysisResult) {
		if err := f.print(res); err != nil {
			f.logger.Error("Failed to print result", zap.Error(err))
		}
	})
	defer f.orchestrator.StopRealTimeAnalysis(id)

	var note strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		note.WriteString(scanner.Text())
		note.WriteByte('\n')
		f.orchestrator.DebouncedAnalysis(note.String(), actx, core.AnalyzeOptions{})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for f.orchestrator.DebounceState() != core.DebounceIdle {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (f *CliFrontend) print(res *core.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.jsonOutput {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Items: %d\n", len(res.Items))
	fmt.Fprintf(f.out, "Method: %s\n", res.Metadata.AnalysisMethod)
	fmt.Fprintf(f.out, "Model used: %s\n", res.Metadata.ModelUsed)
	fmt.Fprintf(f.out, "Cache hit: %t\n", res.Metadata.CacheHit)
	fmt.Fprintf(f.out, "Processing time: %v\n", res.Metadata.ProcessingTime)

	for i, item := range res.Items {
		fmt.Fprintf(f.out, "\n%d. [%s/%s] %s (confidence %.2f)\n", i+1, item.Type, item.Priority, item.SuggestedTitle, item.Confidence)
		if item.SuggestedAssignee != "" {
			fmt.Fprintf(f.out, "   Assignee: %s\n", item.SuggestedAssignee)
		}
		if item.SuggestedDueDate != nil {
			fmt.Fprintf(f.out, "   Due: %s\n", item.SuggestedDueDate.Format("2006-01-02"))
		}
		if f.verbose {
			fmt.Fprintf(f.out, "   Span: %d-%d\n", item.TextPosition.Start, item.TextPosition.End)
			fmt.Fprintf(f.out, "   Context: %s\n", item.Context)
		}
	}

	if len(res.Suggestions) > 0 {
		fmt.Fprintf(f.out, "\n=== Suggestions ===\n")
		for _, s := range res.Suggestions {
			fmt.Fprintf(f.out, "- %s: %s\n", s.Type, s.Message)
		}
	}
	return nil
}

// Start is a no-op for the CLI frontend
func (f *CliFrontend) Start() error {
	return nil
}

// Stop is a no-op for the CLI frontend
func (f *CliFrontend) Stop() error {
	return nil
}
