package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-action-extractor/internal/adapters/frontend"
	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/mikey/llm-action-extractor/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(
		logger *zap.Logger,
		cli *frontend.CliFrontend,
		orchestrator *core.Orchestrator,
		backend core.AIBackend,
	) error {
		defer logger.Sync()
		defer orchestrator.Close()
		if closer, ok := backend.(interface{ Close() error }); ok {
			defer closer.Close()
		}
		return run(flags, logger, cli)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *di.CLIFlags, logger *zap.Logger, cli *frontend.CliFrontend) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Read the note from file or stdin
	var input io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
		logger.Info("Reading note from file", zap.String("file", flags.InputFile))
	} else {
		input = os.Stdin
		logger.Info("Reading note from stdin")
	}

	if flags.Watch {
		return cli.Watch(ctx, input, nil)
	}

	text, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("failed to read note: %w", err)
	}
	_, err = cli.Analyze(ctx, string(text), nil)
	return err
}
