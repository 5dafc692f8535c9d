package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-action-extractor/internal/adapters/cache"
	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/mikey/llm-action-extractor/internal/di"
	"github.com/mikey/llm-action-extractor/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	frontend ports.Frontend,
	orchestrator *core.Orchestrator,
	backend core.AIBackend,
	resultCache *cache.MemoryCache,
) error {
	defer logger.Sync()

	errCh := make(chan error, 1)
	go func() {
		errCh <- frontend.Start()
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Error("Frontend stopped", zap.Error(err))
			return err
		}
	}

	// Stop the frontend
	if err := frontend.Stop(); err != nil {
		logger.Error("Failed to stop frontend", zap.Error(err))
	}

	orchestrator.Close()

	// Close any resources that need closing
	if closer, ok := backend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close AI backend", zap.Error(err))
		}
	}

	resultCache.Stop()

	logger.Info("Shutdown complete")
	return nil
}
