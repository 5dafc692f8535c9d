package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/mikey/llm-action-extractor/internal/utils"
	"go.uber.org/zap"
)

// Pinger is implemented by transports that can ping their endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// Installer is implemented by transports backed by a local executable
type Installer interface {
	Installed() bool
}

// Config holds the backend adapter limits
type Config struct {
	Timeout         time.Duration
	MaxTextSize     int
	AvailabilityTTL time.Duration
}

// Backend implements core.AIBackend over a primary transport with an
// optional fallback transport that is tried once when the primary fails
type Backend struct {
	primary       core.LLMClient
	fallback      core.LLMClient
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	cfg           Config

	mu        sync.Mutex
	avail     core.Availability
	checkedAt time.Time
	now       func() time.Time
}

// NewBackend creates a new backend adapter. fallback may be nil.
func NewBackend(
	primary core.LLMClient,
	fallback core.LLMClient,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	cfg Config,
) *Backend {
	return &Backend{
		primary:       primary,
		fallback:      fallback,
		textProcessor: textProcessor,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Call analyzes text with the named model. An empty item list is a valid reply.
func (b *Backend) Call(ctx context.Context, model string, text string, actx *core.AnalysisContext) (*core.BackendReply, error) {
	prompt := BuildPrompt(b.textProcessor.ProcessText(text, b.cfg.MaxTextSize), actx)

	raw, err := b.generate(ctx, model, prompt)
	if err != nil {
		return nil, err
	}

	reply, err := ParseReply(raw, text)
	if err != nil {
		b.logger.Debug("Unparseable completion", zap.String("model", model), zap.String("completion", raw))
		return nil, err
	}

	b.logger.Debug("AI analysis completed",
		zap.String("model", model),
		zap.String("language", reply.Language),
		zap.Int("items", len(reply.Items)))
	return reply, nil
}

// generate asks the primary transport and retries once on the fallback
// transport when the primary errors or returns nothing
func (b *Backend) generate(ctx context.Context, model, prompt string) (string, error) {
	raw, err := b.attempt(ctx, b.primary, model, prompt)
	if err == nil {
		return raw, nil
	}
	if b.fallback == nil {
		return "", err
	}

	b.logger.Warn("Primary transport failed, retrying with fallback transport",
		zap.String("model", model), zap.Error(err))

	raw, ferr := b.attempt(ctx, b.fallback, model, prompt)
	if ferr != nil {
		return "", fmt.Errorf("primary transport: %v; fallback transport: %w", err, ferr)
	}
	return raw, nil
}

func (b *Backend) attempt(ctx context.Context, client core.LLMClient, model, prompt string) (string, error) {
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	raw, err := client.Generate(ctx, model, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrNoCompletion
	}
	return raw, nil
}

// CheckAvailability reports whether the backend is installed and running.
// The answer is reused for the configured TTL.
func (b *Backend) CheckAvailability(ctx context.Context) core.Availability {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if !b.checkedAt.IsZero() && now.Sub(b.checkedAt) < b.cfg.AvailabilityTTL {
		return b.avail
	}

	avail := core.Availability{Installed: true, Running: true}
	if inst, ok := b.fallback.(Installer); ok {
		avail.Installed = inst.Installed()
	} else if inst, ok := b.primary.(Installer); ok {
		avail.Installed = inst.Installed()
	}
	if pinger, ok := b.primary.(Pinger); ok {
		pctx := ctx
		if b.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
			defer cancel()
		}
		if err := pinger.Ping(pctx); err != nil {
			b.logger.Debug("AI backend not reachable", zap.Error(err))
			avail.Running = false
		}
	}

	b.avail = avail
	b.checkedAt = now
	return avail
}

// WarmUp sends a throwaway prompt so the model is loaded before real work
func (b *Backend) WarmUp(ctx context.Context, model string) error {
	if _, err := b.attempt(ctx, b.primary, model, warmUpPrompt); err != nil {
		return fmt.Errorf("warm up %s: %w", model, err)
	}
	b.logger.Debug("Model warmed up", zap.String("model", model))
	return nil
}

// Close closes transports that hold resources
func (b *Backend) Close() error {
	for _, client := range []core.LLMClient{b.primary, b.fallback} {
		if closer, ok := client.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
