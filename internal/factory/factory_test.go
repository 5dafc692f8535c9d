package factory

import (
	"testing"

	"github.com/mikey/llm-action-extractor/internal/adapters/backend"
	"github.com/mikey/llm-action-extractor/internal/adapters/ollama"
	"github.com/mikey/llm-action-extractor/internal/config"
	"github.com/mikey/llm-action-extractor/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newLLMFactory(t *testing.T, provider string) *LLMFactory {
	t.Helper()
	v := config.NewEmptyViper()
	v.Set("ai.provider", provider)
	logger := zaptest.NewLogger(t)
	return NewLLMFactory(config.NewFromViper(v), logger, utils.NewTextProcessor(logger))
}

func TestCreateBackend_None(t *testing.T) {
	b, err := newLLMFactory(t, ProviderNone).CreateBackend()
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestCreateBackend_Ollama(t *testing.T) {
	b, err := newLLMFactory(t, "ollama").CreateBackend()
	require.NoError(t, err)
	assert.IsType(t, &backend.Backend{}, b)
}

func TestCreateBackend_RejectsMaxTextSizeBelowChunkThreshold(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("ai.provider", "ollama")
	v.Set("ai.max_text_size", 8000)
	v.Set("analysis.chunk_threshold", 10000)
	logger := zaptest.NewLogger(t)
	f := NewLLMFactory(config.NewFromViper(v), logger, utils.NewTextProcessor(logger))

	b, err := f.CreateBackend()
	assert.Nil(t, b)
	assert.ErrorContains(t, err, "ai.max_text_size 8000 is below analysis.chunk_threshold 10000")

	v.Set("ai.max_text_size", 0)
	b, err = f.CreateBackend()
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestCreateLLMClient(t *testing.T) {
	client, err := newLLMFactory(t, "ollama").CreateLLMClient()
	require.NoError(t, err)
	assert.IsType(t, &ollama.HTTPClient{}, client)

	client, err = newLLMFactory(t, "ollama-cli").CreateLLMClient()
	require.NoError(t, err)
	assert.IsType(t, &ollama.CLIClient{}, client)

	_, err = newLLMFactory(t, "carrier-pigeon").CreateLLMClient()
	assert.ErrorContains(t, err, "unsupported AI provider: carrier-pigeon")
}

func TestCreateResultCache(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("cache.cleanup_frequency", "0s")
	f := NewCacheFactory(config.NewFromViper(v), zaptest.NewLogger(t))

	c, err := f.CreateResultCache()
	require.NoError(t, err)
	defer c.Stop()
	assert.True(t, f.IsCacheEnabled())

	v.Set("cache.max_entries", 0)
	_, err = f.CreateResultCache()
	assert.ErrorContains(t, err, "max_entries must be positive")

	v.Set("cache.max_entries", 10)
	v.Set("cache.ttl", "0s")
	_, err = f.CreateResultCache()
	assert.ErrorContains(t, err, "ttl must be positive")
}
