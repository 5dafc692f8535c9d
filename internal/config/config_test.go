package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsMatchBuiltInSettings(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	settings, err := cfg.GetAnalysisSettings()
	require.NoError(t, err)
	assert.Equal(t, core.DefaultSettings(), settings)
	assert.Equal(t, core.DefaultEngineConfig(), cfg.GetEngine())
	assert.GreaterOrEqual(t, cfg.GetAI().MaxTextSize, cfg.GetEngine().ChunkThreshold)

	cacheCfg, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, CacheConfig{
		Enabled:          true,
		TTL:              5 * time.Minute,
		MaxEntries:       100,
		CleanupFrequency: time.Minute,
	}, cacheCfg)

	ai := cfg.GetAI()
	assert.Equal(t, "ollama", ai.Provider)
	assert.Equal(t, 30*time.Second, ai.Timeout)
	assert.Equal(t, 15*time.Second, ai.AvailabilityTTL)
	assert.Equal(t, []string{"run"}, cfg.GetOllama().CommandArgs)
}

func TestNewFromFile(t *testing.T) {
	path := writeConfig(t, `
ai:
  provider: openai
  model: gpt-4o-mini
openai:
  api_key: sk-test
analysis:
  debounce: 1s
  confidence_threshold: 1.4
  enabled_types: [todo, deadline, general]
cache:
  enabled: false
`)

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.GetAI().Provider)
	assert.Equal(t, "sk-test", cfg.GetOpenAI().APIKey)

	settings, err := cfg.GetAnalysisSettings()
	require.NoError(t, err)
	assert.Equal(t, time.Second, settings.Debounce)
	assert.Equal(t, 1.0, settings.ConfidenceThreshold)
	assert.Equal(t, []core.ItemType{core.TypeTodo, core.TypeDeadline, core.TypeGeneral}, settings.EnabledTypes)
	assert.Equal(t, "gpt-4o-mini", settings.AIModel)
	assert.False(t, settings.CacheEnabled)
	assert.Equal(t, 10, settings.MaxItems)
}

func TestNewFromFile_Missing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "ai:\n  model: llama3.2\n")
	t.Setenv("ACTION_EXTRACTOR_AI_MODEL", "mistral")
	t.Setenv("ACTION_EXTRACTOR_CACHE_MAX_ENTRIES", "7")

	cfg, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.GetAI().Model)

	cacheCfg, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, 7, cacheCfg.MaxEntries)
}

func TestInvalidDurations(t *testing.T) {
	v := NewEmptyViper()
	v.Set("analysis.debounce", "soon")
	v.Set("cache.ttl", "forever")
	cfg := NewFromViper(v)

	_, err := cfg.GetAnalysisSettings()
	assert.ErrorContains(t, err, "invalid analysis debounce")

	_, err = cfg.GetCache()
	assert.ErrorContains(t, err, "invalid cache ttl")
}

func TestUnknownEnabledType(t *testing.T) {
	v := NewEmptyViper()
	v.Set("analysis.enabled_types", []string{"todo", "dedline"})

	_, err := NewFromViper(v).GetAnalysisSettings()
	assert.ErrorContains(t, err, `unknown analysis enabled type "dedline"`)
}
