package config

import (
	"fmt"
	"time"

	"github.com/mikey/llm-action-extractor/internal/core"
)

// AIConfig represents the configuration shared by every AI provider
type AIConfig struct {
	Provider        string
	Model           string
	Timeout         time.Duration
	Temperature     float32
	TopP            float32
	MaxTokens       int
	MaxTextSize     int
	AvailabilityTTL time.Duration
}

// OllamaConfig represents the configuration for a local Ollama install
type OllamaConfig struct {
	URL         string
	Command     string
	CommandArgs []string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey string
}

// CacheConfig represents the configuration of the result cache
type CacheConfig struct {
	Enabled          bool
	TTL              time.Duration
	MaxEntries       int
	CleanupFrequency time.Duration
}

// GetAI returns the AI configuration
func (c *Config) GetAI() AIConfig {
	timeout, _ := c.GetDuration("ai.timeout")
	ttl, _ := c.GetDuration("ai.availability_ttl")
	return AIConfig{
		Provider:        c.GetString("ai.provider"),
		Model:           c.GetString("ai.model"),
		Timeout:         timeout,
		Temperature:     float32(c.GetFloat64("ai.temperature")),
		TopP:            float32(c.GetFloat64("ai.top_p")),
		MaxTokens:       c.GetInt("ai.max_tokens"),
		MaxTextSize:     c.GetInt("ai.max_text_size"),
		AvailabilityTTL: ttl,
	}
}

// GetOllama returns the Ollama configuration
func (c *Config) GetOllama() OllamaConfig {
	return OllamaConfig{
		URL:         c.GetString("ollama.url"),
		Command:     c.GetString("ollama.command"),
		CommandArgs: c.GetStringSlice("ollama.command_args"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  c.GetString("openai.api_key"),
		BaseURL: c.GetString("openai.base_url"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region: c.GetString("bedrock.region"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey: c.GetString("gemini.api_key"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache ttl: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		MaxEntries:       c.GetInt("cache.max_entries"),
		CleanupFrequency: cleanup,
	}, nil
}

// GetEngine returns the analysis engine thresholds
func (c *Config) GetEngine() core.EngineConfig {
	return core.EngineConfig{
		MinTextLength:  c.GetInt("analysis.min_text_length"),
		ChunkThreshold: c.GetInt("analysis.chunk_threshold"),
		ChunkSize:      c.GetInt("analysis.chunk_size"),
		ContextRadius:  c.GetInt("analysis.context_radius"),
	}
}

// GetAnalysisSettings returns the default analysis settings
func (c *Config) GetAnalysisSettings() (core.AnalysisSettings, error) {
	debounce, err := c.GetDuration("analysis.debounce")
	if err != nil {
		return core.AnalysisSettings{}, fmt.Errorf("invalid analysis debounce: %w", err)
	}

	raw := c.GetStringSlice("analysis.enabled_types")
	types := make([]core.ItemType, 0, len(raw))
	for _, name := range raw {
		t, ok := core.LookupItemType(name)
		if !ok {
			return core.AnalysisSettings{}, fmt.Errorf("unknown analysis enabled type %q", name)
		}
		types = append(types, t)
	}

	return core.AnalysisSettings{
		Enabled:             c.GetBool("analysis.enabled"),
		Debounce:            debounce,
		ConfidenceThreshold: core.ClampConfidence(c.GetFloat64("analysis.confidence_threshold")),
		MaxItems:            c.GetInt("analysis.max_items"),
		EnabledTypes:        types,
		AIModel:             c.GetString("ai.model"),
		FallbackToRegex:     c.GetBool("analysis.fallback_to_regex"),
		CacheEnabled:        c.GetBool("cache.enabled"),
		ShowLowConfidence:   c.GetBool("analysis.show_low_confidence"),
		AutoCreateThreshold: core.ClampConfidence(c.GetFloat64("analysis.auto_create_threshold")),
	}, nil
}
