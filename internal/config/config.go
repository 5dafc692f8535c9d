package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/llm-action-extractor/")
	v.AddConfigPath("$HOME/.llm-action-extractor")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	return load(v)
}

// NewFromFile creates a configuration instance from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("ACTION_EXTRACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Analysis defaults
	v.SetDefault("analysis.enabled", true)
	v.SetDefault("analysis.debounce", "400ms")
	v.SetDefault("analysis.confidence_threshold", 0.6)
	v.SetDefault("analysis.max_items", 10)
	v.SetDefault("analysis.enabled_types", []string{
		"todo", "task", "action", "reminder", "deadline",
		"development", "follow_up", "assignment", "commitment", "general",
	})
	v.SetDefault("analysis.fallback_to_regex", true)
	v.SetDefault("analysis.show_low_confidence", false)
	v.SetDefault("analysis.auto_create_threshold", 0.85)
	v.SetDefault("analysis.min_text_length", 10)
	v.SetDefault("analysis.chunk_threshold", 10000)
	v.SetDefault("analysis.chunk_size", 2000)
	v.SetDefault("analysis.context_radius", 50)

	// AI backend defaults
	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.model", "llama3.2")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.temperature", 0.1)
	v.SetDefault("ai.top_p", 0.9)
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.max_text_size", 12000)
	v.SetDefault("ai.availability_ttl", "15s")

	// Ollama defaults
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.command", "ollama")
	v.SetDefault("ollama.command_args", []string{"run"})

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_entries", 100)
	v.SetDefault("cache.cleanup_frequency", "1m")

	// Server defaults
	v.SetDefault("server.listen_address", "127.0.0.1:8787")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
