package di

import (
	"flag"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-action-extractor/internal/adapters/frontend"
	"github.com/mikey/llm-action-extractor/internal/config"
	"github.com/mikey/llm-action-extractor/internal/factory"
	"github.com/mikey/llm-action-extractor/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// AI provider flags
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxTextSize int
	NoAI        bool

	// Ollama flags
	OllamaURL string

	// Bedrock flags
	BedrockRegion string

	// Gemini flags
	GeminiAPIKey string

	// OpenAI flags
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Analysis flags
	ConfidenceThreshold float64
	MaxItems            int
	ShowLowConfidence   bool
	NoFallback          bool

	// Input and output flags
	InputFile  string
	Watch      bool
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// AI provider flags
	flag.StringVar(&flags.Provider, "provider", "ollama", "AI provider (ollama, ollama-cli, openai, bedrock, gemini, none)")
	flag.StringVar(&flags.Model, "model", "llama3.2", "Model name")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for the AI response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for generation")
	flag.IntVar(&flags.MaxTextSize, "max-text-size", 12000, "Maximum note size sent to the AI backend")
	flag.BoolVar(&flags.NoAI, "no-ai", false, "Use the pattern engine only")

	// Ollama flags
	flag.StringVar(&flags.OllamaURL, "ollama-url", "http://localhost:11434", "Ollama server URL")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "Base URL of an OpenAI-compatible endpoint")

	// Analysis flags
	flag.Float64Var(&flags.ConfidenceThreshold, "threshold", 0.6, "Minimum confidence of reported items")
	flag.IntVar(&flags.MaxItems, "max-items", 10, "Maximum number of reported items")
	flag.BoolVar(&flags.ShowLowConfidence, "show-low-confidence", false, "Report items below the threshold")
	flag.BoolVar(&flags.NoFallback, "no-fallback", false, "Do not fall back to the pattern engine when the AI backend fails")

	// Input and output flags
	flag.StringVar(&flags.InputFile, "file", "", "Input note file (use stdin if not specified)")
	flag.BoolVar(&flags.Watch, "watch", false, "Analyze stdin line by line as it is typed")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.BoolVar(&flags.JSONOutput, "json", false, "Print results as JSON")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			cfg.GetViper().Set("cli.verbose", flags.Verbose)
			cfg.GetViper().Set("cli.json_output", flags.JSONOutput)
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register a private metrics registry; the CLI does not expose it
	if err := container.Provide(prometheus.NewRegistry); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register CLI frontend
	if err := container.Provide(func(f *factory.FrontendFactory) *frontend.CliFrontend {
		return f.CreateCLIFrontend(os.Stdout)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("cli.verbose", flags.Verbose)
	v.Set("cli.json_output", flags.JSONOutput)
	v.Set("cache.cleanup_frequency", "0s")

	// Set AI provider
	provider := flags.Provider
	if flags.NoAI {
		provider = factory.ProviderNone
	}
	v.Set("ai.provider", provider)
	v.Set("ai.model", flags.Model)
	v.Set("ai.max_tokens", flags.MaxTokens)
	v.Set("ai.temperature", flags.Temperature)
	v.Set("ai.top_p", flags.TopP)
	v.Set("ai.max_text_size", flags.MaxTextSize)

	// Set provider-specific configuration
	switch provider {
	case "ollama", "ollama-cli":
		v.Set("ollama.url", flags.OllamaURL)
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.base_url", flags.OpenAIBaseURL)
	}

	// Set analysis thresholds
	v.Set("analysis.confidence_threshold", flags.ConfidenceThreshold)
	v.Set("analysis.max_items", flags.MaxItems)
	v.Set("analysis.show_low_confidence", flags.ShowLowConfidence)
	v.Set("analysis.fallback_to_regex", !flags.NoFallback)

	return config.NewFromViper(v)
}
