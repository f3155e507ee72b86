package di

import (
	"flag"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/adapters/storage"
	"github.com/phishspector/phishspector/internal/config"
	"github.com/phishspector/phishspector/internal/core"
	"github.com/phishspector/phishspector/internal/factory"
	"github.com/phishspector/phishspector/internal/lexical"
	"github.com/phishspector/phishspector/internal/logging"
	"github.com/phishspector/phishspector/internal/trust"
)

// CLIFlags contains all command line flags for the one-shot scorer.
type CLIFlags struct {
	// Classifier provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxTextSize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Input flags
	InputFile  string
	URL        string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct.
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.StringVar(&flags.Provider, "provider", "none", "Classifier provider (none, bedrock, gemini, openai)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for the classifier response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for the classifier")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for the classifier")
	flag.IntVar(&flags.MaxTextSize, "max-text-size", 4096, "Maximum message text size sent to the classifier")

	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")

	flag.StringVar(&flags.InputFile, "file", "", "Input message file in RFC 822 format (use stdin if not specified)")
	flag.StringVar(&flags.URL, "url", "", "Check a single URL instead of scoring a message")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates a container for the one-shot scorer. The CLI
// runs without a mail provider, without alerting and with an in-memory
// store, so scores come from the lexical and classifier signals alone.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		func() *CLIFlags { return flags },

		func(flags *CLIFlags) (*zap.Logger, error) {
			return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
		},

		func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
			if flags.ConfigFile != "" {
				cfg, err := config.New()
				if err != nil {
					return nil, err
				}
				logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
				return cfg, nil
			}
			return createConfigFromFlags(flags), nil
		},

		factory.NewMLFactory,

		func(f *factory.MLFactory) (core.MLBackend, error) {
			return f.CreateMLBackend()
		},

		func(ml core.MLBackend, logger *zap.Logger) *core.ScoringService {
			store := storage.NewMemoryStore()
			ledger := trust.NewLedger(store, nil, logger)
			return core.NewScoringService(
				lexical.NewScorer(nil),
				ml,
				nil, // no mail provider
				ledger,
				store,
				nil, // no feedback sink
				nil, // no alerter
				logger,
				core.ServiceOptions{
					HeaderTTL:      time.Hour,
					QueryTTL:       time.Minute,
					AlertThreshold: 70,
					RemoteTimeout:  30 * time.Second,
				},
			)
		},
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags.
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("ml.provider", flags.Provider)

	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_text_size", flags.MaxTextSize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_text_size", flags.MaxTextSize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_text_size", flags.MaxTextSize)
	}

	return config.NewFromViper(v)
}
