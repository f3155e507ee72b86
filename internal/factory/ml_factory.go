package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/adapters/bedrock"
	"github.com/phishspector/phishspector/internal/adapters/gemini"
	"github.com/phishspector/phishspector/internal/adapters/openai"
	"github.com/phishspector/phishspector/internal/config"
	"github.com/phishspector/phishspector/internal/core"
)

// MLFactory creates remote classifier clients based on configuration.
type MLFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMLFactory creates a new classifier factory.
func NewMLFactory(cfg *config.Config, logger *zap.Logger) *MLFactory {
	return &MLFactory{cfg: cfg, logger: logger}
}

// CreateMLBackend creates a classifier client for the configured provider.
// Provider "none" returns a nil backend; the pipeline then degrades to the
// lexical score alone.
func (f *MLFactory) CreateMLBackend() (core.MLBackend, error) {
	mlCfg := f.cfg.GetML()

	switch mlCfg.Provider {
	case "none", "":
		f.logger.Info("No ML provider configured, scoring runs without it")
		return nil, nil
	case "openai":
		oc := f.cfg.GetOpenAI()
		if oc.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return openai.NewClient(oc.APIKey, oc.ModelName, oc.MaxTokens,
			oc.Temperature, oc.TopP, oc.MaxTextSize, f.logger), nil
	case "gemini":
		gc := f.cfg.GetGemini()
		if gc.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		return gemini.NewClient(gc.APIKey, gc.ModelName, gc.MaxTokens,
			gc.Temperature, gc.TopP, gc.MaxTextSize, f.logger)
	case "bedrock":
		bc := f.cfg.GetBedrock()
		return bedrock.NewClient(bc.Region, bc.ModelID, bc.MaxTokens,
			bc.Temperature, bc.TopP, bc.MaxTextSize, f.logger)
	default:
		return nil, fmt.Errorf("unsupported ML provider: %s", mlCfg.Provider)
	}
}
