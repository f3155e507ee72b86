package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/adapters/gmail"
	"github.com/phishspector/phishspector/internal/config"
	"github.com/phishspector/phishspector/internal/core"
)

// ProviderFactory creates mail providers based on configuration.
type ProviderFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewProviderFactory creates a new mail provider factory.
func NewProviderFactory(cfg *config.Config, logger *zap.Logger) *ProviderFactory {
	return &ProviderFactory{cfg: cfg, logger: logger}
}

// CreateMailProvider creates the provider used for header lookups.
// Provider "none" returns nil; header trust then stays at its neutral
// default for every message.
func (f *ProviderFactory) CreateMailProvider(ctx context.Context) (core.MailProvider, error) {
	providerType := f.cfg.GetString("mail.provider")

	switch providerType {
	case "none", "":
		f.logger.Info("No mail provider configured, header lookups disabled")
		return nil, nil
	case "gmail":
		return gmail.NewProvider(ctx,
			f.cfg.GetString("mail.gmail_credentials_file"),
			f.cfg.GetString("mail.gmail_user"),
			f.logger)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", providerType)
	}
}
