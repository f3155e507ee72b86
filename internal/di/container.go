// Package di wires the application graph together.
package di

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/alerting"
	"github.com/phishspector/phishspector/internal/config"
	"github.com/phishspector/phishspector/internal/core"
	"github.com/phishspector/phishspector/internal/factory"
	"github.com/phishspector/phishspector/internal/lexical"
	"github.com/phishspector/phishspector/internal/logging"
	"github.com/phishspector/phishspector/internal/trust"
)

// BuildContainer creates and configures a dependency injection container.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		config.New,
		logging.InitLogger,
		factory.NewMLFactory,
		factory.NewStoreFactory,
		factory.NewProviderFactory,

		func(f *factory.MLFactory) (core.MLBackend, error) {
			return f.CreateMLBackend()
		},
		func(f *factory.StoreFactory) (core.PersistentStore, error) {
			return f.CreatePersistentStore()
		},
		func(f *factory.ProviderFactory) (core.MailProvider, error) {
			return f.CreateMailProvider(context.Background())
		},

		func(cfg *config.Config, logger *zap.Logger) *lexical.Scorer {
			if cfg.GetBool("scoring.jitter_enabled") {
				rng := rand.New(rand.NewSource(time.Now().UnixNano()))
				return lexical.NewScorer(func(max int) int {
					return rng.Intn(max + 1)
				})
			}
			return lexical.NewScorer(nil)
		},

		func(cfg *config.Config, store core.PersistentStore, logger *zap.Logger) core.TrustLedger {
			return trust.NewLedger(store, cfg.GetStringSlice("scoring.trusted_seed_domains"), logger)
		},

		func(cfg *config.Config, logger *zap.Logger) (core.Alerter, error) {
			if !cfg.GetBool("alerting.enabled") {
				return nil, nil
			}
			cooldown, err := cfg.GetDuration("alerting.cooldown")
			if err != nil {
				return nil, err
			}
			return alerting.NewWebhookAlerter(cfg.GetString("alerting.webhook_url"), cooldown, logger), nil
		},

		func(cfg *config.Config, logger *zap.Logger) core.FeedbackSink {
			url := cfg.GetString("feedback.webhook_url")
			if url == "" {
				return nil
			}
			return alerting.NewWebhookFeedbackSink(url, logger)
		},

		func(cfg *config.Config) (core.ServiceOptions, error) {
			headerTTL, err := cfg.GetDuration("scoring.header_cache_ttl")
			if err != nil {
				return core.ServiceOptions{}, err
			}
			queryTTL, err := cfg.GetDuration("scoring.query_cache_ttl")
			if err != nil {
				return core.ServiceOptions{}, err
			}
			remoteTimeout, err := cfg.GetDuration("scoring.remote_timeout")
			if err != nil {
				return core.ServiceOptions{}, err
			}
			return core.ServiceOptions{
				HeaderTTL:      headerTTL,
				QueryTTL:       queryTTL,
				AlertThreshold: cfg.GetInt("alerting.threshold"),
				RemoteTimeout:  remoteTimeout,
			}, nil
		},

		func(
			scorer *lexical.Scorer,
			ml core.MLBackend,
			mail core.MailProvider,
			ledger core.TrustLedger,
			store core.PersistentStore,
			sink core.FeedbackSink,
			alerter core.Alerter,
			logger *zap.Logger,
			opts core.ServiceOptions,
		) *core.ScoringService {
			return core.NewScoringService(scorer, ml, mail, ledger, store, sink, alerter, logger, opts)
		},
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}

	return container, nil
}
