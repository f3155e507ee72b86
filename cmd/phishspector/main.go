package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/adapters/httpapi"
	"github.com/phishspector/phishspector/internal/adapters/smtpgate"
	"github.com/phishspector/phishspector/internal/config"
	"github.com/phishspector/phishspector/internal/core"
	"github.com/phishspector/phishspector/internal/di"
	"github.com/phishspector/phishspector/internal/monitor"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected.
func run(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.ScoringService,
	ml core.MLBackend,
	mail core.MailProvider,
	store core.PersistentStore,
) error {
	defer logger.Sync()

	httpServer := httpapi.NewServer(service, logger, cfg.GetString("server.listen_address"))
	if err := httpServer.Start(); err != nil {
		logger.Fatal("Failed to start HTTP server", zap.Error(err))
		return err
	}

	var gate *smtpgate.Gateway
	if cfg.GetBool("smtp.enabled") {
		gate = smtpgate.NewGateway(service, logger,
			cfg.GetString("smtp.listen_address"),
			cfg.GetBool("smtp.block_high_risk"))
		if err := gate.Start(); err != nil {
			logger.Fatal("Failed to start SMTP gate", zap.Error(err))
			return err
		}
	}

	var inboxMonitor *monitor.Monitor
	if cfg.GetBool("monitor.enabled") {
		source, ok := mail.(core.InboxSource)
		if !ok {
			logger.Warn("Inbox monitor enabled but the mail provider cannot list messages")
		} else {
			interval, err := cfg.GetDuration("monitor.poll_interval")
			if err != nil {
				logger.Fatal("Invalid monitor poll interval", zap.Error(err))
				return err
			}
			inboxMonitor = monitor.New(source, service, logger, monitor.Options{
				Query:      cfg.GetString("monitor.query"),
				Interval:   interval,
				MaxResults: int64(cfg.GetInt("monitor.max_results")),
			})
			if err := inboxMonitor.Start(); err != nil {
				logger.Fatal("Failed to start inbox monitor", zap.Error(err))
				return err
			}
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if inboxMonitor != nil {
		if err := inboxMonitor.Stop(); err != nil {
			logger.Error("Failed to stop inbox monitor", zap.Error(err))
		}
	}
	if gate != nil {
		if err := gate.Stop(); err != nil {
			logger.Error("Failed to stop SMTP gate", zap.Error(err))
		}
	}
	if err := httpServer.Stop(); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := ml.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier client", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
