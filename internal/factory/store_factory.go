package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/phishspector/phishspector/internal/adapters/storage"
	"github.com/phishspector/phishspector/internal/config"
	"github.com/phishspector/phishspector/internal/core"
)

// StoreFactory creates persistent stores based on configuration.
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory.
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{cfg: cfg, logger: logger}
}

// CreatePersistentStore creates the store backing the trust ledger and the
// feedback log.
func (f *StoreFactory) CreatePersistentStore() (core.PersistentStore, error) {
	storeType := f.cfg.GetString("storage.type")

	switch storeType {
	case "memory", "":
		f.logger.Warn("Using in-memory store, trust ledger will not survive restarts")
		return storage.NewMemoryStore(), nil
	case "sqlite":
		path := f.cfg.GetString("storage.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return storage.NewSQLiteStore(path, f.logger)
	case "mysql":
		return storage.NewMySQLStore(f.cfg.GetString("storage.mysql_dsn"), f.logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storeType)
	}
}
