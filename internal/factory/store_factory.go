package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/adapters/senderdb"
	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
)

// StoreFactory creates sender repositories based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSenderRepository creates a sender repository based on the configuration
func (f *StoreFactory) CreateSenderRepository() (core.SenderRepository, error) {
	storeType := f.cfg.GetString("senders.store")

	switch storeType {
	case "file":
		filePath := f.cfg.GetString("senders.file_path")
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create sender store directory: %w", err)
		}
		return senderdb.NewFileStore(filePath, f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("senders.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return senderdb.NewSQLiteStore(sqlitePath, f.logger)
	case "mysql":
		mysqlDSN := f.cfg.GetString("senders.mysql_dsn")
		return senderdb.NewMySQLStore(mysqlDSN, f.logger)
	case "memory":
		return senderdb.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported sender store type: %s", storeType)
	}
}
