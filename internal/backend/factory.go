package backend

import (
	"context"
	"fmt"

	"spendwise/internal/ledger"
	"spendwise/internal/ledger/memory"
	"spendwise/internal/ledger/mysql"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the configured store with its schema in place.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (ledger.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MySQLBackend:
		return f.createMySQLBackend(ctx, config)
	case MemoryBackend:
		f.logger.Warn("Using in-memory ledger, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (ledger.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	version, _, err := storage.SchemaVersion(config.SQLiteDBPath)
	if err != nil {
		f.logger.Warn("Could not read schema version", log.FieldError, err)
	}
	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", version)
	return repo, nil
}

func (f *DefaultFactory) createMySQLBackend(ctx context.Context, config Config) (ledger.Store, error) {
	client, err := mysql.NewClient(ctx, config.MySQL, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MySQL client: %w", err)
	}
	store := mysql.NewStore(client)
	if err := store.AutoMigrate(ctx); err != nil {
		client.Close()
		return nil, err
	}
	f.logger.Info("Initialized MySQL backend",
		"host", config.MySQL.Host,
		"database", config.MySQL.DBName)
	return store, nil
}
