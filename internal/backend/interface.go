package backend

import (
	"context"

	"spendwise/internal/ledger"
	"spendwise/internal/ledger/mysql"
)

// Factory opens ledger stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (ledger.Store, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// MySQL specific
	MySQL mysql.Config
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MySQLBackend  BackendType = "mysql"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MySQLBackend:
		return true
	default:
		return false
	}
}
