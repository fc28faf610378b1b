// Package backend selects and builds the ledger store a process reads from.
package backend

import (
	"context"
	"fmt"

	"ledgerbi/internal/config"
	"ledgerbi/internal/ledger"
)

// BackendType represents the type of ledger store
type BackendType string

const (
	SQLiteBackend BackendType = config.BackendSQLite
	MemoryBackend BackendType = config.BackendMemory
)

// IsValid checks if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

func (bt BackendType) String() string {
	return string(bt)
}

// Config holds the settings a backend needs
type Config struct {
	Type BackendType

	// SQLite configuration
	SQLiteDBPath string

	// Memory backend seed directory (entities.csv, transactions.csv)
	DataDirectory string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.DataDir,
	}, nil
}

// Result is a ready store plus the function that releases it
type Result struct {
	Store   ledger.Store
	Cleanup func() error
}

// Close runs Cleanup when one is set
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates ledger stores
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
