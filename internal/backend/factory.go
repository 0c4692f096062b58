// Package backend selects and initializes the storage backend from
// configuration.
package backend

import (
	"fmt"
	"log/slog"

	"fintrack/internal/config"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/sqlite"
)

// Type represents the storage backend kind
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}

// New creates the store named by cfg.Backend. The caller owns the
// returned store and must Close it.
func New(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch Type(cfg.Backend) {
	case SQLite:
		st, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return st, nil
	case Memory:
		logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Backend)
	}
}
