package storage

import (
	"fmt"

	"github.com/nebari-dev/gatehouse/internal/config"
	"github.com/nebari-dev/gatehouse/internal/db"
)

// New creates the backend selected by cfg.Storage.Backend
func New(cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		return NewFileBackend(cfg.Storage.DataDir), nil
	case "memory":
		return NewMemoryBackend(), nil
	case "sqlite", "postgres", "postgresql":
		gdb, err := db.New(cfg.Storage.Backend, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(gdb); err != nil {
			return nil, err
		}
		return NewDBBackend(gdb), nil
	case "valkey":
		return NewValkeyBackend(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
