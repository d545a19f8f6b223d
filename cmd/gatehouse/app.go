package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nebari-dev/gatehouse/internal/config"
	"github.com/nebari-dev/gatehouse/internal/logger"
	"github.com/nebari-dev/gatehouse/internal/registry"
	"github.com/nebari-dev/gatehouse/internal/storage"
)

// globalOpts holds the persistent flags shared by every command
var globalOpts struct {
	configPath string
	dataDir    string
	backend    string
	logLevel   string
}

// app bundles the loaded configuration, backend and registry for one command run
type app struct {
	cfg      *config.Config
	backend  storage.Backend
	registry *registry.Registry
	logger   *slog.Logger
}

// loadConfig reads configuration and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalOpts.configPath)
	if err != nil {
		return nil, err
	}
	if globalOpts.dataDir != "" {
		cfg.Storage.DataDir = globalOpts.dataDir
	}
	if globalOpts.backend != "" {
		cfg.Storage.Backend = globalOpts.backend
	}
	if globalOpts.logLevel != "" {
		cfg.Log.Level = globalOpts.logLevel
	}
	return cfg, nil
}

// openApp loads configuration, connects the backend and loads the registry.
// attrs are attached to every log and audit record of the run.
func openApp(ctx context.Context, attrs ...any) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Log.Format, cfg.Log.Level)
	log := slog.Default().With(attrs...)

	backend, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	reg := registry.New(
		registry.WithHistoryCap(cfg.Registry.HistoryCap),
		registry.WithLogger(log),
	)
	if err := reg.Load(ctx, backend); err != nil {
		backend.Close()
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	return &app{cfg: cfg, backend: backend, registry: reg, logger: log}, nil
}

// save persists the registry
func (a *app) save(ctx context.Context) error {
	if err := a.registry.Save(ctx, a.backend); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

func (a *app) close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("Failed to close storage backend", "error", err)
	}
}

// withApp runs fn against a loaded registry, saving afterwards when mutate is set
func withApp(ctx context.Context, mutate bool, fn func(*app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := fn(a); err != nil {
		return err
	}
	if mutate {
		return a.save(ctx)
	}
	return nil
}
