package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/provider"
)

// Deps is what a backend factory receives.
type Deps struct {
	Ctx    context.Context
	Config Config
	Log    *logger.Logger
}

var backends = provider.NewRegistry[Storage, Deps]()

// Register makes a backend selectable by name. Backends call it from init.
func Register(name string, f provider.Factory[Storage, Deps]) {
	backends.RegisterFactory(name, f)
}

// New builds the backend named by cfg.Provider. Its package must be
// imported for the factory to exist.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog := log.WithComponent("storage")
	s, err := backends.Create(cfg.Provider, Deps{Ctx: ctx, Config: cfg, Log: slog})
	if err != nil {
		return nil, fmt.Errorf("storage: %w (registered: %v)", err, backends.List())
	}
	slog.Info("Storage ready", logger.Fields("provider", cfg.Provider))
	return s, nil
}
