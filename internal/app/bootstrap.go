package app

import (
	"context"
	"fmt"

	"ncfledger/internal/config"
	"ncfledger/internal/infrastructure/archive"
	"ncfledger/internal/infrastructure/metrics"
	"ncfledger/pkg/logger"
)

// Runtime is everything a binary needs after startup.
type Runtime struct {
	Config   *config.Config
	Services *Services
	Metrics  *metrics.Collector
}

// Close releases storage.
func (r *Runtime) Close() {
	if r.Services != nil && r.Services.Backend.Close != nil {
		r.Services.Backend.Close()
	}
}

// Start opens storage and the optional archive and wires the services.
func Start(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}

	collector := metrics.New(nil)
	opts := Options{
		Allocator: AllocatorConfig(cfg.Allocator),
		Metrics:   collector,
	}

	if cfg.Archive.Enabled {
		store, err := archive.New(ctx, ArchiveConfig(cfg.Archive))
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		opts.Archive = store
		logger.Info(ctx, "report archive enabled", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
	}

	return &Runtime{
		Config:   cfg,
		Services: NewServices(backend, opts),
		Metrics:  collector,
	}, nil
}
