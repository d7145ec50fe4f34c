package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/corpusforge/fimgen/internal/manifest"
)

// initManifest opens the run manifest store named by the configuration.
// Callers own Close and run Migrate before first use.
func initManifest(ctx context.Context) (manifest.Store, error) {
	switch cfg.Manifest.Driver {
	case "off", "":
		return manifest.NopStore{}, nil
	case "sqlite":
		return manifest.NewSQLite(cfg.Manifest.Path)
	case "postgres":
		return manifest.NewPostgres(ctx, cfg.Manifest.DatabaseURL, &cfg.Manifest.Pool)
	default:
		return nil, eris.Errorf("unknown manifest driver: %s", cfg.Manifest.Driver)
	}
}
