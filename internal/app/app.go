// Package app wires the application together: configuration, database pool,
// storage gateway, search engines and embedder.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petdex/petdex/internal/config"
	"github.com/petdex/petdex/internal/search"
	"github.com/petdex/petdex/internal/semantic"
	"github.com/petdex/petdex/internal/storage"
)

// App holds the long-lived components of the backend. Construct it once via
// Setup (or Default) and share it; it is safe for concurrent use.
type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Storage  *storage.Store
	Search   *search.Engine
	Semantic *semantic.Searcher
	Logger   *slog.Logger
}

// Close releases the application's resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return nil
}

var (
	defaultMu  sync.Mutex
	defaultApp *App
)

// Default returns the process-wide App, initializing it on first use from
// config.Load(). The handle is constructed once and reused, never rebuilt
// per request; a failed initialization is retried on the next call.
func Default(ctx context.Context) (*App, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultApp != nil {
		return defaultApp, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := Setup(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defaultApp = a
	return defaultApp, nil
}
