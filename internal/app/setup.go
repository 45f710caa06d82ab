package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/petdex/petdex/db"
	"github.com/petdex/petdex/internal/config"
	"github.com/petdex/petdex/internal/embedding"
	"github.com/petdex/petdex/internal/log"
	"github.com/petdex/petdex/internal/search"
	"github.com/petdex/petdex/internal/semantic"
	"github.com/petdex/petdex/internal/storage"
)

// Setup creates and initializes the application: it runs migrations, builds
// the connection pool, and wires the storage gateway, the lexical search
// engine and the semantic searcher. Call Close() on the returned App to
// release resources.
//
// When no OpenAI API key is configured the App comes up without an
// embedder: writes store knowledge without vectors and semantic search
// reports semantic.ErrNotConfigured, everything else is unaffected.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := provideLogger(cfg)
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	var embedder *embedding.OpenAI
	if cfg.SemanticEnabled() {
		embedder = embedding.New(
			embedding.WithAPIKey(cfg.OpenAIAPIKey),
			embedding.WithModel(cfg.EmbedderModel),
			embedding.WithDimensions(cfg.EmbedderDimensions),
			embedding.WithLogger(logger.With("component", "embedding")),
		)
		logger.Info("embedder configured", "model", cfg.EmbedderModel)
	} else {
		logger.Warn("no OpenAI API key configured, semantic search disabled")
	}

	// storage.Embedder and semantic.Embedder are distinct consumer
	// interfaces; a typed nil *embedding.OpenAI must not leak into them.
	var storageEmbedder storage.Embedder
	var semanticEmbedder semantic.Embedder
	if embedder != nil {
		storageEmbedder = embedder
		semanticEmbedder = embedder
	}

	a.Storage = storage.New(pool, storageEmbedder, logger.With("component", "storage"))
	a.Search = search.New(pool, logger.With("component", "search"))
	a.Semantic = semantic.New(pool, semanticEmbedder, logger.With("component", "semantic"))

	return a, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}

// provideDBPool runs migrations and creates the shared PostgreSQL pool with
// pgvector types registered on every connection.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
