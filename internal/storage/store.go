// Package storage is the persistence gateway for the pet content hierarchy.
//
// All reads and writes of pets, data instances, knowledge and images go
// through Store. Multi-row writes (an instance with its knowledge and
// images, bulk attachments) happen inside a single transaction so the
// hierarchy is never observable half-written.
//
// Store is safe for concurrent use by multiple goroutines.
package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Embedder generates vector embeddings for knowledge content. Consumers of
// Store provide an implementation (see internal/embedding); a nil Embedder
// disables embedding-on-write and rows are stored without vectors.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Store manages the pet content hierarchy in PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

// New creates a Store over a shared connection pool.
//
//   - embedder: used to embed knowledge content at write time; nil disables
//     embedding (knowledge rows get NULL embeddings and are excluded from
//     semantic search).
//   - logger: nil uses slog.Default().
func New(pool *pgxpool.Pool, embedder Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:     pool,
		embedder: embedder,
		logger:   logger,
	}
}

// Pagination bounds for listing operations.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// clampPage normalizes limit and offset for listing queries: limit defaults
// to DefaultListLimit when non-positive and is capped at MaxListLimit;
// negative offsets become zero.
func clampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// nullText converts an empty string to SQL NULL.
func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// textValue unwraps a nullable text column to an empty string.
func textValue(t pgtype.Text) string {
	if t.Valid {
		return t.String
	}
	return ""
}

// marshalMetadata serializes a metadata map for the JSONB column, treating
// nil as an empty object.
func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

// parseMetadata deserializes a JSONB column. Unparseable metadata degrades
// to an empty map with a warning instead of failing the read.
func (s *Store) parseMetadata(raw []byte, kind string, id uuid.UUID) map[string]any {
	metadata := map[string]any{}
	if len(raw) == 0 {
		return metadata
	}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "kind", kind, "id", id, "error", err)
		return map[string]any{}
	}
	return metadata
}

func timestamp(ts pgtype.Timestamptz) time.Time {
	if ts.Valid {
		return ts.Time
	}
	return time.Time{}
}

// begin starts a transaction and returns it with a rollback func suitable
// for defer. Rolling back after a successful commit is a no-op.
func (s *Store) begin(ctx context.Context) (pgx.Tx, func(), error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	rollback := func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}
	return tx, rollback, nil
}
