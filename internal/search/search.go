// Package search provides lexical full-text search over pet content.
//
// Queries run against PostgreSQL's built-in full-text search: both the
// datainstances.content and knowledge.content columns carry GIN tsvector
// indexes, and matches are ranked with ts_rank. Semantic (embedding-based)
// search lives in internal/semantic; the two share nothing but the pool.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petdex/petdex/internal/entity"
)

// Result bounds for search queries.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Results holds lexical matches, split by level of the content hierarchy.
type Results struct {
	Instances []entity.DataInstance `json:"datainstances"`
	Knowledge []entity.Knowledge    `json:"knowledge"`
}

// Engine runs full-text queries over the content store.
// Safe for concurrent use.
type Engine struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a search engine over a shared connection pool.
// A nil logger uses slog.Default().
func New(pool *pgxpool.Pool, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{pool: pool, logger: logger}
}

// clampLimit normalizes a search limit: DefaultSearchLimit when
// non-positive, capped at MaxSearchLimit.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	}
	return limit
}

// SearchPetContent searches one pet's instances and knowledge. No matches is
// an empty Results, never an error.
func (e *Engine) SearchPetContent(ctx context.Context, petID uuid.UUID, query string, limit int) (Results, error) {
	limit = clampLimit(limit)

	instances, err := e.searchInstances(ctx, `
		SELECT id, pet_id, content, content_type, content_hash, metadata, category, tags, created_at,
		       ts_rank(to_tsvector('english', content), plainto_tsquery('english', $2)) AS rank
		FROM datainstances
		WHERE pet_id = $1
		  AND to_tsvector('english', content) @@ plainto_tsquery('english', $2)
		ORDER BY rank DESC
		LIMIT $3`,
		petID, query, limit)
	if err != nil {
		return Results{}, fmt.Errorf("searching pet %s instances: %w", petID, err)
	}

	knowledge, err := e.searchKnowledge(ctx, `
		SELECT k.id, k.datainstance_id, k.url, k.content, k.title, k.content_hash, k.metadata, k.created_at,
		       ts_rank(to_tsvector('english', coalesce(k.content, '')), plainto_tsquery('english', $2)) AS rank
		FROM knowledge k
		JOIN datainstances d ON d.id = k.datainstance_id
		WHERE d.pet_id = $1
		  AND to_tsvector('english', coalesce(k.content, '')) @@ plainto_tsquery('english', $2)
		ORDER BY rank DESC
		LIMIT $3`,
		petID, query, limit)
	if err != nil {
		return Results{}, fmt.Errorf("searching pet %s knowledge: %w", petID, err)
	}

	e.logger.Debug("pet content search",
		"pet_id", petID,
		"instances", len(instances),
		"knowledge", len(knowledge))
	return Results{Instances: instances, Knowledge: knowledge}, nil
}

// SearchUserContent searches across every pet owned by a wallet.
func (e *Engine) SearchUserContent(ctx context.Context, ownerWallet, query string, limit int) (Results, error) {
	limit = clampLimit(limit)

	instances, err := e.searchInstances(ctx, `
		SELECT d.id, d.pet_id, d.content, d.content_type, d.content_hash, d.metadata, d.category, d.tags, d.created_at,
		       ts_rank(to_tsvector('english', d.content), plainto_tsquery('english', $2)) AS rank
		FROM datainstances d
		JOIN pets p ON p.id = d.pet_id
		WHERE p.owner_wallet = $1
		  AND to_tsvector('english', d.content) @@ plainto_tsquery('english', $2)
		ORDER BY rank DESC
		LIMIT $3`,
		ownerWallet, query, limit)
	if err != nil {
		return Results{}, fmt.Errorf("searching user %s instances: %w", ownerWallet, err)
	}

	knowledge, err := e.searchKnowledge(ctx, `
		SELECT k.id, k.datainstance_id, k.url, k.content, k.title, k.content_hash, k.metadata, k.created_at,
		       ts_rank(to_tsvector('english', coalesce(k.content, '')), plainto_tsquery('english', $2)) AS rank
		FROM knowledge k
		JOIN datainstances d ON d.id = k.datainstance_id
		JOIN pets p ON p.id = d.pet_id
		WHERE p.owner_wallet = $1
		  AND to_tsvector('english', coalesce(k.content, '')) @@ plainto_tsquery('english', $2)
		ORDER BY rank DESC
		LIMIT $3`,
		ownerWallet, query, limit)
	if err != nil {
		return Results{}, fmt.Errorf("searching user %s knowledge: %w", ownerWallet, err)
	}

	e.logger.Debug("user content search",
		"owner", ownerWallet,
		"instances", len(instances),
		"knowledge", len(knowledge))
	return Results{Instances: instances, Knowledge: knowledge}, nil
}

func (e *Engine) searchInstances(ctx context.Context, sql string, args ...any) ([]entity.DataInstance, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	instances := []entity.DataInstance{}
	for rows.Next() {
		var inst entity.DataInstance
		var metadata []byte
		var category string
		var createdAt pgtype.Timestamptz
		var rank float32
		err := rows.Scan(&inst.ID, &inst.PetID, &inst.Content, &inst.ContentType,
			&inst.ContentHash, &metadata, &category, &inst.Tags, &createdAt, &rank)
		if err != nil {
			return nil, err
		}
		inst.Metadata = e.parseMetadata(metadata, inst.ID)
		inst.Category = entity.Category(category)
		inst.CreatedAt = timestamp(createdAt)
		if inst.Tags == nil {
			inst.Tags = []string{}
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

func (e *Engine) searchKnowledge(ctx context.Context, sql string, args ...any) ([]entity.Knowledge, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	knowledge := []entity.Knowledge{}
	for rows.Next() {
		k, err := scanKnowledgeRow(e, rows)
		if err != nil {
			return nil, err
		}
		knowledge = append(knowledge, k)
	}
	return knowledge, rows.Err()
}

func scanKnowledgeRow(e *Engine, rows pgx.Rows) (entity.Knowledge, error) {
	var k entity.Knowledge
	var url, content, title, contentHash pgtype.Text
	var metadata []byte
	var createdAt pgtype.Timestamptz
	var rank float32
	err := rows.Scan(&k.ID, &k.InstanceID, &url, &content, &title, &contentHash,
		&metadata, &createdAt, &rank)
	if err != nil {
		return entity.Knowledge{}, err
	}
	if url.Valid {
		k.URL = url.String
	}
	if content.Valid {
		k.Content = content.String
	}
	if title.Valid {
		k.Title = title.String
	}
	if contentHash.Valid {
		k.ContentHash = contentHash.String
	}
	k.Metadata = e.parseMetadata(metadata, k.ID)
	k.CreatedAt = timestamp(createdAt)
	return k, nil
}

func (e *Engine) parseMetadata(raw []byte, id uuid.UUID) map[string]any {
	metadata := map[string]any{}
	if len(raw) == 0 {
		return metadata
	}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		e.logger.Warn("failed to parse metadata", "id", id, "error", err)
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
