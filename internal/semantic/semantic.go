// Package semantic provides embedding-based similarity search over
// knowledge content.
//
// A query is embedded once, then ranked against stored vectors by cosine
// similarity, normalized to [0,1] as 1 - (embedding <=> query). Rows whose
// embedding is NULL (never computed, or skipped after an embedding failure)
// are excluded by the candidate filter rather than treated as errors:
// missing embeddings reduce recall, nothing else.
package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/petdex/petdex/internal/entity"
)

var (
	// ErrNotConfigured indicates semantic search is unavailable because no
	// embedder is configured. The HTTP layer maps this to 503, distinct from
	// a request error.
	ErrNotConfigured = errors.New("semantic search not configured: no embedder available")

	// ErrInvalidThreshold indicates a similarity threshold outside [0,1].
	ErrInvalidThreshold = errors.New("similarity threshold must be between 0 and 1")
)

// Search bounds and defaults.
const (
	DefaultLimit     = 20
	MaxLimit         = 100
	DefaultThreshold = 0.7

	// queryTimeout bounds vector search queries so a cold index cannot
	// block a request indefinitely.
	queryTimeout = 10 * time.Second
)

// Embedder generates the query embedding. internal/embedding provides the
// production implementation.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Result is one knowledge row with its similarity to the query, in [0,1],
// higher is more similar.
type Result struct {
	Knowledge  entity.Knowledge `json:"knowledge"`
	Similarity float64          `json:"similarity"`
}

// Searcher runs semantic queries over the knowledge store.
// Safe for concurrent use.
type Searcher struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

// New creates a Searcher. embedder may be nil, in which case every search
// returns ErrNotConfigured; this keeps the rest of the system usable when no
// embedding credentials are present.
func New(pool *pgxpool.Pool, embedder Embedder, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{pool: pool, embedder: embedder, logger: logger}
}

// Params are the common knobs of every semantic search scope. Zero values
// select the defaults.
type Params struct {
	Limit     int
	Threshold float64

	// thresholdSet distinguishes an explicit 0 from an absent threshold.
	thresholdSet bool
}

// WithThreshold returns params with an explicit similarity threshold.
// An explicit 0 means "no filtering", unlike the zero value which selects
// DefaultThreshold.
func (p Params) WithThreshold(threshold float64) Params {
	p.Threshold = threshold
	p.thresholdSet = true
	return p
}

// normalize validates and defaults the search parameters.
func (p Params) normalize() (int, float64, error) {
	limit := p.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	threshold := p.Threshold
	if !p.thresholdSet && threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 || threshold > 1 {
		return 0, 0, fmt.Errorf("%w: got %g", ErrInvalidThreshold, threshold)
	}
	return limit, threshold, nil
}

const knowledgeResultColumns = `k.id, k.datainstance_id, k.url, k.content, k.title, k.content_hash, k.metadata, k.created_at`

// SearchKnowledge searches every knowledge row in the store.
func (s *Searcher) SearchKnowledge(ctx context.Context, query string, params Params) ([]Result, error) {
	return s.search(ctx, query, params, `
		SELECT `+knowledgeResultColumns+`,
		       1 - (k.embedding <=> $1) AS similarity
		FROM knowledge k
		WHERE k.embedding IS NOT NULL
		  AND 1 - (k.embedding <=> $1) >= $2
		ORDER BY k.embedding <=> $1
		LIMIT $3`)
}

// SearchPetKnowledge restricts the search to one pet's knowledge.
func (s *Searcher) SearchPetKnowledge(ctx context.Context, petID uuid.UUID, query string, params Params) ([]Result, error) {
	return s.search(ctx, query, params, `
		SELECT `+knowledgeResultColumns+`,
		       1 - (k.embedding <=> $1) AS similarity
		FROM knowledge k
		JOIN datainstances d ON d.id = k.datainstance_id
		WHERE d.pet_id = $4
		  AND k.embedding IS NOT NULL
		  AND 1 - (k.embedding <=> $1) >= $2
		ORDER BY k.embedding <=> $1
		LIMIT $3`, petID)
}

// SearchUserKnowledge restricts the search to every pet owned by a wallet.
func (s *Searcher) SearchUserKnowledge(ctx context.Context, ownerWallet, query string, params Params) ([]Result, error) {
	return s.search(ctx, query, params, `
		SELECT `+knowledgeResultColumns+`,
		       1 - (k.embedding <=> $1) AS similarity
		FROM knowledge k
		JOIN datainstances d ON d.id = k.datainstance_id
		JOIN pets p ON p.id = d.pet_id
		WHERE p.owner_wallet = $4
		  AND k.embedding IS NOT NULL
		  AND 1 - (k.embedding <=> $1) >= $2
		ORDER BY k.embedding <=> $1
		LIMIT $3`, ownerWallet)
}

// search embeds the query and runs one of the scope queries. Extra args fill
// placeholders from $4 on.
func (s *Searcher) search(ctx context.Context, query string, params Params, sql string, extraArgs ...any) ([]Result, error) {
	if s.embedder == nil {
		return nil, ErrNotConfigured
	}

	limit, threshold, err := params.normalize()
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	values, err := s.embedder.GetEmbedding(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty embedding returned for query")
	}
	queryVec := pgvector.NewVector(values)

	args := append([]any{queryVec, threshold, limit}, extraArgs...)
	rows, err := s.pool.Query(queryCtx, sql, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("semantic search timeout: %w", err)
		}
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		r, err := s.scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning semantic result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	s.logger.Debug("semantic search",
		"results", len(results),
		"limit", limit,
		"threshold", threshold)
	return results, nil
}

func (s *Searcher) scanResult(rows pgx.Rows) (Result, error) {
	var r Result
	var url, content, title, contentHash pgtype.Text
	var metadata []byte
	var createdAt pgtype.Timestamptz
	err := rows.Scan(&r.Knowledge.ID, &r.Knowledge.InstanceID,
		&url, &content, &title, &contentHash, &metadata, &createdAt,
		&r.Similarity)
	if err != nil {
		return Result{}, err
	}
	if url.Valid {
		r.Knowledge.URL = url.String
	}
	if content.Valid {
		r.Knowledge.Content = content.String
	}
	if title.Valid {
		r.Knowledge.Title = title.String
	}
	if contentHash.Valid {
		r.Knowledge.ContentHash = contentHash.String
	}
	r.Knowledge.Metadata = map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &r.Knowledge.Metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "id", r.Knowledge.ID, "error", err)
			r.Knowledge.Metadata = map[string]any{}
		}
	}
	if createdAt.Valid {
		r.Knowledge.CreatedAt = createdAt.Time
	}
	return r, nil
}
