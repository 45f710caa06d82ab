// Package embedding provides the OpenAI embedder used by the storage and
// semantic packages.
//
// Both consumers define their own Embedder interface; OpenAI satisfies them
// with GetEmbedding. Embedding calls are rate-limited client-side so bulk
// writes cannot exhaust the API quota.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the default OpenAI embedding model.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions matches the vector(1536) knowledge column.
	DefaultDimensions = 1536

	// DefaultMaxRetries is the maximum number of retries per embedding call.
	DefaultMaxRetries = 2

	// defaultRequestsPerSecond is the client-side rate limit on embedding
	// calls.
	defaultRequestsPerSecond = 10
)

// defaultRetryBackoff holds the backoff durations for retry attempts; the
// last entry repeats for further retries.
var defaultRetryBackoff = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
}

// OpenAI generates embeddings through the OpenAI API.
// Safe for concurrent use.
type OpenAI struct {
	client       openai.Client
	model        string
	dimensions   int
	apiKey       string
	baseURL      string
	limiter      *rate.Limiter
	logger       *slog.Logger
	maxRetries   int
	retryBackoff []time.Duration
}

// Option configures the OpenAI embedder.
type Option func(*OpenAI)

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(e *OpenAI) {
		e.model = model
	}
}

// WithDimensions sets the embedding width. Only text-embedding-3 models
// honor it; it must match the database vector column.
func WithDimensions(dimensions int) Option {
	return func(e *OpenAI) {
		e.dimensions = dimensions
	}
}

// WithAPIKey sets the API key explicitly. Without it the SDK falls back to
// the OPENAI_API_KEY environment variable.
func WithAPIKey(apiKey string) Option {
	return func(e *OpenAI) {
		e.apiKey = apiKey
	}
}

// WithBaseURL points the client at an OpenAI-compatible API.
func WithBaseURL(baseURL string) Option {
	return func(e *OpenAI) {
		e.baseURL = baseURL
	}
}

// WithRateLimit caps embedding calls per second. Non-positive values
// disable the limiter.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(e *OpenAI) {
		if requestsPerSecond <= 0 {
			e.limiter = nil
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithMaxRetries sets the maximum number of retries for failed calls.
// Negative values are treated as 0.
func WithMaxRetries(maxRetries int) Option {
	return func(e *OpenAI) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		e.maxRetries = maxRetries
	}
}

// WithLogger sets the logger; nil uses slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *OpenAI) {
		e.logger = logger
	}
}

// New creates an OpenAI embedder with the given options.
func New(opts ...Option) *OpenAI {
	e := &OpenAI{
		model:        DefaultModel,
		dimensions:   DefaultDimensions,
		limiter:      rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		maxRetries:   DefaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	var clientOpts []option.RequestOption
	if e.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(e.apiKey))
	}
	if e.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(e.baseURL))
	}
	// Retries are handled here with explicit backoff, not in the SDK.
	clientOpts = append(clientOpts, option.WithMaxRetries(0))

	e.client = openai.NewClient(clientOpts...)
	return e
}

// Model returns the configured embedding model.
func (e *OpenAI) Model() string { return e.model }

// Dimensions returns the configured embedding width.
func (e *OpenAI) Dimensions() int { return e.dimensions }

// GetEmbedding generates an embedding vector for the given text. It blocks
// on the rate limiter first, so concurrent bulk writes queue instead of
// bursting.
func (e *OpenAI) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	response, err := e.createWithRetry(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}

	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response for model %s", e.model)
	}

	raw := response.Data[0].Embedding
	values := make([]float32, len(raw))
	for i, v := range raw {
		values[i] = float32(v)
	}
	return values, nil
}

// createWithRetry calls the embeddings API with bounded retries and backoff.
func (e *OpenAI) createWithRetry(ctx context.Context, text string) (*openai.CreateEmbeddingResponse, error) {
	request := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	// Only text-embedding-3 models accept a dimensions parameter.
	if strings.HasPrefix(e.model, "text-embedding-3") {
		request.Dimensions = openai.Int(int64(e.dimensions))
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		response, err := e.client.Embeddings.New(ctx, request)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if attempt >= e.maxRetries {
			break
		}

		backoff := e.backoffFor(attempt)
		e.logger.Debug("embedding request failed, retrying",
			"attempt", attempt+1,
			"max_retries", e.maxRetries,
			"backoff", backoff,
			"error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func (e *OpenAI) backoffFor(attempt int) time.Duration {
	if len(e.retryBackoff) == 0 {
		return 0
	}
	if attempt < len(e.retryBackoff) {
		return e.retryBackoff[attempt]
	}
	return e.retryBackoff[len(e.retryBackoff)-1]
}
