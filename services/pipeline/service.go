// Package pipeline orchestrates a retrieval query end to end: screen the
// query, embed it, search the vector store, sanitize each hit.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/upb/retrieval-gateway/models"
	"github.com/upb/retrieval-gateway/services"
	"github.com/upb/retrieval-gateway/services/embedding"
	"github.com/upb/retrieval-gateway/services/guardrails"
	"github.com/upb/retrieval-gateway/services/vectorstore"
	"go.uber.org/zap"
)

const (
	defaultTopK    = 5
	maxTopK        = 50
	maxQueryLength = 8192
)

// Config holds pipeline settings
type Config struct {
	DefaultTopK  int
	MaxTopK      int
	EmbedTimeout time.Duration
}

// QueryRequest is one retrieval query
type QueryRequest struct {
	Text        string
	Identity    string
	TopK        int
	TitleFilter string
}

// QueryResult is the answer to a query. Violations carries query-side
// detections that did not block; per-result residual findings ride on each
// SearchResult.
type QueryResult struct {
	Results    []models.SearchResult `json:"results"`
	Violations []models.Violation    `json:"violations,omitempty"`
	Redacted   bool                  `json:"redacted"`
	EmbedMS    int64                 `json:"embed_ms"`
	SearchMS   int64                 `json:"search_ms"`
	TotalMS    int64                 `json:"total_ms"`
}

// Service wires the guardrails engine, embedder, and vector store into the
// query path
type Service struct {
	guardrails *guardrails.Service
	embedder   embedding.Embedder
	store      *vectorstore.Service

	defaultTopK  int
	maxTopK      int
	embedTimeout time.Duration
	logger       *zap.Logger
}

// New creates a retrieval pipeline
func New(cfg Config, gr *guardrails.Service, emb embedding.Embedder, store *vectorstore.Service, logger *zap.Logger) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = defaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = maxTopK
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	return &Service{
		guardrails:   gr,
		embedder:     emb,
		store:        store,
		defaultTopK:  cfg.DefaultTopK,
		maxTopK:      cfg.MaxTopK,
		embedTimeout: cfg.EmbedTimeout,
		logger:       logger,
	}
}

// AnswerQuery runs the full query path. A blocked query returns a domain error
// naming the violation kinds, never the offending text itself.
func (s *Service) AnswerQuery(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	started := time.Now()

	if strings.TrimSpace(req.Text) == "" {
		return nil, services.ErrEmptyQuery
	}
	if len(req.Text) > maxQueryLength {
		return nil, services.NewDomainError(services.ErrorTypeInvalidArgument,
			"query text exceeds maximum length", nil).WithDetail("max_length", maxQueryLength)
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	decision := s.guardrails.ValidateQuery(req.Identity, req.Text)
	if !decision.Allowed {
		return nil, s.rejectionError(decision)
	}

	embedStart := time.Now()
	query, err := s.embedQuery(ctx, req.Text)
	if err != nil {
		return nil, err
	}
	embedMS := time.Since(embedStart).Milliseconds()

	searchStart := time.Now()
	hits, err := s.store.Search(ctx, query, topK, req.TitleFilter)
	if err != nil {
		return nil, err
	}
	searchMS := time.Since(searchStart).Milliseconds()

	result := &QueryResult{
		Results:    make([]models.SearchResult, 0, len(hits)),
		Violations: decision.Violations,
		EmbedMS:    embedMS,
		SearchMS:   searchMS,
	}
	for _, hit := range hits {
		sanitized := s.guardrails.ValidateResponse(req.Identity, hit.Text)
		hit.Text = sanitized.Text
		hit.Violations = sanitized.Violations
		if sanitized.Redacted {
			result.Redacted = true
		}
		result.Results = append(result.Results, hit)
	}

	result.TotalMS = time.Since(started).Milliseconds()
	s.logger.Info("query answered",
		zap.String("identity", req.Identity),
		zap.Int("results", len(result.Results)),
		zap.Bool("redacted", result.Redacted),
		zap.Int64("total_ms", result.TotalMS))
	return result, nil
}

// embedQuery embeds under a bounded timeout. Transient-failure retries and
// their backoff live inside the embedder, so this is a single call.
func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(embedCtx, text)
	if err != nil {
		if services.GetErrorType(err) == services.ErrorTypeEmbedding {
			return nil, err
		}
		return nil, services.WrapError(services.ErrorTypeEmbedding, "failed to embed query", err)
	}
	return vec, nil
}

// rejectionError maps a blocked decision to the matching domain error. Details
// carry violation kinds only, never excerpts of the query.
func (s *Service) rejectionError(decision guardrails.Decision) error {
	kinds := make([]string, 0, len(decision.Violations))
	rateLimited := false
	for _, v := range decision.Violations {
		kinds = append(kinds, string(v.Kind))
		if v.Kind == models.ViolationKindRateLimitExceeded {
			rateLimited = true
		}
	}

	if rateLimited {
		return services.NewDomainError(services.ErrorTypeRateLimit,
			"rate limit exceeded", nil).
			WithDetail("reset_at", decision.ResetAt.UTC().Format(time.RFC3339))
	}
	return services.NewDomainError(services.ErrorTypePolicyRejection,
		"query rejected by content policy", nil).
		WithDetail("violation_kinds", kinds)
}
