package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/retrieval-gateway/services"
	"go.uber.org/zap"
)

// Config holds settings for the OpenAI-compatible embedding client.
// Ollama's /v1/embeddings endpoint speaks the same protocol.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIEmbedder creates an embedder against cfg.BaseURL.
// The per-call timeout bounds every request; retries apply only to
// transient failures.
func NewOpenAIEmbedder(cfg Config, logger *zap.Logger) (*OpenAIEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, services.NewDomainError(services.ErrorTypeInvalidConfiguration,
			"embedding base URL is required", nil)
	}
	if cfg.Model == "" {
		return nil, services.NewDomainError(services.ErrorTypeInvalidConfiguration,
			"embedding model is required", nil)
	}
	if cfg.Dimension <= 0 {
		return nil, services.NewDomainError(services.ErrorTypeInvalidConfiguration,
			"embedding dimension must be positive", nil).WithDetail("dimension", cfg.Dimension)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &OpenAIEmbedder{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Embed generates the embedding for a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeInvalidArgument,
			"no texts to embed", nil)
	}

	var lastErr error
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			e.logger.Debug("retrying embedding request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, services.NewDomainError(services.ErrorTypeEmbedding,
					"embedding cancelled", ctx.Err())
			}
		}

		vectors, err := e.doRequest(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !services.IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (e *OpenAIEmbedder) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: e.config.Model})
	if err != nil {
		return nil, services.WrapInternal("failed to encode embedding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, services.WrapInternal("failed to build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &services.DomainError{
				Type: services.ErrorTypeEmbedding, Message: "embedding request timed out",
				Err: err, Retryable: true,
			}
		}
		return nil, services.NewDomainError(services.ErrorTypeEmbedding,
			"embedding capability unavailable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.WrapInternal("failed to read embedding response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &services.DomainError{
			Type:      services.ErrorTypeEmbedding,
			Message:   fmt.Sprintf("embedding endpoint returned status %d", resp.StatusCode),
			Retryable: true,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.NewDomainError(services.ErrorTypeEmbedding,
			fmt.Sprintf("embedding endpoint returned status %d", resp.StatusCode), nil)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, services.WrapInternal("failed to decode embedding response", err)
	}
	if parsed.Error != nil {
		return nil, services.NewDomainError(services.ErrorTypeEmbedding,
			parsed.Error.Message, nil)
	}
	if len(parsed.Data) != len(texts) {
		return nil, services.NewDomainError(services.ErrorTypeEmbedding,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(parsed.Data)), nil)
	}

	// the API may return entries out of order; place them by index
	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, services.NewDomainError(services.ErrorTypeEmbedding,
				fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		if len(d.Embedding) != e.config.Dimension {
			return nil, services.NewDomainError(services.ErrorTypeDimensionMismatch,
				fmt.Sprintf("model returned %d-dimensional vector, expected %d",
					len(d.Embedding), e.config.Dimension), nil)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Dimension returns the embedding vector dimension
func (e *OpenAIEmbedder) Dimension() int { return e.config.Dimension }

// ModelName returns the name of the embedding model
func (e *OpenAIEmbedder) ModelName() string { return e.config.Model }

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
