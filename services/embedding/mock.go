package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
)

// MockEmbedder produces deterministic pseudo-random unit vectors seeded by a
// hash of the input text. Texts sharing words produce correlated vectors, so
// similarity ranking behaves sensibly in tests and demos. It satisfies the
// same interface as the production embedder; selection is by dependency
// substitution, never by conditional branches in the pipeline.
type MockEmbedder struct {
	dimension int
}

// NewMockEmbedder creates a deterministic embedder with the given dimension
func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension}
}

// Embed generates the deterministic embedding for text
func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dimension)

	// sum per-word pseudo-random vectors so shared words move texts closer
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		rng := rand.New(rand.NewSource(int64(h.Sum64())))
		for i := range vec {
			vec[i] += rng.NormFloat64()
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimension)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch generates embeddings for multiple texts
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimension returns the embedding vector dimension
func (e *MockEmbedder) Dimension() int { return e.dimension }

// ModelName returns a fixed identifier for the mock model
func (e *MockEmbedder) ModelName() string { return "mock-hash-v1" }
