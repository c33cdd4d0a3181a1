// Package embedding provides the vector-producing capability consumed by the
// retrieval pipeline. The gateway treats embedding as opaque: any implementation
// with a fixed output dimension satisfies the interface.
package embedding

import "context"

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one vector per input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
