// Package ingest turns documents into searchable vector records: split into
// overlapping chunks, embed each chunk, store the batch.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/retrieval-gateway/models"
	"github.com/upb/retrieval-gateway/services"
	"github.com/upb/retrieval-gateway/services/chunker"
	"github.com/upb/retrieval-gateway/services/embedding"
	"github.com/upb/retrieval-gateway/services/vectorstore"
	"go.uber.org/zap"
)

// Result reports one document's ingestion
type Result struct {
	DocumentID uuid.UUID     `json:"document_id"`
	Title      string        `json:"title"`
	ChunkCount int           `json:"chunk_count"`
	Elapsed    time.Duration `json:"elapsed_ms"`
}

// Service coordinates the chunk-embed-store flow
type Service struct {
	chunker  *chunker.Service
	embedder embedding.Embedder
	store    *vectorstore.Service
	logger   *zap.Logger
}

// New creates an ingestion service
func New(ch *chunker.Service, emb embedding.Embedder, store *vectorstore.Service, logger *zap.Logger) *Service {
	return &Service{chunker: ch, embedder: emb, store: store, logger: logger}
}

// Ingest splits, embeds, and stores one document. The store write is a single
// batch, so a mid-flight failure leaves no partial document behind.
func (s *Service) Ingest(ctx context.Context, doc *models.Document) (*Result, error) {
	started := time.Now()

	chunks, err := s.chunker.Split(doc)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeEmbedding, "failed to embed document chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, services.NewDomainError(services.ErrorTypeEmbedding,
			"embedder returned a mismatched vector count", nil).
			WithDetail("chunks", len(chunks)).
			WithDetail("vectors", len(vectors))
	}

	records := make([]models.VectorRecord, len(chunks))
	now := time.Now().UTC()
	for i := range chunks {
		records[i] = models.VectorRecord{Chunk: chunks[i], Vector: vectors[i], UpdatedAt: now}
	}
	if err := s.store.Add(ctx, records); err != nil {
		return nil, err
	}

	elapsed := time.Since(started)
	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID.String()),
		zap.String("title", doc.Title),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", elapsed))

	return &Result{
		DocumentID: doc.ID,
		Title:      doc.Title,
		ChunkCount: len(chunks),
		Elapsed:    elapsed,
	}, nil
}

// IngestBatch ingests documents sequentially, stopping at the first failure.
// Results for documents already ingested are returned alongside the error.
func (s *Service) IngestBatch(ctx context.Context, docs []*models.Document) ([]Result, error) {
	results := make([]Result, 0, len(docs))
	for _, doc := range docs {
		res, err := s.Ingest(ctx, doc)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// Remove deletes every stored chunk of one document
func (s *Service) Remove(ctx context.Context, documentID uuid.UUID) error {
	return s.store.RemoveDocument(ctx, documentID)
}
