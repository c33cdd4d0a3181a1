// Package vectorstore holds embedded chunks and serves cosine-similarity
// searches over them. Search is a linear scan, which is adequate at the target
// scale of tens of thousands of chunks; durability is delegated to a pluggable
// repository that a native index could replace later.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/retrieval-gateway/models"
	"github.com/upb/retrieval-gateway/repositories"
	"github.com/upb/retrieval-gateway/services"
	"go.uber.org/zap"
)

// Config holds vector store settings
type Config struct {
	// Dimension fixes the vector dimension up front. Zero means the first
	// successful insert fixes it.
	Dimension int

	// MinScore drops search results scoring below the floor. Zero disables it.
	MinScore float64
}

// Service is the in-memory vector store. Readers (Search, Stats) share a lock;
// writers (Add, Clear, RemoveDocument) are mutually exclusive.
type Service struct {
	mu        sync.RWMutex
	dimension int
	records   []models.VectorRecord // insertion order, authoritative for tie breaks
	index     map[uuid.UUID]int     // chunk ID -> position in records
	docCounts map[uuid.UUID]int     // document ID -> live chunk count

	minScore float64
	repo     repositories.VectorRepository // optional durability
	logger   *zap.Logger
}

// New creates a vector store. repo may be nil for a purely in-memory store.
func New(cfg Config, repo repositories.VectorRepository, logger *zap.Logger) (*Service, error) {
	if cfg.Dimension < 0 {
		return nil, services.NewDomainError(services.ErrorTypeInvalidConfiguration,
			"store dimension cannot be negative", nil).WithDetail("dimension", cfg.Dimension)
	}
	return &Service{
		dimension: cfg.Dimension,
		index:     make(map[uuid.UUID]int),
		docCounts: make(map[uuid.UUID]int),
		minScore:  cfg.MinScore,
		repo:      repo,
		logger:    logger,
	}, nil
}

// Load replaces in-memory state with the repository contents. Called once at
// startup before the store is shared.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return services.WrapStorage("failed to load vector records", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
	s.index = make(map[uuid.UUID]int, len(records))
	s.docCounts = make(map[uuid.UUID]int)
	for i, rec := range records {
		s.index[rec.Chunk.ID] = i
		s.docCounts[rec.Chunk.DocumentID]++
		if s.dimension == 0 {
			s.dimension = len(rec.Vector)
		}
	}

	s.logger.Info("vector store loaded",
		zap.Int("records", len(records)),
		zap.Int("dimension", s.dimension))
	return nil
}

// Add bulk-upserts records. A chunk ID colliding within the same batch is a
// duplicate error; re-adding an ID from an earlier batch overwrites in place,
// keeping the original insertion position so tie breaking stays stable. Any
// vector whose length differs from the store dimension aborts the whole batch.
func (s *Service) Add(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 {
		dim = len(records[0].Vector)
	}

	seen := make(map[uuid.UUID]struct{}, len(records))
	for i := range records {
		rec := &records[i]
		if len(rec.Vector) != dim {
			return services.NewDomainError(services.ErrorTypeDimensionMismatch,
				fmt.Sprintf("vector for chunk %s has dimension %d, store dimension is %d",
					rec.Chunk.ID, len(rec.Vector), dim), nil)
		}
		if _, dup := seen[rec.Chunk.ID]; dup {
			return services.NewDomainError(services.ErrorTypeDuplicateChunk,
				fmt.Sprintf("chunk %s appears twice in batch", rec.Chunk.ID), nil)
		}
		seen[rec.Chunk.ID] = struct{}{}
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = time.Now().UTC()
		}
	}

	if s.repo != nil {
		if err := s.repo.SaveBatch(ctx, records); err != nil {
			return services.WrapStorage("failed to persist vector batch", err)
		}
	}

	for _, rec := range records {
		if pos, exists := s.index[rec.Chunk.ID]; exists {
			old := s.records[pos]
			if old.Chunk.DocumentID != rec.Chunk.DocumentID {
				s.docCounts[old.Chunk.DocumentID]--
				if s.docCounts[old.Chunk.DocumentID] <= 0 {
					delete(s.docCounts, old.Chunk.DocumentID)
				}
				s.docCounts[rec.Chunk.DocumentID]++
			}
			s.records[pos] = rec
			continue
		}
		s.index[rec.Chunk.ID] = len(s.records)
		s.records = append(s.records, rec)
		s.docCounts[rec.Chunk.DocumentID]++
	}
	s.dimension = dim

	return nil
}

// Search returns the topK most similar records in strictly non-increasing
// score order. Ties rank earlier-inserted chunks higher. An empty store yields
// an empty result, not an error.
func (s *Service) Search(ctx context.Context, query []float32, topK int, titleFilter string) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, services.NewDomainError(services.ErrorTypeInvalidArgument,
			"topK must be positive", nil).WithDetail("top_k", topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []models.SearchResult{}, nil
	}
	if s.dimension != 0 && len(query) != s.dimension {
		return nil, services.NewDomainError(services.ErrorTypeDimensionMismatch,
			fmt.Sprintf("query vector has dimension %d, store dimension is %d",
				len(query), s.dimension), nil)
	}

	type scored struct {
		pos   int
		score float64
	}
	candidates := make([]scored, 0, len(s.records))
	for i := range s.records {
		if err := ctx.Err(); err != nil {
			return nil, services.WrapInternal("search cancelled", err)
		}
		rec := &s.records[i]
		if titleFilter != "" && rec.Chunk.Title != titleFilter {
			continue
		}
		score := CosineSimilarity(query, rec.Vector)
		if s.minScore > 0 && score < s.minScore {
			continue
		}
		candidates = append(candidates, scored{pos: i, score: score})
	}

	// stable sort keeps insertion order among equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}
	results := make([]models.SearchResult, 0, topK)
	for rank, c := range candidates[:topK] {
		rec := &s.records[c.pos]
		results = append(results, models.SearchResult{
			ChunkID:    rec.Chunk.ID,
			DocumentID: rec.Chunk.DocumentID,
			Score:      c.score,
			Rank:       rank + 1,
			Title:      rec.Chunk.Title,
			Category:   rec.Chunk.Category,
			Text:       rec.Chunk.Text,
			Ordinal:    rec.Chunk.Ordinal,
		})
	}
	return results, nil
}

// Stats returns a read-only snapshot of the store
func (s *Service) Stats(ctx context.Context) (models.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bytes int64
	for i := range s.records {
		bytes += int64(len(s.records[i].Vector))*4 + int64(len(s.records[i].Chunk.Text)) + recordOverheadBytes
	}

	return models.StoreStats{
		TotalVectors:   len(s.records),
		Dimension:      s.dimension,
		EstimatedBytes: bytes,
		DocumentCount:  len(s.docCounts),
	}, nil
}

// Clear removes all records. Idempotent.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.DeleteAll(ctx); err != nil {
			return services.WrapStorage("failed to clear vector repository", err)
		}
	}

	s.records = nil
	s.index = make(map[uuid.UUID]int)
	s.docCounts = make(map[uuid.UUID]int)
	return nil
}

// RemoveDocument deletes every chunk of one document
func (s *Service) RemoveDocument(ctx context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docCounts[documentID]; !ok {
		return services.ErrDocumentNotFound
	}

	if s.repo != nil {
		if err := s.repo.DeleteDocument(ctx, documentID); err != nil {
			return services.WrapStorage("failed to delete document vectors", err)
		}
	}

	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.Chunk.DocumentID != documentID {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	s.index = make(map[uuid.UUID]int, len(kept))
	for i, rec := range kept {
		s.index[rec.Chunk.ID] = i
	}
	delete(s.docCounts, documentID)

	return nil
}

const recordOverheadBytes = 64

// CosineSimilarity computes dot(a,b)/(|a||b|). A zero norm on either side
// yields 0 by definition, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
