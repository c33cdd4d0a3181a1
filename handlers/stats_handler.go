package handlers

import (
	"net/http"

	"github.com/upb/retrieval-gateway/services/embedding"
	"github.com/upb/retrieval-gateway/services/vectorstore"
	"github.com/upb/retrieval-gateway/utils"
	"go.uber.org/zap"
)

// StatsResponse reports the store snapshot plus the active embedding model
type StatsResponse struct {
	TotalVectors   int    `json:"total_vectors"`
	Dimension      int    `json:"dimension"`
	EstimatedBytes int64  `json:"estimated_bytes"`
	DocumentCount  int    `json:"document_count"`
	EmbeddingModel string `json:"embedding_model"`
}

// StatsHandler handles store inspection and administrative reset
type StatsHandler struct {
	store    *vectorstore.Service
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(store *vectorstore.Service, embedder embedding.Embedder, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{store: store, embedder: embedder, logger: logger}
}

// HandleStats handles GET /api/v1/stats
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		_ = utils.WriteDomainError(w, err)
		return
	}

	_ = utils.WriteOK(w, StatsResponse{
		TotalVectors:   stats.TotalVectors,
		Dimension:      stats.Dimension,
		EstimatedBytes: stats.EstimatedBytes,
		DocumentCount:  stats.DocumentCount,
		EmbeddingModel: h.embedder.ModelName(),
	})
}

// HandleClear handles POST /api/v1/admin/clear
func (h *StatsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear vector store", zap.Error(err))
		_ = utils.WriteDomainError(w, err)
		return
	}

	h.logger.Info("vector store cleared")
	utils.WriteNoContent(w)
}
