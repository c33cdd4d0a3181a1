// Package handlers contains the thin HTTP layer. Handlers decode, validate,
// delegate to services, and map domain errors onto HTTP responses.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/upb/retrieval-gateway/middleware"
	"github.com/upb/retrieval-gateway/services/pipeline"
	"github.com/upb/retrieval-gateway/utils"
	"go.uber.org/zap"
)

// QueryRequest represents a retrieval query request
type QueryRequest struct {
	Text        string `json:"text" validate:"required,max=8192"`
	TopK        int    `json:"top_k,omitempty" validate:"gte=0,lte=100"`
	TitleFilter string `json:"title_filter,omitempty" validate:"max=512"`
}

// QueryHandler handles retrieval query requests
type QueryHandler struct {
	pipeline *pipeline.Service
	logger   *zap.Logger
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(p *pipeline.Service, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{pipeline: p, logger: logger}
}

// HandleQuery handles POST /api/v1/query
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON in request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		_ = utils.WriteBadRequest(w, "Validation failed", details)
		return
	}

	identity := middleware.GetIdentityFromContext(r.Context())

	result, err := h.pipeline.AnswerQuery(r.Context(), pipeline.QueryRequest{
		Text:        req.Text,
		Identity:    identity,
		TopK:        req.TopK,
		TitleFilter: req.TitleFilter,
	})
	if err != nil {
		h.logger.Debug("query rejected",
			zap.String("identity", identity),
			zap.Error(err))
		_ = utils.WriteDomainError(w, err)
		return
	}

	_ = utils.WriteOK(w, result)
}
