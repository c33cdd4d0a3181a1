package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/retrieval-gateway/models"
	"github.com/upb/retrieval-gateway/services/ingest"
	"github.com/upb/retrieval-gateway/utils"
	"go.uber.org/zap"
)

const maxBulkDocuments = 100

// IngestDocumentRequest represents one document to ingest. Text must already
// be extracted; the gateway does not parse file formats.
type IngestDocumentRequest struct {
	Title    string `json:"title" validate:"required,max=512"`
	Text     string `json:"text" validate:"required"`
	FileType string `json:"file_type,omitempty" validate:"max=32"`
	Category string `json:"category,omitempty" validate:"max=128"`
}

// BulkIngestRequest represents a batch of documents to ingest
type BulkIngestRequest struct {
	Documents []IngestDocumentRequest `json:"documents" validate:"required,min=1,max=100,dive"`
}

// DocumentHandler handles document ingestion and removal
type DocumentHandler struct {
	ingest *ingest.Service
	logger *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(svc *ingest.Service, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{ingest: svc, logger: logger}
}

// HandleIngest handles POST /api/v1/documents
func (h *DocumentHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON in request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, "Validation failed", fieldDetails(err))
		return
	}

	doc := req.toDocument()
	result, err := h.ingest.Ingest(r.Context(), doc)
	if err != nil {
		h.logger.Error("document ingestion failed",
			zap.String("title", req.Title),
			zap.Error(err))
		_ = utils.WriteDomainError(w, err)
		return
	}

	_ = utils.WriteCreated(w, result)
}

// HandleIngestBulk handles POST /api/v1/documents/bulk
func (h *DocumentHandler) HandleIngestBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON in request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, "Validation failed", fieldDetails(err))
		return
	}
	if len(req.Documents) > maxBulkDocuments {
		_ = utils.WriteBadRequest(w, "Too many documents in one batch",
			map[string]interface{}{"max": maxBulkDocuments})
		return
	}

	docs := make([]*models.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = d.toDocument()
	}

	results, err := h.ingest.IngestBatch(r.Context(), docs)
	if err != nil {
		h.logger.Error("bulk ingestion failed",
			zap.Int("ingested", len(results)),
			zap.Int("total", len(docs)),
			zap.Error(err))
		_ = utils.WriteDomainError(w, err)
		return
	}

	_ = utils.WriteCreated(w, map[string]interface{}{
		"ingested": len(results),
		"results":  results,
	})
}

// HandleDelete handles DELETE /api/v1/documents/{id}
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	documentID, err := uuid.Parse(idParam)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid document ID",
			map[string]interface{}{"id": idParam})
		return
	}

	if err := h.ingest.Remove(r.Context(), documentID); err != nil {
		_ = utils.WriteDomainError(w, err)
		return
	}

	h.logger.Info("document removed", zap.String("document_id", documentID.String()))
	utils.WriteNoContent(w)
}

func (r *IngestDocumentRequest) toDocument() *models.Document {
	doc := models.NewDocument(r.Title, r.Text, r.FileType)
	if r.Category != "" {
		doc.WithCategory(r.Category)
	}
	return doc.WithSource(models.SourceTypeUpload)
}

// fieldDetails converts validation field errors into response details
func fieldDetails(err error) map[string]interface{} {
	fields := utils.GetValidationFields(err)
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return details
}
