package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/retrieval-gateway/services/vectorstore"
	"github.com/upb/retrieval-gateway/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	auditDB *sql.DB // nil when no audit sink is configured
	store   *vectorstore.Service
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(auditDB *sql.DB, store *vectorstore.Service, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{auditDB: auditDB, store: store, logger: logger}
}

// HandleHealth handles GET /healthz
// Basic liveness check - always returns 200 if the service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if _, err := h.store.Stats(ctx); err != nil {
		h.logger.Warn("vector store health check failed", zap.Error(err))
		checks["vector_store"] = "unhealthy"
		allHealthy = false
	} else {
		checks["vector_store"] = "healthy"
	}

	if err := h.checkAuditDatabase(ctx); err != nil {
		h.logger.Warn("audit database health check failed", zap.Error(err))
		checks["audit_database"] = "unhealthy"
		allHealthy = false
	} else if h.auditDB != nil {
		checks["audit_database"] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkAuditDatabase checks audit sink connectivity
func (h *HealthHandler) checkAuditDatabase(ctx context.Context) error {
	if h.auditDB == nil {
		return nil // No audit sink configured
	}

	if err := h.auditDB.PingContext(ctx); err != nil {
		return err
	}

	var result int
	if err := h.auditDB.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return err
	}

	return nil
}
