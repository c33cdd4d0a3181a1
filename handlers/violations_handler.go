package handlers

import (
	"net/http"
	"strconv"

	"github.com/upb/retrieval-gateway/services/guardrails"
	"github.com/upb/retrieval-gateway/utils"
	"go.uber.org/zap"
)

const maxSummaryWindowHours = 24 * 30

// ViolationsHandler exposes the violation ledger summary
type ViolationsHandler struct {
	guardrails *guardrails.Service
	logger     *zap.Logger
}

// NewViolationsHandler creates a new ViolationsHandler
func NewViolationsHandler(gr *guardrails.Service, logger *zap.Logger) *ViolationsHandler {
	return &ViolationsHandler{guardrails: gr, logger: logger}
}

// HandleSummary handles GET /api/v1/violations/summary?window_hours=24
func (h *ViolationsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	windowHours := 24
	if raw := r.URL.Query().Get("window_hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxSummaryWindowHours {
			_ = utils.WriteBadRequest(w, "window_hours must be an integer between 1 and 720",
				map[string]interface{}{"window_hours": raw})
			return
		}
		windowHours = parsed
	}

	summary := h.guardrails.Summary(windowHours)
	_ = utils.WriteOK(w, summary)
}
