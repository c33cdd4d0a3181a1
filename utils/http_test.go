package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/retrieval-gateway/services"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteOK(rec, map[string]string{"status": "ready"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Data)
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid argument",
			err:        services.NewDomainError(services.ErrorTypeInvalidArgument, "query text cannot be empty", nil),
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "dimension mismatch",
			err:        services.NewDomainError(services.ErrorTypeDimensionMismatch, "expected 768 dimensions", nil),
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "not found",
			err:        services.ErrDocumentNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "not_found",
		},
		{
			name:       "policy rejection",
			err:        services.NewDomainError(services.ErrorTypePolicyRejection, "request rejected by content policy", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "policy_rejection",
		},
		{
			name:       "rate limit",
			err:        services.NewDomainError(services.ErrorTypeRateLimit, "rate limit exceeded", nil),
			wantStatus: http.StatusTooManyRequests,
			wantError:  "rate_limit_exceeded",
		},
		{
			name:       "engine degraded",
			err:        services.NewDomainError(services.ErrorTypeEngineDegraded, "scanner unavailable", nil),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "service_unavailable",
		},
		{
			name:       "storage",
			err:        services.WrapStorage("persist batch", errors.New("disk full")),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "service_unavailable",
		},
		{
			name:       "embedding",
			err:        services.ErrEmbeddingTimeout,
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "service_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteDomainError(rec, tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}
}

func TestWriteDomainError_WrappedChain(t *testing.T) {
	inner := services.NewDomainError(services.ErrorTypeRateLimit, "rate limit exceeded", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, WriteDomainError(rec, fmt.Errorf("query: %w", inner)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestWriteDomainError_OpaqueInternal(t *testing.T) {
	t.Run("non-domain error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteDomainError(rec, errors.New("connection reset by peer")))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "internal_error", resp.Error)
		assert.NotContains(t, resp.Message, "connection reset")
	})

	t.Run("internal domain error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		err := services.WrapInternal("index rebuild failed", errors.New("corrupt page"))
		require.NoError(t, WriteDomainError(rec, err))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.NotContains(t, resp.Message, "corrupt page")
		assert.NotContains(t, resp.Message, "index rebuild")
	})
}

func TestWriteDomainError_CarriesDetails(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypePolicyRejection, "request rejected by content policy", nil).
		WithDetail("violation_kinds", []string{"prompt_injection"})

	rec := httptest.NewRecorder()
	require.NoError(t, WriteDomainError(rec, err))

	resp := decodeError(t, rec)
	require.Contains(t, resp.Details, "violation_kinds")
}
