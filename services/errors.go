package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeInvalidConfiguration ErrorType = "invalid_configuration"
	ErrorTypeInvalidArgument      ErrorType = "invalid_argument"
	ErrorTypeDimensionMismatch    ErrorType = "dimension_mismatch"
	ErrorTypeDuplicateChunk       ErrorType = "duplicate_chunk"
	ErrorTypeEmbedding            ErrorType = "embedding"
	ErrorTypePolicyRejection      ErrorType = "policy_rejection"
	ErrorTypeRateLimit            ErrorType = "rate_limit"
	ErrorTypeEngineDegraded       ErrorType = "engine_degraded"
	ErrorTypeStorage              ErrorType = "storage_unavailable"
	ErrorTypeNotFound             ErrorType = "not_found"
	ErrorTypeInternal             ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type      ErrorType
	Message   string
	Err       error
	Retryable bool
	Details   map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is: two domain errors match when their types match
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Configuration and argument errors
	ErrInvalidConfiguration = NewDomainError(ErrorTypeInvalidConfiguration, "invalid configuration", nil)
	ErrInvalidArgument      = NewDomainError(ErrorTypeInvalidArgument, "invalid argument", nil)
	ErrEmptyQuery           = NewDomainError(ErrorTypeInvalidArgument, "query text cannot be empty", nil)
	ErrEmptyDocument        = NewDomainError(ErrorTypeInvalidArgument, "document text cannot be empty", nil)

	// Vector store errors
	ErrDimensionMismatch = NewDomainError(ErrorTypeDimensionMismatch, "vector dimension does not match store dimension", nil)
	ErrDuplicateChunk    = NewDomainError(ErrorTypeDuplicateChunk, "duplicate chunk identifier within batch", nil)
	ErrChunkNotFound     = NewDomainError(ErrorTypeNotFound, "chunk not found", nil)
	ErrDocumentNotFound  = NewDomainError(ErrorTypeNotFound, "document not found", nil)

	// Embedding errors
	ErrEmbeddingUnavailable = NewDomainError(ErrorTypeEmbedding, "embedding capability unavailable", nil)
	ErrEmbeddingTimeout     = &DomainError{Type: ErrorTypeEmbedding, Message: "embedding request timed out", Retryable: true}

	// Guardrails errors
	ErrPolicyRejection   = NewDomainError(ErrorTypePolicyRejection, "request rejected by content policy", nil)
	ErrRateLimitExceeded = NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)
	ErrEngineDegraded    = NewDomainError(ErrorTypeEngineDegraded, "guardrails scanning degraded", nil)

	// Storage errors
	ErrStorageUnavailable = &DomainError{Type: ErrorTypeStorage, Message: "storage backend unavailable", Retryable: true}

	// Internal errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

// Error type checking helper functions

// IsInvalidConfigurationError checks if an error is a configuration error
func IsInvalidConfigurationError(err error) bool {
	return hasType(err, ErrorTypeInvalidConfiguration)
}

// IsInvalidArgumentError checks if an error is an invalid argument error
func IsInvalidArgumentError(err error) bool {
	return hasType(err, ErrorTypeInvalidArgument)
}

// IsDimensionMismatchError checks if an error is a dimension mismatch
func IsDimensionMismatchError(err error) bool {
	return hasType(err, ErrorTypeDimensionMismatch)
}

// IsDuplicateChunkError checks if an error is an in-batch duplicate
func IsDuplicateChunkError(err error) bool {
	return hasType(err, ErrorTypeDuplicateChunk)
}

// IsEmbeddingError checks if an error came from the embedding capability
func IsEmbeddingError(err error) bool {
	return hasType(err, ErrorTypeEmbedding)
}

// IsPolicyRejectionError checks if an error is a policy rejection
func IsPolicyRejectionError(err error) bool {
	return hasType(err, ErrorTypePolicyRejection)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return hasType(err, ErrorTypeRateLimit)
}

// IsStorageError checks if an error is a storage backend error
func IsStorageError(err error) bool {
	return hasType(err, ErrorTypeStorage)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsRetryable reports whether the operation that produced err may be retried
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapStorage wraps an error as a retryable storage error
func WrapStorage(message string, err error) error {
	return &DomainError{Type: ErrorTypeStorage, Message: message, Err: err, Retryable: true}
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}
