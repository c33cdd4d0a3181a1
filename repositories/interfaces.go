// Package repositories defines the storage interfaces behind the vector store
// and the violation audit sink. Implementations must be safe for concurrent use.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/upb/retrieval-gateway/models"
)

// VectorRepository persists vector records durably. The in-memory vector store
// writes through to it and reloads the full set at startup. LoadAll must
// return records in their original insertion order. The interface assumes no
// native vector index; one can be added behind it later.
type VectorRepository interface {
	// SaveBatch upserts a batch of records atomically.
	SaveBatch(ctx context.Context, records []models.VectorRecord) error

	// LoadAll returns every persisted record in insertion order.
	LoadAll(ctx context.Context) ([]models.VectorRecord, error)

	// DeleteDocument removes all records belonging to one document.
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error

	// DeleteAll removes every record. Idempotent.
	DeleteAll(ctx context.Context) error

	// Close releases the underlying storage handle.
	Close() error
}

// ViolationRepository is the durable audit sink for the violation ledger.
type ViolationRepository interface {
	// Insert appends one violation record.
	Insert(ctx context.Context, v *models.Violation) error

	// GetByTimeRange returns violations within [start, end), newest first.
	GetByTimeRange(ctx context.Context, start, end time.Time, limit int) ([]models.Violation, error)

	// DeleteOlderThan purges records older than cutoff, returning the count removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
