package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies how a document entered the system
type SourceType string

const (
	SourceTypeUpload SourceType = "upload"
	SourceTypeText   SourceType = "text"
	SourceTypeFile   SourceType = "file"
)

// Document represents an ingested source document.
// The gateway receives extracted text; it never parses raw files itself.
type Document struct {
	ID        uuid.UUID
	Title     string
	Text      string
	FileType  string
	Category  string
	Source    SourceType
	CreatedAt time.Time
}

// NewDocument creates a document with a fresh ID and timestamp
func NewDocument(title, text, fileType string) *Document {
	return &Document{
		ID:        uuid.New(),
		Title:     title,
		Text:      text,
		FileType:  fileType,
		Source:    SourceTypeText,
		CreatedAt: time.Now().UTC(),
	}
}

// WithCategory sets the collection/category tag
func (d *Document) WithCategory(category string) *Document {
	d.Category = category
	return d
}

// WithSource sets the origin type
func (d *Document) WithSource(source SourceType) *Document {
	d.Source = source
	return d
}

// Chunk is an immutable unit of ingested text. Chunks are created once at
// ingestion time and removed only by document removal or a full clear.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Ordinal    int // position within the document, starting at 0
	Text       string
	StartPos   int // character offset into the original document text
	CharCount  int
	Title      string
	FileType   string
	Category   string
	CreatedAt  time.Time
}

// VectorRecord associates a chunk with its embedding vector.
// The vector length must equal the store's configured dimension.
type VectorRecord struct {
	Chunk     Chunk
	Vector    []float32
	UpdatedAt time.Time
}

// SearchResult is computed per query and never persisted.
type SearchResult struct {
	ChunkID    uuid.UUID   `json:"chunk_id"`
	DocumentID uuid.UUID   `json:"document_id"`
	Score      float64     `json:"score"`
	Rank       int         `json:"rank"`
	Title      string      `json:"title"`
	Category   string      `json:"category,omitempty"`
	Text       string      `json:"text"`
	Ordinal    int         `json:"ordinal"`
	Violations []Violation `json:"violations,omitempty"` // residual, non-blocking
}

// StoreStats is a read-only snapshot of the vector store.
// Not guaranteed atomic with concurrent writers, but counts are never negative.
type StoreStats struct {
	TotalVectors   int   `json:"total_vectors"`
	Dimension      int   `json:"dimension"`
	EstimatedBytes int64 `json:"estimated_bytes"`
	DocumentCount  int   `json:"document_count"`
}
