// Package chunker splits document text into overlapping windows for embedding.
package chunker

import (
	"time"

	"github.com/google/uuid"
	"github.com/upb/retrieval-gateway/models"
	"github.com/upb/retrieval-gateway/services"
)

// boundary preference, strongest first
var boundaryMarkers = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// Service splits text into chunks of at most Size characters, each chunk
// overlapping its successor by Overlap characters.
type Service struct {
	size    int
	overlap int
}

// New creates a chunker. Fails with an invalid configuration error when
// size <= 0, overlap < 0, or overlap >= size (the latter would never advance).
func New(size, overlap int) (*Service, error) {
	if size <= 0 {
		return nil, services.NewDomainError(services.ErrorTypeInvalidConfiguration,
			"chunk size must be positive", nil).WithDetail("size", size)
	}
	if overlap < 0 {
		return nil, services.NewDomainError(services.ErrorTypeInvalidConfiguration,
			"chunk overlap cannot be negative", nil).WithDetail("overlap", overlap)
	}
	if overlap >= size {
		return nil, services.NewDomainError(services.ErrorTypeInvalidConfiguration,
			"chunk overlap must be smaller than chunk size", nil).
			WithDetail("size", size).
			WithDetail("overlap", overlap)
	}
	return &Service{size: size, overlap: overlap}, nil
}

// Size returns the configured chunk size in characters
func (s *Service) Size() int { return s.size }

// Overlap returns the configured overlap in characters
func (s *Service) Overlap() int { return s.overlap }

// Split covers the document text end-to-end with chunks. Splitting prefers
// natural boundaries (paragraph break, line break, sentence end, whitespace)
// before a hard cut at the size limit. Ordinals increase from 0 and StartPos
// records the rune offset of each chunk in the original text.
func (s *Service) Split(doc *models.Document) ([]models.Chunk, error) {
	if doc == nil || doc.Text == "" {
		return nil, services.ErrEmptyDocument
	}

	runes := []rune(doc.Text)
	now := time.Now().UTC()

	var chunks []models.Chunk
	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.cutPoint(runes, start, end)
		}

		text := string(runes[start:end])
		chunks = append(chunks, models.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			Ordinal:    len(chunks),
			Text:       text,
			StartPos:   start,
			CharCount:  end - start,
			Title:      doc.Title,
			FileType:   doc.FileType,
			Category:   doc.Category,
			CreatedAt:  now,
		})

		if end == len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			// a short boundary cut plus a large overlap would stall; step past it
			next = start + 1
		}
		start = next
	}

	return chunks, nil
}

// cutPoint finds the best split position in (start, limit]. Boundaries in the
// back half of the window are preferred in marker order; otherwise the hard
// limit applies.
func (s *Service) cutPoint(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	minCut := len(window) / 2

	for _, marker := range boundaryMarkers {
		if idx := lastIndexRunes(window, marker); idx >= minCut {
			// cut after the marker so separators stay with the preceding chunk
			return start + idx + len([]rune(marker))
		}
	}
	return limit
}

// lastIndexRunes returns the rune offset of the last occurrence of marker in s
func lastIndexRunes(s, marker string) int {
	rs := []rune(s)
	rm := []rune(marker)
	for i := len(rs) - len(rm); i >= 0; i-- {
		if string(rs[i:i+len(rm)]) == marker {
			return i
		}
	}
	return -1
}
