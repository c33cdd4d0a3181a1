package models

import (
	"time"

	"github.com/google/uuid"
)

// ViolationKind categorizes a detected policy breach
type ViolationKind string

const (
	ViolationKindRateLimitExceeded     ViolationKind = "rate_limit_exceeded"
	ViolationKindPromptInjection       ViolationKind = "prompt_injection"
	ViolationKindInappropriateLanguage ViolationKind = "inappropriate_language"
	ViolationKindPII                   ViolationKind = "pii"
	ViolationKindConfidentialTopic     ViolationKind = "confidential_topic"
	ViolationKindEngineDegraded        ViolationKind = "engine_degraded"
)

// Severity is the ordered severity level of a violation
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase name of the severity
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so severities serialize by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity converts a severity name to its level. Unknown names map to low.
func ParseSeverity(name string) Severity {
	switch name {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Violation records a detected policy breach. Violations are immutable after
// creation and retained for a rolling audit window before being purged.
type Violation struct {
	ID        uuid.UUID     `json:"id"`
	Identity  string        `json:"identity"`
	Kind      ViolationKind `json:"kind"`
	Severity  Severity      `json:"severity"`
	Message   string        `json:"message"`
	Excerpt   string        `json:"excerpt,omitempty"` // redacted, bounded length
	Timestamp time.Time     `json:"timestamp"`
}

// NewViolation creates a violation stamped with the current time
func NewViolation(identity string, kind ViolationKind, severity Severity, message string) Violation {
	return Violation{
		ID:        uuid.New(),
		Identity:  identity,
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// WithExcerpt attaches an offending-text excerpt. Callers must redact and
// bound the excerpt before attaching it.
func (v Violation) WithExcerpt(excerpt string) Violation {
	v.Excerpt = excerpt
	return v
}

// IsBlocking reports whether this violation alone blocks a request
func (v Violation) IsBlocking() bool {
	return v.Severity == SeverityCritical
}

// ViolationSummary aggregates ledger contents over a time window
type ViolationSummary struct {
	WindowHours        int                   `json:"window_hours"`
	Total              int                   `json:"total"`
	ByKind             map[ViolationKind]int `json:"by_kind"`
	BySeverity         map[string]int        `json:"by_severity"`
	DistinctIdentities int                   `json:"distinct_identities"`
}

// RateLimitConfig bounds request frequency per identity within a sliding window
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}
