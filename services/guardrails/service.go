// Package guardrails implements the safety engine that screens queries before
// retrieval and sanitizes retrieved content before it is returned. Every
// detection is recorded in the violation ledger whether or not it blocks.
package guardrails

import (
	"time"

	"github.com/upb/retrieval-gateway/internal/guard"
	"github.com/upb/retrieval-gateway/models"
	"github.com/upb/retrieval-gateway/services/ratelimit"
	"github.com/upb/retrieval-gateway/services/violations"
	"go.uber.org/zap"
)

// DefaultConfidentialDisclaimer is appended to responses touching flagged topics
const DefaultConfidentialDisclaimer = "\n\n[Notice: this content references material marked confidential or internal. Handle according to your organization's data policies.]"

const defaultExcerptMaxLen = 80

// Config holds guardrails engine settings
type Config struct {
	RateLimit              models.RateLimitConfig
	ExcerptMaxLen          int    // max length of redacted excerpts stored in the ledger
	ConfidentialDisclaimer string // empty selects the default notice
}

// Decision is the outcome of screening a query
type Decision struct {
	Allowed    bool
	Violations []models.Violation
	Remaining  int       // requests left in the rate window, -1 when unlimited
	ResetAt    time.Time // when the rate window resets, zero when unlimited
}

// Sanitized is retrieved content after response-side screening. Response
// screening never blocks: PII is redacted in place and confidential topics
// get a disclaimer, but the content flows.
type Sanitized struct {
	Text       string
	Violations []models.Violation
	Redacted   bool
	Disclaimer bool
}

// Service is the guardrails engine. It owns the rate limiter and writes every
// detection to the shared violation ledger.
type Service struct {
	limiter    *ratelimit.Service
	ledger     *violations.Ledger
	excerptMax int
	disclaimer string
	logger     *zap.Logger
}

// New creates a guardrails engine backed by the given ledger
func New(cfg Config, ledger *violations.Ledger, logger *zap.Logger) *Service {
	excerptMax := cfg.ExcerptMaxLen
	if excerptMax <= 0 {
		excerptMax = defaultExcerptMaxLen
	}
	disclaimer := cfg.ConfidentialDisclaimer
	if disclaimer == "" {
		disclaimer = DefaultConfidentialDisclaimer
	}
	return &Service{
		limiter:    ratelimit.New(cfg.RateLimit, logger),
		ledger:     ledger,
		excerptMax: excerptMax,
		disclaimer: disclaimer,
		logger:     logger,
	}
}

// ValidateQuery screens an incoming query. The rate limit is checked first and
// short-circuits content scanning when exceeded. Content violations all get
// recorded; only a critical one blocks the query.
func (s *Service) ValidateQuery(identity, text string) Decision {
	rl := s.limiter.Allow(identity)
	if !rl.Allowed {
		v := models.NewViolation(identity, models.ViolationKindRateLimitExceeded,
			models.SeverityCritical, "request rate limit exceeded")
		s.ledger.Record(v)
		s.logger.Info("query blocked by rate limit", zap.String("identity", identity))
		return Decision{Allowed: false, Violations: []models.Violation{v}, Remaining: 0, ResetAt: rl.ResetAt}
	}

	matches, degraded := s.scan(text)
	if degraded {
		v := models.NewViolation(identity, models.ViolationKindEngineDegraded,
			models.SeverityHigh, "safety engine fault while scanning query")
		s.ledger.Record(v)
		// engine faults never block traffic; the fault is recorded and the
		// query proceeds unscreened
		s.logger.Warn("query scan degraded, allowing without content screening",
			zap.String("identity", identity))
		return Decision{Allowed: true, Violations: []models.Violation{v}, Remaining: rl.Remaining, ResetAt: rl.ResetAt}
	}

	found := s.toViolations(identity, text, matches)
	s.ledger.Record(found...)

	allowed := true
	for _, v := range found {
		if v.IsBlocking() {
			allowed = false
			break
		}
	}
	if !allowed {
		s.logger.Info("query blocked by content policy",
			zap.String("identity", identity),
			zap.Int("violations", len(found)))
	}
	return Decision{Allowed: allowed, Violations: found, Remaining: rl.Remaining, ResetAt: rl.ResetAt}
}

// ValidateResponse screens retrieved content before it leaves the pipeline.
// PII matches are redacted in place, confidential-topic matches append a
// disclaimer, and everything found is recorded against the identity. An
// engine fault never blocks: the content flows unsanitized with the fault
// recorded and attached for observability.
func (s *Service) ValidateResponse(identity, text string) Sanitized {
	matches, degraded := s.scan(text)
	if degraded {
		v := models.NewViolation(identity, models.ViolationKindEngineDegraded,
			models.SeverityHigh, "safety engine fault while scanning retrieved content")
		s.ledger.Record(v)
		s.logger.Warn("response scan degraded, returning content unscreened",
			zap.String("identity", identity))
		return Sanitized{Text: text, Violations: []models.Violation{v}}
	}

	found := s.toViolations(identity, text, matches)
	s.ledger.Record(found...)

	out := Sanitized{Text: text, Violations: found}
	redacted := guard.Redact(text, matches)
	if redacted != text {
		out.Text = redacted
		out.Redacted = true
	}
	for _, m := range matches {
		if m.Rule.Category == guard.CategoryConfidential {
			out.Text += s.disclaimer
			out.Disclaimer = true
			break
		}
	}
	return out
}

// Summary aggregates ledger contents over the trailing window
func (s *Service) Summary(windowHours int) models.ViolationSummary {
	return s.ledger.Summary(windowHours)
}

// RateLimiter exposes the engine's limiter for inspection and test resets
func (s *Service) RateLimiter() *ratelimit.Service {
	return s.limiter
}

// scan runs the rule table, converting a panic in a rule's matcher into a
// degraded signal instead of taking down the request.
func (s *Service) scan(text string) (matches []guard.Match, degraded bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("guard scan panicked", zap.Any("panic", r))
			matches = nil
			degraded = true
		}
	}()
	return guard.Scan(text), false
}

func (s *Service) toViolations(identity, text string, matches []guard.Match) []models.Violation {
	out := make([]models.Violation, 0, len(matches))
	for _, m := range matches {
		v := models.NewViolation(identity, m.Rule.Kind, m.Rule.Severity, m.Rule.Description).
			WithExcerpt(guard.SafeExcerpt(m.Value, s.excerptMax))
		out = append(out, v)
	}
	return out
}
