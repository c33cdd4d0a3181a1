// Package ratelimit bounds per-identity request frequency with an in-memory
// sliding window. The window state is owned exclusively by the guardrails
// engine; identities hash to lock shards so one hot identity cannot serialize
// every check.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/upb/retrieval-gateway/models"
	"go.uber.org/zap"
)

const shardCount = 16

// Result reports the outcome of a rate limit check
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type shard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// Service enforces a sliding-window limit per identity key
type Service struct {
	config models.RateLimitConfig
	shards [shardCount]*shard
	logger *zap.Logger

	now func() time.Time // injectable clock for tests
}

// New creates a rate limit service. A zero MaxRequests disables limiting.
func New(config models.RateLimitConfig, logger *zap.Logger) *Service {
	s := &Service{
		config: config,
		logger: logger,
		now:    time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{windows: make(map[string][]time.Time)}
	}
	return s
}

// Allow checks the identity's window and, when under the limit, records the
// request. Entries older than the window are dropped lazily on each check.
func (s *Service) Allow(identity string) Result {
	if s.config.MaxRequests <= 0 {
		return Result{Allowed: true, Remaining: -1}
	}

	sh := s.shardFor(identity)
	now := s.now()
	cutoff := now.Add(-s.config.Window)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	window := sh.windows[identity]
	live := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= s.config.MaxRequests {
		sh.windows[identity] = live
		resetAt := live[0].Add(s.config.Window)
		s.logger.Debug("rate limit exceeded",
			zap.String("identity", identity),
			zap.Int("count", len(live)),
			zap.Int("max", s.config.MaxRequests))
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}

	live = append(live, now)
	sh.windows[identity] = live
	return Result{
		Allowed:   true,
		Remaining: s.config.MaxRequests - len(live),
		ResetAt:   live[0].Add(s.config.Window),
	}
}

// Usage returns the identity's current in-window request count without
// recording a request
func (s *Service) Usage(identity string) int {
	sh := s.shardFor(identity)
	cutoff := s.now().Add(-s.config.Window)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	count := 0
	for _, ts := range sh.windows[identity] {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// Reset clears one identity's window
func (s *Service) Reset(identity string) {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.windows, identity)
}

// Prune drops identities whose entire window has expired. Called periodically
// so abandoned identities do not accumulate.
func (s *Service) Prune() int {
	cutoff := s.now().Add(-s.config.Window)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for identity, window := range sh.windows {
			stale := true
			for _, ts := range window {
				if ts.After(cutoff) {
					stale = false
					break
				}
			}
			if stale {
				delete(sh.windows, identity)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Config returns the active rate limit configuration
func (s *Service) Config() models.RateLimitConfig {
	return s.config
}

func (s *Service) shardFor(identity string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return s.shards[h.Sum32()%shardCount]
}
