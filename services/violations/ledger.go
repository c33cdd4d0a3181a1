// Package violations maintains the process-wide violation ledger: an
// in-memory rolling audit window with TTL-based expiry, optionally drained to
// a durable repository by background workers.
package violations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/retrieval-gateway/models"
	"github.com/upb/retrieval-gateway/repositories"
	"go.uber.org/zap"
)

const ledgerShards = 16

// Config holds ledger settings
type Config struct {
	TTL           time.Duration // rolling audit window, default 30 days
	PurgeInterval time.Duration // how often the purge worker runs
	SinkBuffer    int           // buffered events awaiting the durable sink
	SinkWorkers   int           // concurrent sink workers
}

// DefaultConfig returns the default ledger configuration
func DefaultConfig() Config {
	return Config{
		TTL:           30 * 24 * time.Hour,
		PurgeInterval: time.Hour,
		SinkBuffer:    10000,
		SinkWorkers:   3,
	}
}

type ledgerShard struct {
	mu      sync.RWMutex
	entries []models.Violation // append order == time order
}

// Ledger is the explicit process-wide violation state object. It starts empty,
// is passed by reference into the guardrails engine, and is flushed on Stop.
type Ledger struct {
	config Config
	shards [ledgerShards]*ledgerShard
	logger *zap.Logger

	sink      repositories.ViolationRepository // optional durable sink
	eventChan chan models.Violation
	wg        sync.WaitGroup
	cancel    context.CancelFunc
	started   bool
	mu        sync.Mutex
}

// NewLedger creates an empty ledger. sink may be nil when no durable audit
// store is configured.
func NewLedger(config Config, sink repositories.ViolationRepository, logger *zap.Logger) *Ledger {
	if config.TTL <= 0 {
		config.TTL = 30 * 24 * time.Hour
	}
	if config.PurgeInterval <= 0 {
		config.PurgeInterval = time.Hour
	}
	if config.SinkBuffer <= 0 {
		config.SinkBuffer = 10000
	}
	if config.SinkWorkers <= 0 {
		config.SinkWorkers = 3
	}

	l := &Ledger{
		config:    config,
		logger:    logger,
		sink:      sink,
		eventChan: make(chan models.Violation, config.SinkBuffer),
	}
	for i := range l.shards {
		l.shards[i] = &ledgerShard{}
	}
	return l
}

// Start launches the purge worker and, when a sink is configured, the sink
// workers. Returns an error if already started.
func (l *Ledger) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("violation ledger already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go l.purgeWorker(ctx)

	if l.sink != nil {
		for i := 0; i < l.config.SinkWorkers; i++ {
			l.wg.Add(1)
			go l.sinkWorker(ctx, i)
		}
	}

	l.started = true
	l.logger.Info("violation ledger started",
		zap.Duration("ttl", l.config.TTL),
		zap.Bool("durable_sink", l.sink != nil))
	return nil
}

// Stop drains pending sink events and stops the workers
func (l *Ledger) Stop(timeout time.Duration) error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return fmt.Errorf("violation ledger not started")
	}
	l.started = false
	l.mu.Unlock()

	// the purge worker joins on cancellation; sink workers keep draining the
	// closed channel until the buffer is empty
	l.cancel()
	close(l.eventChan)

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("violation ledger stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("violation ledger stop timeout after %v", timeout)
	}
}

// Record appends violations to the ledger and queues them for the durable
// sink. Never blocks: when the sink buffer is full the durable copy is dropped
// with a logged warning while the in-memory entry is kept.
func (l *Ledger) Record(violations ...models.Violation) {
	for _, v := range violations {
		sh := l.shardFor(v.Identity)
		sh.mu.Lock()
		sh.entries = append(sh.entries, v)
		sh.mu.Unlock()

		if l.sink == nil {
			continue
		}
		select {
		case l.eventChan <- v:
		default:
			l.logger.Warn("violation sink buffer full, dropping durable copy",
				zap.String("kind", string(v.Kind)),
				zap.String("identity", v.Identity))
		}
	}
}

// Since returns all violations recorded at or after cutoff
func (l *Ledger) Since(cutoff time.Time) []models.Violation {
	var out []models.Violation
	for _, sh := range l.shards {
		sh.mu.RLock()
		for _, v := range sh.entries {
			if !v.Timestamp.Before(cutoff) {
				out = append(out, v)
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// Summary aggregates violations within the trailing window
func (l *Ledger) Summary(windowHours int) models.ViolationSummary {
	if windowHours <= 0 {
		windowHours = 24
	}
	cutoff := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	summary := models.ViolationSummary{
		WindowHours: windowHours,
		ByKind:      make(map[models.ViolationKind]int),
		BySeverity:  make(map[string]int),
	}
	identities := make(map[string]struct{})

	for _, v := range l.Since(cutoff) {
		summary.Total++
		summary.ByKind[v.Kind]++
		summary.BySeverity[v.Severity.String()]++
		identities[v.Identity] = struct{}{}
	}
	summary.DistinctIdentities = len(identities)
	return summary
}

// Len returns the number of in-memory entries
func (l *Ledger) Len() int {
	total := 0
	for _, sh := range l.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

// Purge drops entries older than the TTL, returning the count removed
func (l *Ledger) Purge() int {
	cutoff := time.Now().UTC().Add(-l.config.TTL)
	removed := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		kept := sh.entries[:0]
		for _, v := range sh.entries {
			if v.Timestamp.After(cutoff) {
				kept = append(kept, v)
			} else {
				removed++
			}
		}
		sh.entries = kept
		sh.mu.Unlock()
	}
	return removed
}

func (l *Ledger) purgeWorker(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := l.Purge(); removed > 0 {
				l.logger.Info("purged expired violations", zap.Int("removed", removed))
			}
			if l.sink != nil {
				sinkCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				cutoff := time.Now().UTC().Add(-l.config.TTL)
				if n, err := l.sink.DeleteOlderThan(sinkCtx, cutoff); err != nil {
					l.logger.Error("failed to purge violation sink", zap.Error(err))
				} else if n > 0 {
					l.logger.Info("purged expired sink violations", zap.Int64("removed", n))
				}
				cancel()
			}
		case <-ctx.Done():
			return
		}
	}
}

func (l *Ledger) sinkWorker(ctx context.Context, id int) {
	defer l.wg.Done()

	for v := range l.eventChan {
		insertCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := l.sink.Insert(insertCtx, &v); err != nil {
			l.logger.Error("failed to persist violation",
				zap.Int("worker_id", id),
				zap.String("kind", string(v.Kind)),
				zap.Error(err))
		}
		cancel()
	}
}

func (l *Ledger) shardFor(identity string) *ledgerShard {
	h := uint32(2166136261)
	for i := 0; i < len(identity); i++ {
		h ^= uint32(identity[i])
		h *= 16777619
	}
	return l.shards[h%ledgerShards]
}
