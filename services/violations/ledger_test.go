package violations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/retrieval-gateway/models"
	"go.uber.org/zap"
)

// fakeSink captures violations handed to the durable sink
type fakeSink struct {
	mu       sync.Mutex
	inserted []models.Violation
}

func (f *fakeSink) Insert(_ context.Context, v *models.Violation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, *v)
	return nil
}

func (f *fakeSink) GetByTimeRange(context.Context, time.Time, time.Time, int) ([]models.Violation, error) {
	return nil, nil
}

func (f *fakeSink) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

func TestLedger_RecordAndSummary(t *testing.T) {
	ledger := NewLedger(DefaultConfig(), nil, zap.NewNop())

	ledger.Record(
		models.NewViolation("user:a", models.ViolationKindPII, models.SeverityMedium, "email address"),
		models.NewViolation("user:a", models.ViolationKindPII, models.SeverityHigh, "payment card number"),
		models.NewViolation("user:b", models.ViolationKindPromptInjection, models.SeverityCritical, "jailbreak"),
	)

	summary := ledger.Summary(24)
	assert.Equal(t, 24, summary.WindowHours)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.ByKind[models.ViolationKindPII])
	assert.Equal(t, 1, summary.ByKind[models.ViolationKindPromptInjection])
	assert.Equal(t, 1, summary.BySeverity["medium"])
	assert.Equal(t, 1, summary.BySeverity["high"])
	assert.Equal(t, 1, summary.BySeverity["critical"])
	assert.Equal(t, 2, summary.DistinctIdentities)
}

func TestLedger_SummaryRespectsWindow(t *testing.T) {
	ledger := NewLedger(DefaultConfig(), nil, zap.NewNop())

	old := models.NewViolation("user:a", models.ViolationKindPII, models.SeverityLow, "stale")
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	fresh := models.NewViolation("user:a", models.ViolationKindPII, models.SeverityLow, "fresh")
	ledger.Record(old, fresh)

	assert.Equal(t, 1, ledger.Summary(24).Total)
	assert.Equal(t, 2, ledger.Summary(72).Total)
}

func TestLedger_SummaryDefaultsWindow(t *testing.T) {
	ledger := NewLedger(DefaultConfig(), nil, zap.NewNop())
	summary := ledger.Summary(0)
	assert.Equal(t, 24, summary.WindowHours)
	assert.Equal(t, 0, summary.Total)
	assert.NotNil(t, summary.ByKind)
	assert.NotNil(t, summary.BySeverity)
}

func TestLedger_PurgeDropsExpiredEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TTL = time.Hour
	ledger := NewLedger(cfg, nil, zap.NewNop())

	expired := models.NewViolation("user:a", models.ViolationKindPII, models.SeverityLow, "old")
	expired.Timestamp = time.Now().UTC().Add(-2 * time.Hour)
	live := models.NewViolation("user:a", models.ViolationKindPII, models.SeverityLow, "new")
	ledger.Record(expired, live)

	require.Equal(t, 2, ledger.Len())
	removed := ledger.Purge()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, ledger.Len())
}

func TestLedger_SinkReceivesRecords(t *testing.T) {
	sink := &fakeSink{}
	ledger := NewLedger(DefaultConfig(), sink, zap.NewNop())
	require.NoError(t, ledger.Start())

	ledger.Record(models.NewViolation("user:a", models.ViolationKindPII, models.SeverityMedium, "email"))
	ledger.Record(models.NewViolation("user:b", models.ViolationKindRateLimitExceeded, models.SeverityCritical, "limit"))

	// Stop drains the sink queue before returning
	require.NoError(t, ledger.Stop(5*time.Second))
	assert.Equal(t, 2, sink.count())
}

func TestLedger_StopReturnsPromptly(t *testing.T) {
	t.Run("without sink", func(t *testing.T) {
		ledger := NewLedger(DefaultConfig(), nil, zap.NewNop())
		require.NoError(t, ledger.Start())

		started := time.Now()
		require.NoError(t, ledger.Stop(2*time.Second))
		assert.Less(t, time.Since(started), 500*time.Millisecond,
			"idle shutdown must not wait out the drain timeout")
	})

	t.Run("with idle sink", func(t *testing.T) {
		ledger := NewLedger(DefaultConfig(), &fakeSink{}, zap.NewNop())
		require.NoError(t, ledger.Start())

		started := time.Now()
		require.NoError(t, ledger.Stop(2*time.Second))
		assert.Less(t, time.Since(started), 500*time.Millisecond)
	})
}

func TestLedger_StartStopLifecycle(t *testing.T) {
	ledger := NewLedger(DefaultConfig(), nil, zap.NewNop())

	require.NoError(t, ledger.Start())
	assert.Error(t, ledger.Start(), "double start must fail")
	require.NoError(t, ledger.Stop(time.Second))
	assert.Error(t, ledger.Stop(time.Second), "double stop must fail")
}

func TestLedger_RecordIsSafeWithoutStart(t *testing.T) {
	ledger := NewLedger(DefaultConfig(), nil, zap.NewNop())
	ledger.Record(models.NewViolation("user:a", models.ViolationKindPII, models.SeverityLow, "x"))
	assert.Equal(t, 1, ledger.Len())
}
