package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/retrieval-gateway/models"
	"go.uber.org/zap"
)

func newTestService(max int, window time.Duration) (*Service, *time.Time) {
	svc := New(models.RateLimitConfig{MaxRequests: max, Window: window}, zap.NewNop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestAllow_EnforcesLimit(t *testing.T) {
	svc, _ := newTestService(5, 5*time.Minute)

	for i := 0; i < 5; i++ {
		result := svc.Allow("user:alice")
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 4-i, result.Remaining)
	}

	result := svc.Allow("user:alice")
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.False(t, result.ResetAt.IsZero())
}

func TestAllow_IdentitiesAreIsolated(t *testing.T) {
	svc, _ := newTestService(5, 5*time.Minute)

	for i := 0; i < 5; i++ {
		require.True(t, svc.Allow("user:alice").Allowed)
	}
	require.False(t, svc.Allow("user:alice").Allowed)

	// a different identity is unaffected by alice's exhaustion
	result := svc.Allow("user:bob")
	assert.True(t, result.Allowed)
	assert.Equal(t, 4, result.Remaining)
}

func TestAllow_WindowSlides(t *testing.T) {
	svc, now := newTestService(2, time.Minute)

	require.True(t, svc.Allow("id").Allowed)
	*now = now.Add(30 * time.Second)
	require.True(t, svc.Allow("id").Allowed)
	require.False(t, svc.Allow("id").Allowed)

	// once the first request ages out, exactly one slot frees up
	*now = now.Add(31 * time.Second)
	assert.True(t, svc.Allow("id").Allowed)
	assert.False(t, svc.Allow("id").Allowed)
}

func TestAllow_DeniedRequestsDoNotConsumeQuota(t *testing.T) {
	svc, now := newTestService(1, time.Minute)

	require.True(t, svc.Allow("id").Allowed)
	for i := 0; i < 10; i++ {
		require.False(t, svc.Allow("id").Allowed)
	}

	// only the single allowed request occupies the window
	*now = now.Add(61 * time.Second)
	assert.True(t, svc.Allow("id").Allowed)
}

func TestAllow_ZeroMaxDisablesLimiting(t *testing.T) {
	svc, _ := newTestService(0, time.Minute)

	for i := 0; i < 100; i++ {
		result := svc.Allow("id")
		assert.True(t, result.Allowed)
		assert.Equal(t, -1, result.Remaining)
	}
}

func TestUsage_DoesNotRecord(t *testing.T) {
	svc, _ := newTestService(3, time.Minute)

	assert.Equal(t, 0, svc.Usage("id"))
	svc.Allow("id")
	svc.Allow("id")
	assert.Equal(t, 2, svc.Usage("id"))
	assert.Equal(t, 2, svc.Usage("id"))
}

func TestReset_ClearsOneIdentity(t *testing.T) {
	svc, _ := newTestService(1, time.Minute)

	require.True(t, svc.Allow("a").Allowed)
	require.True(t, svc.Allow("b").Allowed)
	require.False(t, svc.Allow("a").Allowed)

	svc.Reset("a")
	assert.True(t, svc.Allow("a").Allowed)
	assert.False(t, svc.Allow("b").Allowed)
}

func TestPrune_DropsOnlyStaleIdentities(t *testing.T) {
	svc, now := newTestService(5, time.Minute)

	svc.Allow("old")
	*now = now.Add(2 * time.Minute)
	svc.Allow("fresh")

	removed := svc.Prune()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, svc.Usage("fresh"))
	assert.Equal(t, 0, svc.Usage("old"))
}
