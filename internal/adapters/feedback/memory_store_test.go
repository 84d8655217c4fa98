package feedback

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailshield/mailshield/internal/core"
)

func record(domain, verdict string) core.VerdictRecord {
	return core.VerdictRecord{
		Domain:    domain,
		Verdict:   verdict,
		Actor:     "it-admin",
		CreatedAt: time.Now(),
	}
}

func TestTrustFor_UnknownDomainHasNoTier(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())

	fb, err := s.TrustFor(context.Background(), "unknown.example")
	require.NoError(t, err)
	assert.Equal(t, core.TrustTierNone, fb.Tier)
	assert.Zero(t, fb.Allows)
	assert.Zero(t, fb.Blocks)
}

func TestTrustFor_ConsistentAllowsEarnTrust(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, s.RecordVerdict(ctx, record("vendor.example", "allow")))
	}
	fb, err := s.TrustFor(ctx, "vendor.example")
	require.NoError(t, err)
	assert.Equal(t, core.TrustTierNone, fb.Tier, "two allows are not enough")

	require.NoError(t, s.RecordVerdict(ctx, record("vendor.example", "allow")))
	fb, err = s.TrustFor(ctx, "vendor.example")
	require.NoError(t, err)
	assert.Equal(t, core.TrustTierTrusted, fb.Tier)
	assert.Equal(t, 3, fb.Allows)
}

func TestTrustFor_SingleBlockPoisonsTheWindow(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordVerdict(ctx, record("flaky.example", "allow")))
	}
	require.NoError(t, s.RecordVerdict(ctx, record("flaky.example", "block")))

	fb, err := s.TrustFor(ctx, "flaky.example")
	require.NoError(t, err)
	assert.Equal(t, core.TrustTierBlocked, fb.Tier)
	assert.Equal(t, 1, fb.Blocks)
}

func TestTrustFor_OldBlockAgesOutOfTheWindow(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	// One block followed by enough allows to push it past the window.
	require.NoError(t, s.RecordVerdict(ctx, record("reformed.example", "block")))
	for i := 0; i < trustWindow; i++ {
		require.NoError(t, s.RecordVerdict(ctx, record("reformed.example", "allow")))
	}

	fb, err := s.TrustFor(ctx, "reformed.example")
	require.NoError(t, err)
	assert.Equal(t, core.TrustTierTrusted, fb.Tier)
	assert.Zero(t, fb.Blocks)
}

func TestRecentVerdicts_NewestFirstAndLimited(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := record("busy.example", "allow")
		rec.Actor = fmt.Sprintf("admin-%d", i)
		require.NoError(t, s.RecordVerdict(ctx, rec))
	}

	recent, err := s.RecentVerdicts(ctx, "busy.example", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "admin-4", recent[0].Actor)
	assert.Equal(t, "admin-2", recent[2].Actor)
}

func TestEnqueue_ItemsAreRetained(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, core.HITLItem{ID: "run-1", Status: "pending"}))
	require.NoError(t, s.Enqueue(ctx, core.HITLItem{ID: "run-2", Status: "pending"}))

	items := s.PendingItems()
	require.Len(t, items, 2)
	assert.Equal(t, "run-1", items[0].ID)
	assert.Equal(t, "run-2", items[1].ID)
}

func TestDeriveTier_IgnoresUnknownVerdictStrings(t *testing.T) {
	fb := deriveTier([]core.VerdictRecord{
		{Verdict: "allow"},
		{Verdict: "monitor"},
		{Verdict: "allow"},
		{Verdict: "allow"},
	})
	assert.Equal(t, core.TrustTierTrusted, fb.Tier)
	assert.Equal(t, 3, fb.Allows)
	assert.Zero(t, fb.Blocks)
}
