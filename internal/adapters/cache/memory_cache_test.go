package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailshield/mailshield/internal/core"
)

func intp(v int) *int { return &v }

func TestMemoryCache_DomainRoundTrip(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	present := true
	snap := &core.DomainSnapshot{
		Domain:             "example.com",
		RegistrantName:     "Example Corp",
		SecurityTxtPresent: &present,
		CertificateCount:   intp(12),
		ExpiresAt:          time.Now().Add(time.Hour),
	}
	require.NoError(t, c.PutDomain(context.Background(), snap))

	got, err := c.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "Example Corp", got.RegistrantName)
	require.NotNil(t, got.CertificateCount)
	assert.Equal(t, 12, *got.CertificateCount)
}

func TestMemoryCache_MissReturnsErrNotFound(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	_, err := c.GetDomain(context.Background(), "nowhere.example")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetIP(context.Background(), "203.0.113.1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCache_ExpiredEntryReadsAsMiss(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	require.NoError(t, c.PutDomain(context.Background(), &core.DomainSnapshot{
		Domain:    "stale.example",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := c.GetDomain(context.Background(), "stale.example")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCache_IPRoundTrip(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	require.NoError(t, c.PutIP(context.Background(), &core.IPSnapshot{
		IP:         "203.0.113.7",
		AbuseScore: intp(55),
		ExpiresAt:  time.Now().Add(time.Hour),
	}))

	got, err := c.GetIP(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	require.NotNil(t, got.AbuseScore)
	assert.Equal(t, 55, *got.AbuseScore)
}

func TestMemoryCache_CleanupRemovesExpired(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Hour)
	defer c.Stop()

	ctx := context.Background()
	require.NoError(t, c.PutDomain(ctx, &core.DomainSnapshot{
		Domain:    "stale.example",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, c.PutDomain(ctx, &core.DomainSnapshot{
		Domain:    "fresh.example",
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, c.PutIP(ctx, &core.IPSnapshot{
		IP:        "203.0.113.9",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	require.NoError(t, c.Cleanup(ctx))

	c.mu.RLock()
	_, staleKept := c.domains["stale.example"]
	_, freshKept := c.domains["fresh.example"]
	_, ipKept := c.ips["203.0.113.9"]
	c.mu.RUnlock()

	assert.False(t, staleKept)
	assert.True(t, freshKept)
	assert.False(t, ipKept)
}
