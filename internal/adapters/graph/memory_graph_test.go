package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObserve_FirstTimeThenFamiliar(t *testing.T) {
	g := NewMemoryGraph(zap.NewNop())
	ctx := context.Background()

	stats, err := g.Observe(ctx, "example.com", "ann@example.com")
	require.NoError(t, err)
	assert.True(t, *stats.FirstTimeDomain)
	assert.True(t, *stats.FirstTimeAddr)
	assert.Equal(t, 1, *stats.DomainSeen)

	// Same domain, different address: domain is familiar, address is new.
	stats, err = g.Observe(ctx, "example.com", "bob@example.com")
	require.NoError(t, err)
	assert.False(t, *stats.FirstTimeDomain)
	assert.True(t, *stats.FirstTimeAddr)
	assert.Equal(t, 2, *stats.DomainSeen)

	stats, err = g.Observe(ctx, "example.com", "ann@example.com")
	require.NoError(t, err)
	assert.False(t, *stats.FirstTimeAddr)
	assert.Equal(t, 3, *stats.DomainSeen)
}

func TestObserve_EmptyAddressStaysUnknown(t *testing.T) {
	g := NewMemoryGraph(zap.NewNop())
	ctx := context.Background()

	stats, err := g.Observe(ctx, "example.com", "")
	require.NoError(t, err)
	assert.Nil(t, stats.FirstTimeAddr)
	assert.Equal(t, 1, *stats.DomainSeen)

	// A later empty address must not look familiar because of an earlier
	// one: nothing was counted.
	stats, err = g.Observe(ctx, "other.example", "")
	require.NoError(t, err)
	assert.Nil(t, stats.FirstTimeAddr)

	// Real addresses are unaffected by the skipped blanks.
	stats, err = g.Observe(ctx, "example.com", "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, stats.FirstTimeAddr)
	assert.True(t, *stats.FirstTimeAddr)
}

func TestObserve_ConcurrentCountsAreExact(t *testing.T) {
	g := NewMemoryGraph(zap.NewNop())
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := g.Observe(ctx, "busy.example", "sender@busy.example")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := g.Observe(ctx, "busy.example", "sender@busy.example")
	require.NoError(t, err)
	assert.Equal(t, n+1, *stats.DomainSeen)
}
