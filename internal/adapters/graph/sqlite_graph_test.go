package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLiteGraph(t *testing.T) *SQLiteGraph {
	t.Helper()
	g, err := NewSQLiteGraph(filepath.Join(t.TempDir(), "graph.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(g.Stop)
	return g
}

func TestSQLiteObserve_CountsPersistAcrossCalls(t *testing.T) {
	g := newTestSQLiteGraph(t)
	ctx := context.Background()

	stats, err := g.Observe(ctx, "example.com", "ann@example.com")
	require.NoError(t, err)
	assert.True(t, *stats.FirstTimeDomain)
	assert.True(t, *stats.FirstTimeAddr)
	assert.Equal(t, 1, *stats.DomainSeen)

	stats, err = g.Observe(ctx, "example.com", "ann@example.com")
	require.NoError(t, err)
	assert.False(t, *stats.FirstTimeDomain)
	assert.False(t, *stats.FirstTimeAddr)
	assert.Equal(t, 2, *stats.DomainSeen)
}

func TestSQLiteObserve_EmptyAddressStaysUnknown(t *testing.T) {
	g := newTestSQLiteGraph(t)
	ctx := context.Background()

	stats, err := g.Observe(ctx, "example.com", "")
	require.NoError(t, err)
	assert.Nil(t, stats.FirstTimeAddr)
	assert.Equal(t, 1, *stats.DomainSeen)

	// The skipped blank must not have created a shared "" row.
	stats, err = g.Observe(ctx, "other.example", "")
	require.NoError(t, err)
	assert.Nil(t, stats.FirstTimeAddr)
	assert.True(t, *stats.FirstTimeDomain)
}
