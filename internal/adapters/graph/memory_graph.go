package graph

import (
	"context"
	"sync"
	"time"

	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

type counter struct {
	seen     int
	lastSeen time.Time
}

// MemoryGraph is an in-memory implementation of the SenderGraph port.
// Counters reset on restart, so first-time signals are best-effort in
// this mode; the SQLite graph persists them.
type MemoryGraph struct {
	domains map[string]*counter
	addrs   map[string]*counter
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewMemoryGraph creates a new in-memory sender graph
func NewMemoryGraph(logger *zap.Logger) *MemoryGraph {
	return &MemoryGraph{
		domains: make(map[string]*counter),
		addrs:   make(map[string]*counter),
		logger:  logger,
	}
}

// Observe increments the domain and address counters and returns the
// post-increment view. The single mutex makes increment-and-read atomic.
func (g *MemoryGraph) Observe(ctx context.Context, domain, addr string) (core.GraphStats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	domainSeen := bump(g.domains, domain, now)

	// An empty sender address would pool every malformed envelope under
	// one "" key; leave the address signal unknown instead.
	var firstAddr *bool
	if addr != "" {
		addrSeen := bump(g.addrs, addr, now)
		fa := addrSeen == 1
		firstAddr = &fa
	}

	firstDomain := domainSeen == 1
	return core.GraphStats{
		FirstTimeDomain: &firstDomain,
		FirstTimeAddr:   firstAddr,
		DomainSeen:      &domainSeen,
	}, nil
}

func bump(m map[string]*counter, key string, now time.Time) int {
	c, ok := m[key]
	if !ok {
		c = &counter{}
		m[key] = c
	}
	c.seen++
	c.lastSeen = now
	return c.seen
}
