package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a cache entry is missing or expired.
var ErrNotFound = errors.New("cache entry not found")

// MemoryCache is an in-memory implementation of the FeatureCache port.
// Snapshots are replaced wholesale on write; expired entries read as
// misses even before the cleanup task removes them.
type MemoryCache struct {
	domains     map[string]*core.DomainSnapshot
	ips         map[string]*core.IPSnapshot
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMemoryCache creates a new in-memory feature cache
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		domains:     make(map[string]*core.DomainSnapshot),
		ips:         make(map[string]*core.IPSnapshot),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache
}

// GetDomain retrieves a cached domain snapshot
func (c *MemoryCache) GetDomain(ctx context.Context, domain string) (*core.DomainSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.domains[domain]
	if !ok || time.Now().After(snap.ExpiresAt) {
		return nil, ErrNotFound
	}
	return snap, nil
}

// PutDomain stores a domain snapshot
func (c *MemoryCache) PutDomain(ctx context.Context, snap *core.DomainSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.domains[snap.Domain] = snap
	return nil
}

// GetIP retrieves a cached IP snapshot
func (c *MemoryCache) GetIP(ctx context.Context, ip string) (*core.IPSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.ips[ip]
	if !ok || time.Now().After(snap.ExpiresAt) {
		return nil, ErrNotFound
	}
	return snap, nil
}

// PutIP stores an IP snapshot
func (c *MemoryCache) PutIP(ctx context.Context, snap *core.IPSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ips[snap.IP] = snap
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiredCount := 0

	for key, snap := range c.domains {
		if now.After(snap.ExpiresAt) {
			delete(c.domains, key)
			expiredCount++
		}
	}
	for key, snap := range c.ips {
		if now.After(snap.ExpiresAt) {
			delete(c.ips, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	close(c.stopCh)
}
