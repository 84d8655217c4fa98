package feedback

import (
	"context"
	"sync"

	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// Trust tier derivation window and threshold. Only the newest verdicts
// count: a sender that was blocked last month but cleared since should
// not stay blocked forever.
const (
	trustWindow      = 10
	trustedAllowsMin = 3
)

// deriveTier buckets a domain from its recent verdicts, newest first.
// A single block poisons the window; trust needs consistent allows.
func deriveTier(recent []core.VerdictRecord) core.TrustFeedback {
	fb := core.TrustFeedback{Tier: core.TrustTierNone}
	for _, rec := range recent {
		switch rec.Verdict {
		case "block":
			fb.Blocks++
		case "allow":
			fb.Allows++
		}
	}
	if fb.Blocks > 0 {
		fb.Tier = core.TrustTierBlocked
	} else if fb.Allows >= trustedAllowsMin {
		fb.Tier = core.TrustTierTrusted
	}
	return fb
}

// MemoryStore is an in-memory TrustStore and HITLQueue for tests and
// single-process deployments.
type MemoryStore struct {
	verdicts map[string][]core.VerdictRecord // newest first
	queue    []core.HITLItem
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory feedback store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		verdicts: make(map[string][]core.VerdictRecord),
		logger:   logger,
	}
}

// TrustFor derives the trust tier for a domain from its recent verdicts
func (s *MemoryStore) TrustFor(ctx context.Context, domain string) (core.TrustFeedback, error) {
	recent, err := s.RecentVerdicts(ctx, domain, trustWindow)
	if err != nil {
		return core.TrustFeedback{}, err
	}
	return deriveTier(recent), nil
}

// RecordVerdict prepends a human verdict to the domain history
func (s *MemoryStore) RecordVerdict(ctx context.Context, rec core.VerdictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.verdicts[rec.Domain] = append([]core.VerdictRecord{rec}, s.verdicts[rec.Domain]...)
	return nil
}

// RecentVerdicts returns up to limit verdicts for a domain, newest first
func (s *MemoryStore) RecentVerdicts(ctx context.Context, domain string, limit int) ([]core.VerdictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recent := s.verdicts[domain]
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	out := make([]core.VerdictRecord, len(recent))
	copy(out, recent)
	return out, nil
}

// Enqueue appends a HITL item to the review queue
func (s *MemoryStore) Enqueue(ctx context.Context, item core.HITLItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, item)
	return nil
}

// PendingItems returns the queued items awaiting review
func (s *MemoryStore) PendingItems() []core.HITLItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.HITLItem, len(s.queue))
	copy(out, s.queue)
	return out
}
