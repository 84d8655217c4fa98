package core

import (
	"context"
)

// FeatureCache is the read-through TTL cache for domain and IP feature
// snapshots. Implementations treat expired entries as misses and only
// ever replace entries wholesale (last-write-wins).
type FeatureCache interface {
	GetDomain(ctx context.Context, domain string) (*DomainSnapshot, error)
	PutDomain(ctx context.Context, snap *DomainSnapshot) error
	GetIP(ctx context.Context, ip string) (*IPSnapshot, error)
	PutIP(ctx context.Context, snap *IPSnapshot) error
}

// SenderGraph maintains per-domain and per-address observation counters.
// Observe must increment-and-read atomically so concurrent senders from
// the same domain never lose updates.
type SenderGraph interface {
	Observe(ctx context.Context, domain, addr string) (GraphStats, error)
}

// DomainProber performs the domain-level OSINT lookups. Each method is
// an independent pass-through probe; a nil pointer result means the
// fact could not be established (unknown), which is distinct from a
// measured zero/false.
type DomainProber interface {
	RegistrationMeta(ctx context.Context, domain string) (registeredISO, registrantName string, err error)
	SecurityTxtPresent(ctx context.Context, domain string) (bool, error)
	CertificateCount(ctx context.Context, domain string) (*int, error)
	WebPresence(ctx context.Context, domain string) (present bool, url string, err error)
	URLScanTotal(ctx context.Context, domain string) (*int, error)
}

// IPProber performs the IP-level abuse reputation lookup.
type IPProber interface {
	AbuseConfidence(ctx context.Context, ip string) (*int, error)
}

// IntelSource produces the sender risk assessment for one email.
type IntelSource interface {
	Assess(ctx context.Context, email *CompactEmail) (*SenderIntel, error)
}

// TrustStore serves the human-feedback trust tier for sender domains
// and records new verdicts.
type TrustStore interface {
	TrustFor(ctx context.Context, domain string) (TrustFeedback, error)
	RecordVerdict(ctx context.Context, rec VerdictRecord) error
	RecentVerdicts(ctx context.Context, domain string, limit int) ([]VerdictRecord, error)
}

// HITLQueue enqueues decisions that need human review.
type HITLQueue interface {
	Enqueue(ctx context.Context, item HITLItem) error
}

// AuditStore persists run documents. SaveRun returns the blob key the
// document was written under.
type AuditStore interface {
	SaveRun(ctx context.Context, doc *RunDocument) (string, error)
}

// PolicyAdvisor turns recent human verdict history into a textual
// policy suggestion. It is advisory only and sits outside the
// deterministic decision path.
type PolicyAdvisor interface {
	SuggestPolicy(ctx context.Context, domain string, history []VerdictRecord) (string, error)
}
