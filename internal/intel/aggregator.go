package intel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// Policy is the slice of configuration the aggregator consults: allow
// lists, account status, organization identity patterns, the roster,
// and the protected typosquat bases.
type Policy interface {
	AllowlistHit(addr, domain string) bool
	AccountStatusFor(addr, domain string) string
	OrgIdentity(email, claimedDomain string) core.OrgIdentity
	RosterEntryFor(email string) *core.RosterEntry
	TyposquatBases() []string
}

// Aggregator assembles the sender feature bag from policy checks, the
// sender graph, cached snapshots, and live OSINT probes, then scores
// it. Probes share a single wall-clock budget; whatever has not been
// measured when the budget expires stays unknown rather than failing
// the assessment.
type Aggregator struct {
	cache        core.FeatureCache
	graph        core.SenderGraph
	domainProber core.DomainProber
	ipProber     core.IPProber
	policy       Policy
	logger       *zap.Logger
	budget       time.Duration
	domainTTL    time.Duration
	ipTTL        time.Duration
}

// NewAggregator creates a new sender intel aggregator. The cache, graph
// and probers may be nil; the corresponding features then stay unknown.
func NewAggregator(
	cache core.FeatureCache,
	graph core.SenderGraph,
	domainProber core.DomainProber,
	ipProber core.IPProber,
	policy Policy,
	budget time.Duration,
	domainTTL time.Duration,
	ipTTL time.Duration,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		cache:        cache,
		graph:        graph,
		domainProber: domainProber,
		ipProber:     ipProber,
		policy:       policy,
		logger:       logger,
		budget:       budget,
		domainTTL:    domainTTL,
		ipTTL:        ipTTL,
	}
}

// Assess builds and scores the sender feature bag for one email.
func (a *Aggregator) Assess(ctx context.Context, email *core.CompactEmail) (*core.SenderIntel, error) {
	started := time.Now()

	fromAddr := strings.ToLower(strings.TrimSpace(email.From.Addr))
	fromDomain := domainOf(fromAddr)

	ids := core.SenderIDs{
		FromAddr:         fromAddr,
		FromDomain:       fromDomain,
		ClaimedOrgDomain: core.RegistrableDomain(fromDomain),
		MessageID:        email.MessageID,
		DateISO:          email.DateISO,
		EnvelopeMailFrom: email.Envelope.MailFrom,
		EnvelopeClientIP: email.Envelope.ClientIP,
	}

	f := core.FeatureBag{
		ListUnsubscribe: email.ListUnsubscribePresent,
		HasCalendarICS:  email.HasCalendarICS,
	}

	// Policy-derived features are local and always available.
	f.Org = a.policy.OrgIdentity(fromAddr, fromDomain)
	f.Typosquat = core.DetectTyposquat(fromDomain, a.policy.TyposquatBases())
	f.Roster = a.policy.RosterEntryFor(fromAddr)
	wl := a.policy.AllowlistHit(fromAddr, fromDomain)
	f.AllowlistHit = &wl
	f.AccountStatus = a.policy.AccountStatusFor(fromAddr, fromDomain)

	if a.graph != nil && fromDomain != "" {
		stats, err := a.graph.Observe(ctx, fromDomain, fromAddr)
		if err != nil {
			a.logger.Warn("sender graph unavailable",
				zap.String("domain", fromDomain), zap.Error(err))
		} else {
			f.FirstTimeDomain = stats.FirstTimeDomain
			f.FirstTimeAddr = stats.FirstTimeAddr
			f.DomainSeen = stats.DomainSeen
		}
	}

	// All network probes share one deadline; an expired budget leaves
	// the remaining features unknown.
	probeCtx, cancel := context.WithTimeout(ctx, a.budget)
	defer cancel()

	if fromDomain != "" {
		a.collectDomainIntel(probeCtx, fromDomain, &f)
	}
	if ip := strings.TrimSpace(email.Envelope.ClientIP); ip != "" {
		a.collectIPIntel(probeCtx, ip, &f)
	}

	risk := core.ScoreRisk(&f)

	return &core.SenderIntel{
		Features:  f,
		Risk:      risk,
		IDs:       ids,
		ElapsedMS: time.Since(started).Milliseconds(),
	}, nil
}

// collectDomainIntel fills the domain-level features, serving from the
// snapshot cache when possible. A fresh snapshot is only written back
// when every probe produced an answer; partial results are used for
// this assessment but never cached, so the next email retries the
// missing probes.
func (a *Aggregator) collectDomainIntel(ctx context.Context, domain string, f *core.FeatureBag) {
	if a.cache != nil {
		snap, err := a.cache.GetDomain(ctx, domain)
		if err == nil && snap != nil {
			f.CacheDomainHit = true
			f.RegisteredISO = snap.RegisteredISO
			f.RegistrantName = snap.RegistrantName
			f.SecurityTxtPresent = snap.SecurityTxtPresent
			f.CertificateCount = snap.CertificateCount
			f.WebPresence = snap.WebPresence
			f.WebPresenceURL = snap.WebPresenceURL
			f.URLScanTotal = snap.URLScanTotal
			return
		}
	}
	if a.domainProber == nil {
		return
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		degraded bool
	)
	fail := func(probe string, err error) {
		mu.Lock()
		degraded = true
		mu.Unlock()
		a.logger.Debug("domain probe degraded",
			zap.String("domain", domain),
			zap.String("probe", probe),
			zap.Error(err))
	}

	wg.Add(5)
	go func() {
		defer wg.Done()
		registered, registrant, err := a.domainProber.RegistrationMeta(ctx, domain)
		if err != nil {
			fail("rdap", err)
			return
		}
		f.RegisteredISO = registered
		f.RegistrantName = registrant
	}()
	go func() {
		defer wg.Done()
		present, err := a.domainProber.SecurityTxtPresent(ctx, domain)
		if err != nil {
			fail("security_txt", err)
			return
		}
		f.SecurityTxtPresent = &present
	}()
	go func() {
		defer wg.Done()
		count, err := a.domainProber.CertificateCount(ctx, domain)
		if err != nil {
			fail("crtsh", err)
			return
		}
		f.CertificateCount = count
	}()
	go func() {
		defer wg.Done()
		present, url, err := a.domainProber.WebPresence(ctx, domain)
		if err != nil {
			fail("web_presence", err)
			return
		}
		f.WebPresence = &present
		f.WebPresenceURL = url
	}()
	go func() {
		defer wg.Done()
		total, err := a.domainProber.URLScanTotal(ctx, domain)
		if err != nil {
			fail("urlscan", err)
			return
		}
		f.URLScanTotal = total
	}()
	wg.Wait()

	if degraded || a.cache == nil {
		return
	}
	snap := &core.DomainSnapshot{
		Domain:             domain,
		RegisteredISO:      f.RegisteredISO,
		RegistrantName:     f.RegistrantName,
		SecurityTxtPresent: f.SecurityTxtPresent,
		CertificateCount:   f.CertificateCount,
		WebPresence:        f.WebPresence,
		WebPresenceURL:     f.WebPresenceURL,
		URLScanTotal:       f.URLScanTotal,
		ExpiresAt:          time.Now().Add(a.domainTTL),
	}
	if err := a.cache.PutDomain(ctx, snap); err != nil {
		a.logger.Warn("failed to cache domain snapshot",
			zap.String("domain", domain), zap.Error(err))
	}
}

func (a *Aggregator) collectIPIntel(ctx context.Context, ip string, f *core.FeatureBag) {
	if a.cache != nil {
		snap, err := a.cache.GetIP(ctx, ip)
		if err == nil && snap != nil {
			f.CacheIPHit = true
			f.AbuseIPScore = snap.AbuseScore
			return
		}
	}
	if a.ipProber == nil {
		return
	}

	score, err := a.ipProber.AbuseConfidence(ctx, ip)
	if err != nil {
		a.logger.Debug("ip probe degraded", zap.String("ip", ip), zap.Error(err))
		return
	}
	f.AbuseIPScore = score

	if a.cache != nil {
		snap := &core.IPSnapshot{
			IP:         ip,
			AbuseScore: score,
			ExpiresAt:  time.Now().Add(a.ipTTL),
		}
		if err := a.cache.PutIP(ctx, snap); err != nil {
			a.logger.Warn("failed to cache ip snapshot",
				zap.String("ip", ip), zap.Error(err))
		}
	}
}

func domainOf(addr string) string {
	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}
