package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mailshield/mailshield/internal/core"
	"go.uber.org/zap"
)

// orgConfig is the on-disk shape of one protected organization.
type orgConfig struct {
	Name       string   `mapstructure:"name"`
	Domains    []string `mapstructure:"domains"`
	EmailRegex string   `mapstructure:"email_regex"`
}

type orgPattern struct {
	name    string
	domains []string
	emailRx *regexp.Regexp
}

// Policy holds the process-wide configuration the scoring core reads:
// protected organizations, brand domains, allow/deny lists, and the
// staff/vendor roster. Loaded once at startup and passed by reference
// into each component.
type Policy struct {
	orgs           []orgPattern
	brandBases     []string
	allowAddrs     map[string]struct{}
	allowDomains   map[string]struct{}
	accountStatus  map[string]string
	roster         map[string]core.RosterEntry
	typosquatBases []string
}

// LoadPolicy builds the policy object from configuration.
func LoadPolicy(cfg *Config, logger *zap.Logger) (*Policy, error) {
	p := &Policy{
		allowAddrs:    make(map[string]struct{}),
		allowDomains:  make(map[string]struct{}),
		accountStatus: make(map[string]string),
		roster:        make(map[string]core.RosterEntry),
	}

	var orgs []orgConfig
	if err := cfg.UnmarshalKey("policy.organizations", &orgs); err != nil {
		return nil, fmt.Errorf("failed to load organization patterns: %w", err)
	}
	for _, o := range orgs {
		var rx *regexp.Regexp
		if o.EmailRegex != "" {
			compiled, err := regexp.Compile(`(?i)` + o.EmailRegex)
			if err != nil {
				return nil, fmt.Errorf("invalid email regex for org %q: %w", o.Name, err)
			}
			rx = compiled
		}
		domains := make([]string, 0, len(o.Domains))
		for _, d := range o.Domains {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				domains = append(domains, d)
			}
		}
		p.orgs = append(p.orgs, orgPattern{name: o.Name, domains: domains, emailRx: rx})
	}

	for _, b := range cfg.GetStringSlice("policy.brand_domains") {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			p.brandBases = append(p.brandBases, b)
		}
	}

	// Allowlist entries with an "@" are addresses, others are domains.
	for _, entry := range cfg.GetStringSlice("policy.allowlist") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "@") {
			p.allowAddrs[entry] = struct{}{}
		} else {
			p.allowDomains[entry] = struct{}{}
		}
	}

	for _, entry := range cfg.GetStringSlice("policy.accounts.blocked") {
		if entry = strings.ToLower(strings.TrimSpace(entry)); entry != "" {
			p.accountStatus[entry] = "blocked"
		}
	}
	for _, entry := range cfg.GetStringSlice("policy.accounts.allowed") {
		if entry = strings.ToLower(strings.TrimSpace(entry)); entry != "" {
			p.accountStatus[entry] = "allow"
		}
	}

	var roster map[string]core.RosterEntry
	if err := cfg.UnmarshalKey("policy.roster", &roster); err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	for email, entry := range roster {
		p.roster[strings.ToLower(email)] = entry
	}

	p.typosquatBases = p.computeTyposquatBases()

	logger.Info("Loaded policy configuration",
		zap.Int("organizations", len(p.orgs)),
		zap.Int("brand_domains", len(p.brandBases)),
		zap.Int("allowlist_entries", len(p.allowAddrs)+len(p.allowDomains)),
		zap.Int("account_entries", len(p.accountStatus)),
		zap.Int("roster_entries", len(p.roster)))

	return p, nil
}

// computeTyposquatBases reduces org and brand domains to deduplicated
// registrable form for the typosquat detector.
func (p *Policy) computeTyposquatBases() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(d string) {
		base := core.RegistrableDomain(d)
		if base == "" {
			return
		}
		if _, ok := seen[base]; ok {
			return
		}
		seen[base] = struct{}{}
		out = append(out, base)
	}
	for _, o := range p.orgs {
		for _, d := range o.domains {
			add(d)
		}
	}
	for _, b := range p.brandBases {
		add(b)
	}
	return out
}

// TyposquatBases returns the protected base domains in registrable form.
func (p *Policy) TyposquatBases() []string {
	return p.typosquatBases
}

// AllowlistHit reports whether the sender address or domain is
// explicitly allow-listed.
func (p *Policy) AllowlistHit(addr, domain string) bool {
	if addr != "" {
		if _, ok := p.allowAddrs[strings.ToLower(addr)]; ok {
			return true
		}
	}
	if domain != "" {
		if _, ok := p.allowDomains[strings.ToLower(domain)]; ok {
			return true
		}
	}
	return false
}

// AccountStatusFor returns the configured account status for the
// address or its domain, or "" when neither is listed. Address entries
// take precedence over domain entries.
func (p *Policy) AccountStatusFor(addr, domain string) string {
	if addr != "" {
		if st, ok := p.accountStatus[strings.ToLower(addr)]; ok {
			return st
		}
	}
	if domain != "" {
		if st, ok := p.accountStatus[strings.ToLower(domain)]; ok {
			return st
		}
	}
	return ""
}

// OrgIdentity checks whether the sender address satisfies the identity
// pattern of the organization its claimed domain belongs to.
func (p *Policy) OrgIdentity(email, claimedDomain string) core.OrgIdentity {
	out := core.OrgIdentity{}
	if len(p.orgs) == 0 {
		out.Reason = "no_patterns"
		return out
	}
	cd := strings.ToLower(strings.TrimSpace(claimedDomain))
	if cd == "" {
		out.Reason = "no_domain"
		return out
	}

	var org *orgPattern
	for i := range p.orgs {
		for _, d := range p.orgs[i].domains {
			if cd == d || strings.HasSuffix(cd, "."+d) {
				org = &p.orgs[i]
				break
			}
		}
		if org != nil {
			break
		}
	}
	if org == nil {
		out.Match = boolPtr(false)
		out.Reason = "domain_not_in_org"
		return out
	}

	out.Name = org.name
	em := strings.ToLower(email)
	if em == "" {
		out.Match = boolPtr(false)
		out.Reason = "missing_email"
		return out
	}

	var ok bool
	if org.emailRx != nil {
		ok = org.emailRx.MatchString(em)
	} else {
		emDomain := em[strings.LastIndex(em, "@")+1:]
		for _, d := range org.domains {
			if emDomain == d || strings.HasSuffix(emDomain, "."+d) {
				ok = true
				break
			}
		}
	}
	out.Match = boolPtr(ok)
	if !ok {
		out.Reason = "email_regex_fail"
	}
	return out
}

// RosterEntryFor looks up a sender address in the staff/vendor roster.
func (p *Policy) RosterEntryFor(email string) *core.RosterEntry {
	if email == "" {
		return nil
	}
	if entry, ok := p.roster[strings.ToLower(email)]; ok {
		e := entry
		return &e
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
