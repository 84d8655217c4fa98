package core

import (
	"fmt"
	"strings"
)

// Sender risk rule thresholds and deltas. The rules run as an ordered
// additive sequence with hard overrides at the end, then clamp to
// [0,100]. Unknown (nil) features contribute nothing.
const (
	abuseHighCutoff    = 50
	abuseHighDelta     = 40
	firstDomainDelta   = 20
	firstAddrDelta     = 10
	familiarSeenCount  = 10
	familiarDiscount   = 5
	noSecurityTxtDelta = 5
	fewCertsCutoff     = 5
	fewCertsDelta      = 10
	noPresenceDelta    = 5
	orgMismatchDelta   = 20
	typosquatDelta     = 30
	blockedFloor       = 90
	allowedCeiling     = 5
)

// ScoreRisk turns a feature bag into a 0-100 sender risk score plus
// the notes justifying it, in rule-evaluation order. Notes are never
// deduplicated: later notes add context, they do not correct earlier
// ones.
func ScoreRisk(f *FeatureBag) RiskScore {
	score := 0
	var notes []string

	if f.AbuseIPScore != nil {
		switch {
		case *f.AbuseIPScore >= abuseHighCutoff:
			score += abuseHighDelta
			notes = append(notes, "high abuseipdb")
		case *f.AbuseIPScore > 0:
			score += *f.AbuseIPScore / 2
			notes = append(notes, "some abuse reports")
		}
	}

	if f.FirstTimeDomain != nil && *f.FirstTimeDomain {
		score += firstDomainDelta
		notes = append(notes, "first-time domain")
	}
	if f.FirstTimeAddr != nil && *f.FirstTimeAddr {
		score += firstAddrDelta
		notes = append(notes, "first-time address")
	}
	if f.DomainSeen != nil && *f.DomainSeen >= familiarSeenCount {
		score -= familiarDiscount
		notes = append(notes, "domain seen often")
	}

	if f.SecurityTxtPresent != nil && !*f.SecurityTxtPresent {
		score += noSecurityTxtDelta
		notes = append(notes, "no security.txt")
	}
	if f.CertificateCount != nil && *f.CertificateCount < fewCertsCutoff {
		score += fewCertsDelta
		notes = append(notes, "few certificates")
	}
	if f.WebPresence != nil && !*f.WebPresence {
		score += noPresenceDelta
		notes = append(notes, "no LinkedIn org page")
	}

	// Org identity mismatch only counts when the domain matched a known
	// org but the address failed that org's validation pattern.
	if f.Org.Match != nil && !*f.Org.Match {
		if f.Org.Reason == "email_regex_fail" || f.Org.Reason == "missing_email" {
			score += orgMismatchDelta
			notes = append(notes, "org identity mismatch")
		}
	}

	// Roster membership is explanatory only; no score delta.
	if f.Roster != nil {
		notes = append(notes, rosterNote(f.Roster))
	}

	if f.Typosquat.Suspect {
		score += typosquatDelta
		notes = append(notes, "typosquatting suspected")
	}

	if f.AllowlistHit != nil && *f.AllowlistHit {
		score = 0
		notes = append(notes, "whitelisted")
	}

	switch strings.ToLower(f.AccountStatus) {
	case "blocked", "deny":
		if score < blockedFloor {
			score = blockedFloor
		}
		notes = append(notes, "account blocked")
	case "allow", "ok":
		if score > allowedCeiling {
			score = allowedCeiling
		}
		notes = append(notes, "account ok")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return RiskScore{Score: score, Notes: notes}
}

func rosterNote(r *RosterEntry) string {
	var parts []string
	if r.Category != "" {
		parts = append(parts, strings.ReplaceAll(r.Category, "_", " "))
	}
	if r.Company != "" {
		parts = append(parts, r.Company)
	}
	label := "contact"
	if len(parts) > 0 {
		label = strings.Join(parts, " ")
	}
	note := fmt.Sprintf("Known %s", label)
	if r.DisplayName != "" {
		note += ": " + r.DisplayName
	}
	if r.TrustTier != "" {
		note += fmt.Sprintf(" (trust=%s)", r.TrustTier)
	}
	return note
}
