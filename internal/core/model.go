package core

import (
	"time"
)

// Verdict is the final disposition for an email.
type Verdict string

const (
	VerdictAllow      Verdict = "ALLOW"
	VerdictQuarantine Verdict = "QUARANTINE"
)

// HITLStatus describes whether a decision needs human review.
// "pending" is assigned downstream once a required item has been queued
// but not yet actioned; the decision engine itself never emits it.
type HITLStatus string

const (
	HITLSkipped  HITLStatus = "skipped"
	HITLRequired HITLStatus = "required"
	HITLPending  HITLStatus = "pending"
)

// TrustTier is the sender-domain reputation bucket derived from human
// verdict history. An empty tier means no usable history.
type TrustTier string

const (
	TrustTierBlocked TrustTier = "blocked"
	TrustTierTrusted TrustTier = "trusted"
	TrustTierNone    TrustTier = ""
)

// Classification is the content-level phishing call.
type Classification string

const (
	ClassPhishing Classification = "phishing"
	ClassSafe     Classification = "safe"
)

// SignalCategory names one of the fixed lexical signal categories.
type SignalCategory string

const (
	SignalCredentialLanguage  SignalCategory = "credential_language"
	SignalSuspiciousLink      SignalCategory = "suspicious_link"
	SignalUrgencyLanguage     SignalCategory = "urgency_language"
	SignalManipulativeTone    SignalCategory = "manipulative_tone"
	SignalAttachmentReference SignalCategory = "attachment_reference"
)

// Address is the parsed From header identity.
type Address struct {
	Addr string `json:"addr"`
}

// Envelope carries SMTP envelope facts.
type Envelope struct {
	ClientIP string `json:"client_ip"`
	MailFrom string `json:"mail_from"`
}

// CompactEmail is the canonical normalized email record every component
// consumes. The shape-normalization adapter produces it once; the
// scoring and decision core never sees raw envelope variants.
type CompactEmail struct {
	From                   Address  `json:"from"`
	Envelope               Envelope `json:"envelope"`
	Subject                string   `json:"subject"`
	Body                   string   `json:"body"`
	MessageID              string   `json:"message_id"`
	DateISO                string   `json:"date_iso"`
	ListUnsubscribePresent bool     `json:"list_unsubscribe_present"`
	HasCalendarICS         bool     `json:"has_calendar_ics"`
	Provenance             string   `json:"provenance"`
}

// ContentAnalysis is the lexical scorer output for one email.
// Signals holds raw distinct-pattern match counts; the critical
// combination boost is applied at scoring time only.
type ContentAnalysis struct {
	Confidence     float64                    `json:"confidence_final"`
	Classification Classification             `json:"classification"`
	TotalRisk      float64                    `json:"total_risk"`
	Intent         string                     `json:"intent"`
	Tone           string                     `json:"tone"`
	Urgency        string                     `json:"urgency"`
	Reasoning      []string                   `json:"reasoning"`
	Signals        map[SignalCategory]int     `json:"signals"`
	Scores         map[SignalCategory]float64 `json:"scores"`
}

// SignalFlags reduces the raw match counts to booleans for display.
func (a *ContentAnalysis) SignalFlags() map[SignalCategory]bool {
	flags := make(map[SignalCategory]bool, len(a.Signals))
	for k, v := range a.Signals {
		flags[k] = v > 0
	}
	return flags
}

// TyposquatReason explains why a domain was flagged.
type TyposquatReason string

const (
	TyposquatNone         TyposquatReason = ""
	TyposquatHomoglyph    TyposquatReason = "homoglyph_substitution"
	TyposquatEditDistance TyposquatReason = "edit_distance<=1"
	TyposquatPunycode     TyposquatReason = "punycode_idn"
)

// TyposquatVerdict is the impersonation check result for one domain.
type TyposquatVerdict struct {
	Suspect   bool            `json:"suspect"`
	ClosestTo string          `json:"closest_to"`
	Reason    TyposquatReason `json:"reason"`
}

// OrgIdentity is the organization-identity match result. Match is nil
// when no patterns are configured or no claimed domain was available.
type OrgIdentity struct {
	Match  *bool  `json:"match"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// RosterEntry describes a known internal staff/vendor contact. It is
// explanatory only and never changes the risk score.
type RosterEntry struct {
	DisplayName string `json:"display_name" mapstructure:"display_name"`
	Company     string `json:"company" mapstructure:"company"`
	Category    string `json:"category" mapstructure:"category"`
	TrustTier   string `json:"trust_tier" mapstructure:"trust_tier"`
}

// FeatureBag accumulates sender risk features. Pointer fields carry the
// unknown/measured distinction: nil always means "unknown" and must not
// contribute to the score, while a concrete zero is a real measurement.
type FeatureBag struct {
	AbuseIPScore       *int  `json:"abuseipdb_score"`
	FirstTimeDomain    *bool `json:"first_time_domain"`
	FirstTimeAddr      *bool `json:"first_time_addr"`
	DomainSeen         *int  `json:"domain_seen"`
	SecurityTxtPresent *bool `json:"securitytxt_present"`
	CertificateCount   *int  `json:"crtsh_count"`
	WebPresence        *bool `json:"web_presence"`
	WebPresenceURL     string `json:"web_presence_url,omitempty"`
	URLScanTotal       *int  `json:"urlscan_total"`

	RegisteredISO  string `json:"domain_registered_iso,omitempty"`
	RegistrantName string `json:"domain_rdap_name,omitempty"`

	Org       OrgIdentity      `json:"org"`
	Roster    *RosterEntry     `json:"roster,omitempty"`
	Typosquat TyposquatVerdict `json:"typosquatting"`

	AllowlistHit  *bool  `json:"whitelist_hit"`
	AccountStatus string `json:"account_status,omitempty"`

	ListUnsubscribe bool `json:"list_unsubscribe"`
	HasCalendarICS  bool `json:"mime_has_ics"`

	CacheDomainHit bool `json:"cache_domain_hit"`
	CacheIPHit     bool `json:"cache_ip_hit"`
}

// RiskScore is the aggregated sender risk with its justification notes,
// in rule-evaluation order.
type RiskScore struct {
	Score int      `json:"score"`
	Notes []string `json:"notes"`
}

// SenderIDs echoes the identity fields used during aggregation.
type SenderIDs struct {
	FromAddr         string `json:"from_addr"`
	FromDomain       string `json:"from_domain"`
	ClaimedOrgDomain string `json:"claimed_org_domain"`
	MessageID        string `json:"message_id"`
	DateISO          string `json:"date_iso"`
	EnvelopeMailFrom string `json:"envelope_mail_from"`
	EnvelopeClientIP string `json:"envelope_client_ip"`
}

// SenderIntel is the sender risk aggregator output.
type SenderIntel struct {
	Features  FeatureBag `json:"features"`
	Risk      RiskScore  `json:"risk"`
	IDs       SenderIDs  `json:"ids"`
	ElapsedMS int64      `json:"osint_elapsed_ms"`
}

// TrustFeedback summarizes recent human verdicts for a sender domain.
type TrustFeedback struct {
	Tier   TrustTier `json:"tier"`
	Allows int       `json:"allows"`
	Blocks int       `json:"blocks"`
}

// VerdictRecord is one human review outcome for a sender domain.
type VerdictRecord struct {
	Domain    string    `json:"domain"`
	Verdict   string    `json:"verdict"` // "allow" or "block"
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// HITLInfo is the human-in-the-loop block attached to a decision.
type HITLInfo struct {
	Status  HITLStatus `json:"status"`
	Actor   string     `json:"actor"`
	Verdict string     `json:"verdict"`
	Notes   string     `json:"notes"`
	TS      *time.Time `json:"ts"`
}

// Decision is the authoritative pipeline outcome for one email.
// It is produced fresh per email and never mutated after return.
type Decision struct {
	Verdict Verdict  `json:"decision"`
	Risk    int      `json:"risk"`
	Reasons []string `json:"reasons"`
	HITL    HITLInfo `json:"hitl"`
}

// DecisionInput gathers everything the decision engine looks at.
type DecisionInput struct {
	Classification Classification
	Confidence     float64
	SenderRisk     int
	PHIEntities    int
	PriorVerdict   Verdict
	TrustTier      TrustTier
}

// DomainSnapshot is the cached domain-level feature set. Entries are
// replaced wholesale on refresh, never mutated in place.
type DomainSnapshot struct {
	Domain             string
	RegisteredISO      string
	RegistrantName     string
	SecurityTxtPresent *bool
	CertificateCount   *int
	WebPresence        *bool
	WebPresenceURL     string
	URLScanTotal       *int
	ExpiresAt          time.Time
}

// IPSnapshot is the cached IP-level feature set.
type IPSnapshot struct {
	IP         string
	AbuseScore *int
	ExpiresAt  time.Time
}

// GraphStats is the sender-frequency graph observation result.
type GraphStats struct {
	FirstTimeDomain *bool
	FirstTimeAddr   *bool
	DomainSeen      *int
}

// HITLItem is a queue entry for a decision awaiting human review.
type HITLItem struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	CreatedTS  time.Time `json:"created_ts"`
	Verdict    Verdict   `json:"decision"`
	Risk       int       `json:"risk"`
	HasPHI     bool      `json:"has_phi"`
	Intent     string    `json:"intent"`
	FromAddr   string    `json:"from_addr"`
	FromDomain string    `json:"from_domain"`
	Subject    string    `json:"subject"`
	BlobKey    string    `json:"blob_key"`
}

// RunSummary is the dashboard-facing digest inside a run document.
type RunSummary struct {
	Classification  Classification `json:"classification"`
	Confidence      float64        `json:"confidence"`
	SenderRisk      int            `json:"sender_risk"`
	SenderRiskNotes []string       `json:"sender_risk_notes"`
	Intent          string         `json:"intent"`
	Tone            string         `json:"tone"`
	Urgency         string         `json:"urgency"`
	HasPHI          bool           `json:"has_phi"`
}

// RunQueue tracks the queue state of a run document.
type RunQueue struct {
	Status     string     `json:"status"`
	CreatedTS  time.Time  `json:"created_ts"`
	ResolvedTS *time.Time `json:"resolved_ts"`
}

// RunDocument is the audit record persisted per evaluated email.
type RunDocument struct {
	Version     int              `json:"version"`
	RunID       string           `json:"run_id"`
	Timestamp   time.Time        `json:"timestamp"`
	Verdict     Verdict          `json:"decision"`
	Reasons     []string         `json:"decision_reasons"`
	Summary     RunSummary       `json:"summary"`
	Compact     CompactEmail     `json:"compact"`
	BodyPreview string           `json:"body_preview"`
	PHIEntities int              `json:"phi_entities"`
	Content     *ContentAnalysis `json:"content"`
	SenderIntel *SenderIntel     `json:"sender_intel"`
	Trust       TrustFeedback    `json:"trust"`
	HITL        HITLInfo         `json:"hitl"`
	Queue       RunQueue         `json:"queue"`
	ElapsedMS   int64            `json:"elapsed_ms"`
}

// EvaluationRequest is one email plus the upstream facts the pipeline
// needs but does not compute itself.
type EvaluationRequest struct {
	Email        *CompactEmail
	PHIEntities  int
	PriorVerdict Verdict
}
