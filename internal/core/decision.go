package core

import (
	"fmt"
)

// Decision engine thresholds. Kept next to the cascade that uses them.
const (
	trustedCompromiseConfidence = 0.90
	autoQuarantineConfidence    = 0.85
	grayZoneConfidence          = 0.50
	criticalSenderRisk          = 85
	elevatedSenderRisk          = 60
	moderateSenderRisk          = 50
	phiSafeConfidence           = 0.75
	autoAllowConfidence         = 0.80
)

// Decide converts classification, confidence, sender risk, PHI count,
// the prior decision, and the feedback trust tier into the final
// verdict and HITL routing. Evaluated as an ordered cascade; the first
// matching rule after the trust-tier fast paths wins, and every branch
// appends exactly one reason with the numbers that triggered it.
//
// The default path fails open: when nothing matches, mail is allowed
// with a logged reason rather than dropped. That posture is deliberate
// and must be preserved.
func Decide(in DecisionInput) Decision {
	isPhish := in.Classification == ClassPhishing
	isSafe := in.Classification == ClassSafe
	hasPHI := in.PHIEntities > 0

	pack := func(verdict Verdict, status HITLStatus, reason string) Decision {
		return Decision{
			Verdict: verdict,
			Risk:    in.SenderRisk,
			Reasons: []string{reason},
			HITL:    HITLInfo{Status: status},
		}
	}

	// Rule 0: human feedback fast paths. A recent human block overrides
	// everything else.
	if in.TrustTier == TrustTierBlocked {
		return pack(VerdictQuarantine, HITLSkipped,
			"Sender is explicitly blocked by previous IT verdict. Auto-quarantined.")
	}
	if in.TrustTier == TrustTierTrusted {
		if isPhish && in.Confidence > trustedCompromiseConfidence {
			// Trust does not override blatant evidence, but a trusted
			// sender turning malicious means a likely account
			// compromise, so a human confirms instead of a silent block.
			return pack(VerdictQuarantine, HITLRequired,
				"Sender is normally trusted, but content is high-confidence phishing. Account compromise suspected.")
		}
		if isSafe {
			return pack(VerdictAllow, HITLSkipped,
				fmt.Sprintf("Sender is trusted by IT history. Auto-allowed despite risk score %d.", in.SenderRisk))
		}
		// Trusted but neither condition holds: fall through.
	}

	// Rule 1: high-confidence phishing auto-quarantines without a queue
	// entry, explicitly to reduce alert fatigue.
	if isPhish && in.Confidence >= autoQuarantineConfidence {
		return pack(VerdictQuarantine, HITLSkipped,
			fmt.Sprintf("High-confidence phishing detection (%.2f). Auto-quarantined to reduce alert fatigue.", in.Confidence))
	}

	// Rule 2: extreme sender risk.
	if in.SenderRisk >= criticalSenderRisk {
		return pack(VerdictQuarantine, HITLSkipped,
			fmt.Sprintf("Sender risk is critical (%d). Auto-quarantined.", in.SenderRisk))
	}

	// Rule 3: the genuine gray zone needs a human.
	if isPhish && in.Confidence >= grayZoneConfidence {
		return pack(VerdictQuarantine, HITLRequired,
			fmt.Sprintf("Suspected phishing with moderate confidence (%.2f). Requires human verification.", in.Confidence))
	}
	if isSafe && in.SenderRisk >= elevatedSenderRisk {
		return pack(VerdictQuarantine, HITLRequired,
			fmt.Sprintf("Content appears safe, but sender risk is high (%d). IT review required.", in.SenderRisk))
	}

	// Rule 4: PHI compliance. The message is still delivered either
	// way; low confidence or elevated risk flags it for review.
	if hasPHI {
		if isSafe && in.Confidence >= phiSafeConfidence && in.SenderRisk < moderateSenderRisk {
			return pack(VerdictAllow, HITLSkipped,
				fmt.Sprintf("Contains PHI (%d entities), but sender/content confidence is high. Allowed.", in.PHIEntities))
		}
		return pack(VerdictAllow, HITLRequired,
			fmt.Sprintf("Contains PHI with lower confidence (%.2f) or elevated risk. Compliance review required.", in.Confidence))
	}

	// Rule 5: high-confidence safe auto-allows.
	if isSafe && in.Confidence >= autoAllowConfidence && in.SenderRisk < moderateSenderRisk {
		return pack(VerdictAllow, HITLSkipped,
			fmt.Sprintf("High-confidence safe email (%.2f).", in.Confidence))
	}

	// Default: honor an upstream quarantine, otherwise fail open.
	if in.PriorVerdict == VerdictQuarantine {
		return pack(VerdictQuarantine, HITLRequired,
			"Baseline logic quarantined message; requiring HITL confirmation.")
	}
	return pack(VerdictAllow, HITLSkipped,
		"Routine email; no high-risk signals detected.")
}
