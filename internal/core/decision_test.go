package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide_Cascade(t *testing.T) {
	tests := []struct {
		name          string
		in            DecisionInput
		verdict       Verdict
		hitl          HITLStatus
		reasonSnippet string
	}{
		{
			name:          "blocked tier wins over everything",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.99, TrustTier: TrustTierBlocked},
			verdict:       VerdictQuarantine,
			hitl:          HITLSkipped,
			reasonSnippet: "explicitly blocked",
		},
		{
			name:          "trusted sender with blatant phishing suggests compromise",
			in:            DecisionInput{Classification: ClassPhishing, Confidence: 0.95, TrustTier: TrustTierTrusted},
			verdict:       VerdictQuarantine,
			hitl:          HITLRequired,
			reasonSnippet: "compromise",
		},
		{
			name:          "trusted sender with safe content auto-allows despite risk",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.60, SenderRisk: 70, TrustTier: TrustTierTrusted},
			verdict:       VerdictAllow,
			hitl:          HITLSkipped,
			reasonSnippet: "trusted by IT history",
		},
		{
			name:          "trusted sender with moderate phishing falls through to gray zone",
			in:            DecisionInput{Classification: ClassPhishing, Confidence: 0.70, TrustTier: TrustTierTrusted},
			verdict:       VerdictQuarantine,
			hitl:          HITLRequired,
			reasonSnippet: "human verification",
		},
		{
			name:          "high-confidence phishing skips the queue",
			in:            DecisionInput{Classification: ClassPhishing, Confidence: 0.86},
			verdict:       VerdictQuarantine,
			hitl:          HITLSkipped,
			reasonSnippet: "alert fatigue",
		},
		{
			name:          "critical sender risk quarantines regardless of content",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.95, SenderRisk: 90},
			verdict:       VerdictQuarantine,
			hitl:          HITLSkipped,
			reasonSnippet: "critical",
		},
		{
			name:          "gray-zone phishing needs a human",
			in:            DecisionInput{Classification: ClassPhishing, Confidence: 0.60},
			verdict:       VerdictQuarantine,
			hitl:          HITLRequired,
			reasonSnippet: "moderate confidence",
		},
		{
			name:          "safe content with elevated sender risk needs review",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.95, SenderRisk: 70},
			verdict:       VerdictQuarantine,
			hitl:          HITLRequired,
			reasonSnippet: "sender risk is high",
		},
		{
			name:          "confident PHI email is allowed without review",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.80, SenderRisk: 10, PHIEntities: 2},
			verdict:       VerdictAllow,
			hitl:          HITLSkipped,
			reasonSnippet: "Contains PHI",
		},
		{
			name:          "low-confidence PHI email is delivered but flagged",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.60, SenderRisk: 10, PHIEntities: 1},
			verdict:       VerdictAllow,
			hitl:          HITLRequired,
			reasonSnippet: "Compliance review",
		},
		{
			name:          "high-confidence safe auto-allows",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.90, SenderRisk: 10},
			verdict:       VerdictAllow,
			hitl:          HITLSkipped,
			reasonSnippet: "High-confidence safe",
		},
		{
			name:          "default honors an upstream quarantine",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.70, SenderRisk: 55, PriorVerdict: VerdictQuarantine},
			verdict:       VerdictQuarantine,
			hitl:          HITLRequired,
			reasonSnippet: "Baseline logic",
		},
		{
			name:          "default fails open",
			in:            DecisionInput{Classification: ClassSafe, Confidence: 0.70, SenderRisk: 55},
			verdict:       VerdictAllow,
			hitl:          HITLSkipped,
			reasonSnippet: "Routine email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Decide(tt.in)
			assert.Equal(t, tt.verdict, decision.Verdict)
			assert.Equal(t, tt.hitl, decision.HITL.Status)
			assert.Len(t, decision.Reasons, 1)
			assert.Contains(t, decision.Reasons[0], tt.reasonSnippet)
			assert.Equal(t, tt.in.SenderRisk, decision.Risk)
		})
	}
}

func TestDecide_TrustedCompromiseIsTerminal(t *testing.T) {
	// The suspected-compromise path must not be overwritten by the
	// auto-quarantine rule: the human review requirement survives.
	decision := Decide(DecisionInput{
		Classification: ClassPhishing,
		Confidence:     0.95,
		TrustTier:      TrustTierTrusted,
	})
	assert.Equal(t, HITLRequired, decision.HITL.Status)
}

func TestDecide_PHIBoundaries(t *testing.T) {
	// PHI with moderate sender risk goes to compliance review even when
	// confidence is high.
	decision := Decide(DecisionInput{
		Classification: ClassSafe,
		Confidence:     0.90,
		SenderRisk:     55,
		PHIEntities:    3,
	})
	assert.Equal(t, VerdictAllow, decision.Verdict)
	assert.Equal(t, HITLRequired, decision.HITL.Status)
}
