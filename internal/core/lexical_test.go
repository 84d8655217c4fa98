package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeContent_EmptyInput(t *testing.T) {
	analysis := AnalyzeContent("", "")

	assert.Equal(t, ClassSafe, analysis.Classification)
	assert.Equal(t, 0.0, analysis.TotalRisk)
	assert.InDelta(t, 0.99, analysis.Confidence, 0.0001)
	assert.Equal(t, "informational", analysis.Intent)
	assert.Equal(t, "neutral", analysis.Tone)
	assert.Equal(t, "routine", analysis.Urgency)
	assert.Equal(t, []string{"No significant phishing patterns detected."}, analysis.Reasoning)
}

func TestAnalyzeContent_CredentialPhishWithLink(t *testing.T) {
	analysis := AnalyzeContent(
		"Please verify your account",
		"Please login and verify your account at http://portal.example-login.com/verify immediately.",
	)

	assert.Equal(t, ClassPhishing, analysis.Classification)
	assert.GreaterOrEqual(t, analysis.Confidence, 0.60)
	assert.GreaterOrEqual(t, analysis.TotalRisk, 0.5)
	assert.Equal(t, 1, analysis.Signals[SignalSuspiciousLink])
	assert.Greater(t, analysis.Signals[SignalCredentialLanguage], 0)
	assert.Equal(t, "credential_request", analysis.Intent)
	assert.Contains(t, analysis.Reasoning[0], "CRITICAL")
}

func TestAnalyzeContent_BenignNewsletter(t *testing.T) {
	analysis := AnalyzeContent(
		"Team meeting notes",
		"Hi all, thanks for joining the meeting today. The notes are in the shared wiki. Best, Ann",
	)

	assert.Equal(t, ClassSafe, analysis.Classification)
	assert.Equal(t, "scheduling", analysis.Intent)
	assert.Equal(t, "friendly", analysis.Tone)
	assert.Equal(t, "routine", analysis.Urgency)
	assert.Less(t, analysis.TotalRisk, 0.5)
}

func TestAnalyzeContent_Deterministic(t *testing.T) {
	subject := "Action required: update your password"
	body := "Click the link below http://x.test/a to update your password immediately."

	first := AnalyzeContent(subject, body)
	second := AnalyzeContent(subject, body)
	assert.Equal(t, first, second)
}

func TestAnalyzeContent_SignalFlags(t *testing.T) {
	analysis := AnalyzeContent("", "see attached invoice")
	flags := analysis.SignalFlags()
	assert.True(t, flags[SignalAttachmentReference])
	assert.False(t, flags[SignalSuspiciousLink])
}

func TestComputeScores_IntensityCurve(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		expected float64
	}{
		{"zero matches no score", 0, 0},
		{"one match yields 60% of weight", 1, 0.12},
		{"two matches yield 90% of weight", 2, 0.18},
		{"three matches saturate", 3, 0.20},
		{"extra matches stay saturated", 7, 0.20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := computeScores(map[SignalCategory]int{
				SignalUrgencyLanguage: tt.count,
			})
			assert.InDelta(t, tt.expected, scores[SignalUrgencyLanguage], 0.0001)
		})
	}
}

func TestComputeScores_CredentialLinkBoost(t *testing.T) {
	// A single credential match alone scores at the 60% step.
	alone := computeScores(map[SignalCategory]int{
		SignalCredentialLanguage: 1,
	})
	assert.InDelta(t, 0.21, alone[SignalCredentialLanguage], 0.0001)

	// Combined with a link it is scored as if there were two matches.
	boosted := computeScores(map[SignalCategory]int{
		SignalCredentialLanguage: 1,
		SignalSuspiciousLink:     1,
	})
	assert.InDelta(t, 0.315, boosted[SignalCredentialLanguage], 0.0001)

	// Counts at or above two are unaffected.
	saturated := computeScores(map[SignalCategory]int{
		SignalCredentialLanguage: 3,
		SignalSuspiciousLink:     1,
	})
	assert.InDelta(t, 0.35, saturated[SignalCredentialLanguage], 0.0001)
}

func TestComputeConfidence_Anchors(t *testing.T) {
	// Exactly at the threshold, phishing confidence starts at 0.60.
	assert.InDelta(t, 0.60, computeConfidence(0.5, ClassPhishing), 0.0001)
	// Maximal risk reaches the 0.99 cap.
	assert.InDelta(t, 0.99, computeConfidence(1.0, ClassPhishing), 0.0001)
	// Zero risk is maximally confident safe.
	assert.InDelta(t, 0.99, computeConfidence(0.0, ClassSafe), 0.0001)
}

func TestComputeConfidence_MonotonicAndBounded(t *testing.T) {
	prev := 0.0
	for risk := 0.5; risk <= 1.0; risk += 0.05 {
		c := computeConfidence(risk, ClassPhishing)
		require.GreaterOrEqual(t, c, prev)
		require.GreaterOrEqual(t, c, 0.60)
		require.LessOrEqual(t, c, 0.99)
		prev = c
	}

	prev = 1.0
	for risk := 0.0; risk < 0.5; risk += 0.05 {
		c := computeConfidence(risk, ClassSafe)
		require.LessOrEqual(t, c, prev)
		require.GreaterOrEqual(t, c, 0.55)
		require.LessOrEqual(t, c, 0.99)
		prev = c
	}
}

func TestCountMatches_DistinctPatternsNotOccurrences(t *testing.T) {
	// Repeating the same phrase many times counts once.
	n := countMatches(urgencyTerms, "urgent urgent urgent urgent")
	assert.Equal(t, 1, n)
}
