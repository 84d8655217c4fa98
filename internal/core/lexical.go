package core

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Category weights cap the maximum risk contribution of each category.
var categoryWeights = map[SignalCategory]float64{
	SignalCredentialLanguage:  0.35,
	SignalSuspiciousLink:      0.40,
	SignalUrgencyLanguage:     0.20,
	SignalManipulativeTone:    0.20,
	SignalAttachmentReference: 0.15,
}

// phishingThreshold splits phishing from safe on total content risk.
const phishingThreshold = 0.5

var suspiciousTerms = compilePatterns([]string{
	`\bconfirm\b`, `\bverify\b`, `\bupdate\b`, `\bcredential(s)?\b`, `\bpassword\b`,
	`\bbank( account)?\b`, `\bsecure\b`, `\bportal\b`,
	`\bclick\b.*\blink\b`, `\bfollow\b.*\blink\b`, `\buse\b.*\blink\b`,
	`\blink below\b`, `\blink provided\b`, `\bvia the link\b`,
})

var urgencyTerms = compilePatterns([]string{
	`\burgent\b`, `\baction required\b`, `\bimmediately\b`, `\basap\b`,
	`\bavoid delay(s)?\b`, `\bfinal notice\b`, `\bmust\b`, `\brequired\b`,
	`\bprevent\b.*\b(interruption|suspension|lockout)\b`,
	`\bimmediate processing\b`, `\bdelay(ed)? payment(s)?\b`,
})

var manipulativeToneTerms = compilePatterns([]string{
	`\bto avoid\b.*\b(delay|suspension|termination)\b`,
	`\bfailure to\b.*\bwill result\b`,
	`\bfailure to\b.*\b(delay|issue|penalt(y|ies)|suspension|lockout|cancel)\b`,
	`\bwithout\b.*\b(confirmation|response|action)\b.*\b(delay|hold|impact)\b`,
})

var credentialIntentTerms = compilePatterns([]string{
	`\blogin\b`, `\bsign in\b`, `\bverify (?:your )?account\b`,
	`\benter (?:your )?(?:details|credentials|password)\b`,
	`\bconfirm (?:bank|account|details)\b`, `\breactivate\b`,
})

var financialTerms = compilePatterns([]string{
	`\bpayment\b`, `\binvoice\b`, `\brefund\b`, `\btransfer\b`, `\bbilling\b`,
})

var supportTerms = compilePatterns([]string{
	`\bsupport\b`, `\bhelp\b`, `\bassist\b`, `\bissue\b`, `\bticket\b`,
})

var schedulingTerms = compilePatterns([]string{
	`\bmeeting\b`, `\bappointment\b`, `\bcalendar\b`, `\breschedule\b`,
})

var attachmentTerms = compilePatterns([]string{
	`\bsee attached\b`, `\bopen the attachment\b`, `\battached file\b`,
	`\battachment\b`, `\battached document\b`, `\battached payroll\b`,
})

var (
	urlRx          = regexp.MustCompile(`(?i)https?://[^\s)>\]]+`)
	friendlyRx     = regexp.MustCompile(`(?i)\bthank(s| you)\b`)
	professionalRx = regexp.MustCompile(`(?i)\bregards\b|\bbest\b|\bsincerely\b`)
)

func compilePatterns(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

// countMatches returns the number of distinct patterns that match the
// text, not the number of occurrences. Intensity grows with pattern
// diversity, so repeating one phrase does not inflate the count.
func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, rx := range patterns {
		if rx.MatchString(text) {
			n++
		}
	}
	return n
}

// AnalyzeContent scores an email's subject and body for phishing
// indicators. It is a pure function: identical input always produces
// identical output. Missing text is a valid input and yields the
// all-zero safe result, never an error.
func AnalyzeContent(subject, body string) *ContentAnalysis {
	text := subject + " " + body

	signals := map[SignalCategory]int{
		SignalCredentialLanguage:  countMatches(credentialIntentTerms, text) + countMatches(suspiciousTerms, text),
		SignalUrgencyLanguage:     countMatches(urgencyTerms, text),
		SignalManipulativeTone:    countMatches(manipulativeToneTerms, text),
		SignalSuspiciousLink:      len(urlRx.FindAllString(text, -1)),
		SignalAttachmentReference: countMatches(attachmentTerms, text),
	}

	scores := computeScores(signals)

	var total float64
	for _, s := range scores {
		total += s
	}
	totalRisk := clamp01(round3(total))

	classification := ClassSafe
	if totalRisk >= phishingThreshold {
		classification = ClassPhishing
	}

	return &ContentAnalysis{
		Confidence:     computeConfidence(totalRisk, classification),
		Classification: classification,
		TotalRisk:      totalRisk,
		Intent:         inferIntent(body),
		Tone:           classifyTone(body),
		Urgency:        classifyUrgency(body),
		Reasoning:      reasoningTrace(body, signals),
		Signals:        signals,
		Scores:         scores,
	}
}

// computeScores applies the intensity curve: one match yields 60% of
// the category weight, two 90%, three or more the full weight. The
// credential+link combination boosts the effective credential count to
// at least 2 so a credential-harvesting link can never score low; the
// raw counts in the signal vector stay untouched.
func computeScores(signals map[SignalCategory]int) map[SignalCategory]float64 {
	effective := func(cat SignalCategory) int {
		n := signals[cat]
		if cat == SignalCredentialLanguage && n > 0 && signals[SignalSuspiciousLink] > 0 && n < 2 {
			return 2
		}
		return n
	}

	scores := make(map[SignalCategory]float64, len(signals))
	for cat := range signals {
		n := effective(cat)
		if n == 0 {
			scores[cat] = 0
			continue
		}
		impact := math.Min(1.0, 0.6+0.3*float64(n-1))
		scores[cat] = round3(categoryWeights[cat] * impact)
	}
	return scores
}

// computeConfidence maps total risk to confidence with two asymmetric
// curves anchored at the threshold. The 0.8 exponent front-loads
// confidence growth near the threshold.
func computeConfidence(totalRisk float64, classification Classification) float64 {
	if classification == ClassPhishing {
		dist := (totalRisk - phishingThreshold) / (1.0 - phishingThreshold)
		return clamp01(round3(0.60 + 0.39*math.Pow(dist, 0.8)))
	}
	dist := (phishingThreshold - totalRisk) / phishingThreshold
	return clamp01(round3(0.55 + 0.44*math.Pow(dist, 0.8)))
}

func inferIntent(body string) string {
	switch {
	case countMatches(credentialIntentTerms, body) > 0:
		return "credential_request"
	case countMatches(financialTerms, body) > 0:
		return "financial_action"
	case countMatches(supportTerms, body) > 0:
		return "support_request"
	case countMatches(schedulingTerms, body) > 0:
		return "scheduling"
	default:
		return "informational"
	}
}

func classifyTone(body string) string {
	switch {
	case countMatches(manipulativeToneTerms, body) > 0:
		return "manipulative"
	case friendlyRx.MatchString(body) || strings.Contains(strings.ToLower(body), "appreciate"):
		return "friendly"
	case professionalRx.MatchString(body):
		return "professional"
	default:
		return "neutral"
	}
}

func classifyUrgency(body string) string {
	if countMatches(urgencyTerms, body) > 0 {
		return "urgent"
	}
	return "routine"
}

// reasoningTrace produces the ordered natural-language justification
// list. Purely explanatory; it never feeds back into the score.
func reasoningTrace(body string, signals map[SignalCategory]int) []string {
	var trace []string

	cred := signals[SignalCredentialLanguage]
	links := signals[SignalSuspiciousLink]
	urg := signals[SignalUrgencyLanguage]

	if cred > 0 && links > 0 {
		trace = append(trace, "CRITICAL: Detected credential request combined with external links - highly indicative of phishing.")
	}
	if cred > 0 && links == 0 {
		trace = append(trace, "Detected credential request language without links (potential reply-chain phishing).")
	}
	if urg > 0 {
		trace = append(trace, fmt.Sprintf("Detected urgency terminology (%d instance(s)).", urg))
	}
	if links > 2 {
		trace = append(trace, fmt.Sprintf("High density of links detected (%d), common in mass-scatter phishing.", links))
	} else if links > 0 {
		trace = append(trace, "Contains external links.")
	}
	if countMatches(financialTerms, body) > 0 {
		trace = append(trace, "Financial terminology detected.")
	}
	if len(trace) == 0 {
		trace = append(trace, "No significant phishing patterns detected.")
	}
	return trace
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func clamp01(x float64) float64 {
	return math.Max(0.0, math.Min(1.0, x))
}
