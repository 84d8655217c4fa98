package advisor

import (
	"fmt"
	"strings"

	"github.com/mailshield/mailshield/internal/core"
)

const promptFormat = `You are an email security policy assistant. An IT team has reviewed
messages from the sender domain below and recorded the following verdict history,
newest first. Based on this history, suggest a filtering policy for the domain.

Respond with a JSON object containing:
- policy: string, one of "allowlist", "blocklist", "monitor"
- rationale: string (brief justification grounded in the history)

Domain: %s
Verdicts (%d allow, %d block):
%s

Respond only with the JSON object and nothing else.`

// buildPrompt renders the verdict history into the advisor prompt.
func buildPrompt(domain string, history []core.VerdictRecord) string {
	allows, blocks := 0, 0
	var lines []string
	for _, rec := range history {
		switch rec.Verdict {
		case "allow":
			allows++
		case "block":
			blocks++
		}
		line := fmt.Sprintf("- %s: %s", rec.CreatedAt.Format("2006-01-02"), rec.Verdict)
		if rec.Actor != "" {
			line += " (by " + rec.Actor + ")"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = []string{"- (no recorded verdicts)"}
	}
	return fmt.Sprintf(promptFormat, domain, allows, blocks, strings.Join(lines, "\n"))
}

// policySuggestion is the structured response expected from the LLM.
type policySuggestion struct {
	Policy    string `json:"policy"`
	Rationale string `json:"rationale"`
}

// formatSuggestion flattens the parsed response for callers.
func formatSuggestion(s policySuggestion) string {
	if s.Rationale == "" {
		return s.Policy
	}
	return fmt.Sprintf("%s: %s", s.Policy, s.Rationale)
}

// extractJSON pulls the outermost JSON object out of a model response
// that may wrap it in prose or code fences.
func extractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
