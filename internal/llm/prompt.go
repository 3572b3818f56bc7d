package llm

import (
	"fmt"
	"strings"

	"github.com/rcapilot/rcapilot/internal/database"
)

// HistoricalCase is a retrieved historical RCA offered to the model as
// context
type HistoricalCase struct {
	RCAUUID    string  `json:"rca_uuid"`
	Similarity float64 `json:"similarity"`
	Document   string  `json:"document"`
}

// RCASystemPrompt instructs the model on its role and output contract
func RCASystemPrompt() string {
	return `You are an expert IT operations analyst specializing in root cause analysis. Analyze correlated alerts and produce a structured root-cause analysis.

## Output Format

Return ONLY valid JSON with this exact structure:
{
  "title": "One-line incident title",
  "summary": "Executive summary of the incident",
  "root_cause": "Detailed explanation of the most likely root cause",
  "probable_causes": ["most likely cause", "second most likely cause"],
  "evidence": "Observations from the alerts supporting the analysis",
  "recommended_actions": ["first remediation step", "second remediation step"]
}

Rank probable_causes from most to least likely. Focus on the underlying cause, not symptoms. Do not include any text outside the JSON block.`
}

// StrictRCASystemPrompt is the reformulated prompt used after a parse
// failure. It repeats the schema and forbids any deviation.
func StrictRCASystemPrompt() string {
	return RCASystemPrompt() + `

IMPORTANT: Your previous response could not be parsed. Respond with a single JSON object and nothing else. Every field in the schema is mandatory: title, summary, root_cause, probable_causes (non-empty array), evidence, recommended_actions (non-empty array). No markdown fences, no commentary.`
}

// BuildRCAUserPrompt assembles the fixed prompt template from group member
// alerts and retrieved historical cases. The alert section is bounded by
// charBudget; when exceeded, the oldest alerts are dropped first and an
// omission marker is inserted.
func BuildRCAUserPrompt(alerts []database.Alert, historical []HistoricalCase, charBudget int) string {
	blocks := make([]string, len(alerts))
	for i, a := range alerts {
		blocks[i] = formatAlertBlock(i+1, a)
	}

	omitted := 0
	if charBudget > 0 {
		total := 0
		for _, b := range blocks {
			total += len(b)
		}
		for total > charBudget && omitted < len(blocks)-1 {
			total -= len(blocks[omitted])
			omitted++
		}
	}

	var sb strings.Builder
	sb.WriteString("Analyze these correlated alerts and determine the root cause.\n\nCORRELATED ALERTS:\n")
	if omitted > 0 {
		fmt.Fprintf(&sb, "[%d earlier alert(s) omitted for brevity]\n", omitted)
	}
	for _, b := range blocks[omitted:] {
		sb.WriteString(b)
	}

	if len(historical) > 0 {
		sb.WriteString("\nHISTORICAL SIMILAR CASES:\n")
		for i, c := range historical {
			fmt.Fprintf(&sb, "Case %d (similarity %.2f):\n%s\n\n", i+1, c.Similarity, c.Document)
		}
	}

	sb.WriteString("\nReturn your analysis as JSON.")
	return sb.String()
}

func formatAlertBlock(n int, a database.Alert) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nAlert %d:\n", n)
	fmt.Fprintf(&sb, "- Source: %s\n", a.Source)
	fmt.Fprintf(&sb, "- Severity: %s\n", a.Severity)
	fmt.Fprintf(&sb, "- Type: %s\n", a.AlertType)
	fmt.Fprintf(&sb, "- Title: %s\n", a.Title)
	if a.Message != "" {
		fmt.Fprintf(&sb, "- Message: %s\n", a.Message)
	}
	fmt.Fprintf(&sb, "- First seen: %s\n", a.ReceivedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	if a.OccurrenceCount > 1 {
		fmt.Fprintf(&sb, "- Occurrences: %d (last %s)\n", a.OccurrenceCount, a.LastSeenAt.UTC().Format("15:04:05 UTC"))
	}
	return sb.String()
}

// SummarySystemPrompt instructs the model to compress an analysis into an
// executive summary
func SummarySystemPrompt() string {
	return "You are an expert IT operations analyst. Respond with plain text only."
}

// BuildSummaryUserPrompt asks for a 2-3 sentence management summary of an
// already-generated analysis
func BuildSummaryUserPrompt(n *Narrative) string {
	return fmt.Sprintf(`Provide a concise executive summary (2-3 sentences) of this root-cause analysis, suitable for management reporting:

Root Cause: %s
Evidence: %s
Recommended Actions: %s`,
		n.RootCause, n.Evidence, strings.Join(n.RecommendedActions, "; "))
}
