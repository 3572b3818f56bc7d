package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingSections indicates the model response parsed as JSON but lacks
// required narrative sections
var ErrMissingSections = errors.New("narrative is missing required sections")

// requiredSections are the narrative parts an RCA cannot ship without
var requiredSections = []string{"summary", "probable_causes", "evidence", "recommended_actions"}

// Narrative is the fixed structure an RCA response must parse into
type Narrative struct {
	Title              string   `json:"title"`
	Summary            string   `json:"summary"`
	RootCause          string   `json:"root_cause"`
	ProbableCauses     []string `json:"probable_causes"`
	Evidence           string   `json:"evidence"`
	RecommendedActions []string `json:"recommended_actions"`
}

// ParseNarrative extracts and validates the structured narrative from a raw
// model response. The JSON block is located between the first '{' and the
// last '}' so surrounding prose does not break parsing.
func ParseNarrative(raw string) (*Narrative, error) {
	cleaned := strings.TrimSpace(raw)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var n Narrative
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &n); err != nil {
		return nil, fmt.Errorf("failed to decode narrative JSON: %w", err)
	}

	if missing := n.MissingSections(); len(missing) > 0 {
		return &n, fmt.Errorf("%w: %s", ErrMissingSections, strings.Join(missing, ", "))
	}
	return &n, nil
}

// MissingSections lists required sections absent from the narrative
func (n *Narrative) MissingSections() []string {
	var missing []string
	if strings.TrimSpace(n.Summary) == "" {
		missing = append(missing, "summary")
	}
	if len(n.ProbableCauses) == 0 {
		missing = append(missing, "probable_causes")
	}
	if strings.TrimSpace(n.Evidence) == "" {
		missing = append(missing, "evidence")
	}
	if len(n.RecommendedActions) == 0 {
		missing = append(missing, "recommended_actions")
	}
	return missing
}

// Completeness returns the fraction of required sections present, used as a
// confidence input
func (n *Narrative) Completeness() float64 {
	missing := len(n.MissingSections())
	total := len(requiredSections)
	return float64(total-missing) / float64(total)
}
