// Package correlation groups related alerts into time-bounded clusters using
// a weighted-feature similarity scorer.
package correlation

import (
	"math"

	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/fingerprint"
)

// Weights controls the contribution of each feature to the pairwise score.
// The weights should sum to 1.0 so scores stay in [0,1].
type Weights struct {
	Source   float64 `yaml:"source"`
	Severity float64 `yaml:"severity"`
	Time     float64 `yaml:"time"`
	Text     float64 `yaml:"text"`
}

// DefaultWeights returns the stock feature weighting
func DefaultWeights() Weights {
	return Weights{
		Source:   0.20,
		Severity: 0.10,
		Time:     0.30,
		Text:     0.40,
	}
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.Source + w.Severity + w.Time + w.Text
}

// TextSimilarityFunc computes similarity in [0,1] between two free-text
// blobs. The default is token overlap; an embedding-cosine implementation can
// be plugged in instead.
type TextSimilarityFunc func(a, b string) float64

// Scorer computes a symmetric pairwise relatedness score between two alerts
type Scorer struct {
	weights Weights
	// timeHorizon is the elapsed-seconds span past which the time component
	// is exactly zero
	timeHorizonSeconds float64
	// allowCrossType disables the hard exclusion between alert types
	allowCrossType bool
	textSim        TextSimilarityFunc
}

// NewScorer creates a scorer with the given weights and time horizon in
// seconds. A nil textSim falls back to token overlap.
func NewScorer(weights Weights, timeHorizonSeconds float64, allowCrossType bool, textSim TextSimilarityFunc) *Scorer {
	if textSim == nil {
		textSim = TokenOverlapSimilarity
	}
	return &Scorer{
		weights:            weights,
		timeHorizonSeconds: timeHorizonSeconds,
		allowCrossType:     allowCrossType,
		textSim:            textSim,
	}
}

// Score returns the pairwise relatedness of two alerts in [0,1]. Symmetric:
// Score(a,b) == Score(b,a). Alerts of different types score 0 unless
// cross-type correlation is enabled.
func (s *Scorer) Score(a, b *database.Alert) float64 {
	if !s.allowCrossType && a.AlertType != b.AlertType {
		return 0
	}

	var score float64

	if a.Source == b.Source {
		score += s.weights.Source
	}

	score += s.weights.Severity * severityProximity(a.Severity, b.Severity)
	score += s.weights.Time * s.timeProximity(a, b)

	textA := a.Title + " " + a.Message
	textB := b.Title + " " + b.Message
	score += s.weights.Text * clamp01(s.textSim(textA, textB))

	return clamp01(score)
}

// severityProximity inverts and normalizes the distance on the ordered
// severity scale: equal severities score 1, opposite ends score 0.
func severityProximity(a, b database.AlertSeverity) float64 {
	ra, rb := a.Rank(), b.Rank()
	if ra < 0 || rb < 0 {
		return 0
	}
	maxDist := float64(database.AlertSeverityCritical.Rank())
	dist := math.Abs(float64(ra - rb))
	return 1 - dist/maxDist
}

// timeProximity decays exponentially with the elapsed seconds between the
// two alerts and is zero past the horizon.
func (s *Scorer) timeProximity(a, b *database.Alert) float64 {
	elapsed := math.Abs(a.ReceivedAt.Sub(b.ReceivedAt).Seconds())
	if s.timeHorizonSeconds <= 0 || elapsed > s.timeHorizonSeconds {
		return 0
	}
	// decay constant chosen so proximity falls to ~5% at the horizon
	return math.Exp(-3 * elapsed / s.timeHorizonSeconds)
}

// TokenOverlapSimilarity is the default text similarity: Jaccard overlap of
// normalized tokens.
func TokenOverlapSimilarity(a, b string) float64 {
	ta := fingerprint.Tokens(a)
	tb := fingerprint.Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// CosineSimilarity computes cosine similarity between two vectors, used when
// an embedding-based text scorer is plugged in.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
