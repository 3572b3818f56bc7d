package correlation

import (
	"math"
	"testing"
	"time"

	"github.com/rcapilot/rcapilot/internal/database"
)

func testAlert(source string, severity database.AlertSeverity, title string, at time.Time) *database.Alert {
	return &database.Alert{
		Source:     source,
		Severity:   severity,
		Title:      title,
		AlertType:  database.AlertTypeMetrics,
		ReceivedAt: at,
	}
}

func TestScoreSymmetric(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 300, false, nil)
	now := time.Now()

	a := testAlert("prometheus", database.AlertSeverityHigh, "High CPU usage", now)
	b := testAlert("datadog", database.AlertSeverityLow, "Disk latency spike", now.Add(42*time.Second))

	if got, want := scorer.Score(a, b), scorer.Score(b, a); got != want {
		t.Errorf("Score not symmetric: %f vs %f", got, want)
	}
}

func TestScoreIdenticalAlerts(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 300, false, nil)
	now := time.Now()
	a := testAlert("prometheus", database.AlertSeverityHigh, "High CPU usage", now)
	b := testAlert("prometheus", database.AlertSeverityHigh, "High CPU usage", now)

	if got := scorer.Score(a, b); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Score(identical) = %f, want 1.0", got)
	}
}

func TestScoreCrossTypeExclusion(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 300, false, nil)
	now := time.Now()
	a := testAlert("prometheus", database.AlertSeverityHigh, "High CPU usage", now)
	b := testAlert("prometheus", database.AlertSeverityHigh, "High CPU usage", now)
	b.AlertType = database.AlertTypeLogs

	if got := scorer.Score(a, b); got != 0 {
		t.Errorf("cross-type score = %f, want 0", got)
	}

	permissive := NewScorer(DefaultWeights(), 300, true, nil)
	if got := permissive.Score(a, b); got == 0 {
		t.Error("cross-type score should be nonzero when cross-type grouping is enabled")
	}
}

func TestScoreRelatedAlertsAboveThreshold(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 300, false, nil)
	now := time.Now()

	a := testAlert("prometheus", database.AlertSeverityHigh, "High CPU usage", now)
	b := testAlert("prometheus", database.AlertSeverityHigh, "High CPU", now.Add(10*time.Second))

	// source 0.20 + severity 0.10 + time 0.30*e^-0.1 + text 0.40*(2/3)
	want := 0.20 + 0.10 + 0.30*math.Exp(-0.1) + 0.40*(2.0/3.0)
	if got := scorer.Score(a, b); math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %f, want %f", got, want)
	}
	if got := scorer.Score(a, b); got < 0.7 {
		t.Errorf("related alerts scored %f, expected at or above 0.7", got)
	}
}

func TestScoreUnrelatedAlertsBelowThreshold(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), 300, false, nil)
	now := time.Now()

	a := testAlert("prometheus", database.AlertSeverityHigh, "High CPU usage", now)
	b := testAlert("datadog", database.AlertSeverityLow, "Disk latency spike", now.Add(20*time.Second))

	if got := scorer.Score(a, b); got >= 0.7 {
		t.Errorf("unrelated alerts scored %f, expected below 0.7", got)
	}
}

func TestTimeProximityZeroPastHorizon(t *testing.T) {
	scorer := NewScorer(Weights{Time: 1.0}, 300, false, nil)
	now := time.Now()

	a := testAlert("prometheus", database.AlertSeverityHigh, "x", now)
	b := testAlert("datadog", database.AlertSeverityHigh, "y", now.Add(301*time.Second))
	// all weight on time, so the score is exactly the time component
	if got := scorer.Score(a, b); got != 0 {
		t.Errorf("time component past horizon = %f, want 0", got)
	}

	c := testAlert("datadog", database.AlertSeverityHigh, "y", now.Add(300*time.Second))
	if got := scorer.Score(a, c); got <= 0 {
		t.Errorf("time component at horizon = %f, want > 0", got)
	}
}

func TestSeverityProximity(t *testing.T) {
	cases := []struct {
		a, b database.AlertSeverity
		want float64
	}{
		{database.AlertSeverityHigh, database.AlertSeverityHigh, 1.0},
		{database.AlertSeverityLow, database.AlertSeverityCritical, 0.0},
		{database.AlertSeverityHigh, database.AlertSeverityLow, 1.0 / 3.0},
		{database.AlertSeverityMedium, database.AlertSeverityHigh, 2.0 / 3.0},
	}
	for _, tc := range cases {
		if got := severityProximity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("severityProximity(%s, %s) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestTokenOverlapSimilarity(t *testing.T) {
	if got := TokenOverlapSimilarity("high cpu usage", "high cpu"); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("overlap = %f, want 2/3", got)
	}
	if got := TokenOverlapSimilarity("completely different", "words here"); got != 0 {
		t.Errorf("disjoint overlap = %f, want 0", got)
	}
	if got := TokenOverlapSimilarity("", "anything"); got != 0 {
		t.Errorf("empty text overlap = %f, want 0", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("cosine(parallel) = %f, want 1", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("cosine(orthogonal) = %f, want 0", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0, 0}); got != 0 {
		t.Errorf("cosine(dim mismatch) = %f, want 0", got)
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	if got := DefaultWeights().Sum(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("DefaultWeights().Sum() = %f, want 1.0", got)
	}
}
