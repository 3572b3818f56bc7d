package rca

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/llm"
	"github.com/rcapilot/rcapilot/internal/vector"
)

// Retriever finds the historical RCAs most similar to a correlation group.
// Embedding or index failures degrade to "no context": RCA generation never
// fails solely for lack of historical context.
type Retriever struct {
	db       *gorm.DB
	embedder vector.Embedder
	index    vector.Index
	topK     int
	floor    float64
}

// NewRetriever creates a historical-context retriever. floor is the minimum
// similarity below which neighbors are discarded.
func NewRetriever(db *gorm.DB, embedder vector.Embedder, index vector.Index, topK int, floor float64) *Retriever {
	return &Retriever{
		db:       db,
		embedder: embedder,
		index:    index,
		topK:     topK,
		floor:    floor,
	}
}

// Retrieve returns up to topK historical cases ordered by descending
// similarity, all at or above the similarity floor. Restartable: no cursor
// state is held between calls. A nil/empty result with nil error means "no
// context available".
func (r *Retriever) Retrieve(ctx context.Context, alerts []database.Alert) ([]llm.HistoricalCase, error) {
	if len(alerts) == 0 {
		return nil, nil
	}

	embedding, err := r.GroupEmbedding(ctx, alerts)
	if err != nil {
		// Degraded mode: proceed without historical context
		log.Printf("Historical context unavailable (embedding failed): %v", err)
		return nil, nil
	}

	neighbors, err := r.index.NearestNeighbors(embedding, r.topK)
	if err != nil {
		log.Printf("Historical context unavailable (index query failed): %v", err)
		return nil, nil
	}

	cases := make([]llm.HistoricalCase, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Similarity < r.floor {
			continue // neighbors are ordered, but keep the filter simple
		}
		doc, err := r.historicalDocument(n.ID)
		if err != nil {
			log.Printf("Skipping historical RCA %s: %v", n.ID, err)
			continue
		}
		cases = append(cases, llm.HistoricalCase{
			RCAUUID:    n.ID,
			Similarity: n.Similarity,
			Document:   doc,
		})
	}
	return cases, nil
}

// GroupEmbedding computes the representative embedding of a group by
// averaging the embeddings of its member alert patterns.
func (r *Retriever) GroupEmbedding(ctx context.Context, alerts []database.Alert) ([]float64, error) {
	var sum []float64
	embedded := 0

	for _, a := range alerts {
		vec, err := r.embedder.Embed(ctx, AlertPattern(a))
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if len(vec) != len(sum) {
			return nil, fmt.Errorf("embedding dimension mismatch: %d != %d", len(vec), len(sum))
		}
		for i, v := range vec {
			sum[i] += v
		}
		embedded++
	}

	if embedded == 0 {
		return nil, fmt.Errorf("no alerts to embed")
	}
	for i := range sum {
		sum[i] /= float64(embedded)
	}
	return sum, nil
}

// AlertPattern renders the searchable pattern text for one alert
func AlertPattern(a database.Alert) string {
	return fmt.Sprintf("%s %s %s %s", a.Source, a.AlertType, a.Severity, a.Title)
}

// historicalDocument renders a stored RCA as context for the model
func (r *Retriever) historicalDocument(rcaUUID string) (string, error) {
	rca, err := database.GetRCAByUUID(r.db, rcaUUID)
	if err != nil {
		return "", err
	}

	parts := []string{
		"Root Cause: " + rca.RootCause,
		"Evidence: " + rca.Evidence,
		"Actions: " + rca.RecommendedActions,
	}
	if rca.Summary != "" {
		parts = append([]string{"Summary: " + rca.Summary}, parts...)
	}
	return strings.Join(parts, "\n"), nil
}
