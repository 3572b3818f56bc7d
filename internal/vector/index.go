package vector

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rcapilot/rcapilot/internal/database"
)

// Neighbor is one nearest-neighbor hit from the similarity index
type Neighbor struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Index answers nearest-neighbor queries over historical RCA embeddings
type Index interface {
	Upsert(id string, vec []float64) error
	NearestNeighbors(vec []float64, k int) ([]Neighbor, error)
}

// StoreIndex keeps vectors in the primary database and scans them with
// cosine similarity. Historical RCA counts are small (thousands, not
// millions), so a brute-force scan is adequate and avoids a separate vector
// database deployment.
type StoreIndex struct {
	db *gorm.DB
}

// NewStoreIndex creates a database-backed similarity index
func NewStoreIndex(db *gorm.DB) *StoreIndex {
	return &StoreIndex{db: db}
}

// Upsert stores or replaces the vector for the given RCA id
func (s *StoreIndex) Upsert(id string, vec []float64) error {
	if len(vec) == 0 {
		return fmt.Errorf("refusing to index empty vector for %s", id)
	}
	encoded, err := json.Marshal(vec)
	if err != nil {
		return err
	}

	row := database.RCAEmbedding{
		RCAUUID: id,
		Vector:  string(encoded),
		Dim:     len(vec),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rca_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"vector", "dim"}),
	}).Create(&row).Error
}

// NearestNeighbors returns up to k stored vectors ordered by descending
// cosine similarity to the query. Restartable: no cursor state is kept.
func (s *StoreIndex) NearestNeighbors(vec []float64, k int) ([]Neighbor, error) {
	if k <= 0 || len(vec) == 0 {
		return nil, nil
	}

	var rows []database.RCAEmbedding
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}

	neighbors := make([]Neighbor, 0, len(rows))
	for _, row := range rows {
		if row.Dim != len(vec) {
			continue
		}
		var stored []float64
		if err := json.Unmarshal([]byte(row.Vector), &stored); err != nil {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			ID:         row.RCAUUID,
			Similarity: cosine(vec, stored),
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func cosine(a, b []float64) float64 {
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
