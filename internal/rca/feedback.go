package rca

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/rcapilot/rcapilot/internal/database"
)

// neutralAdjustment is the multiplier used when a bucket has no feedback yet
const neutralAdjustment = 1.0

// Aggregator folds user accuracy ratings into running per-(source,
// alert_type) statistics and supplies the confidence adjustment multiplier
// consumed during RCA generation. It is the sole writer of the accuracy
// stats; recording never blocks generation.
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator creates a feedback aggregator
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Record stores one feedback entry and folds its rating into the accuracy
// buckets of every (source, alert_type) pair in the rated RCA's group.
// Submissions are idempotent per (rca, submitter): a re-rating replaces the
// previous rating in the running mean instead of double counting. Anonymous
// feedback is append-only.
func (a *Aggregator) Record(rcaUUID, submitter string, rating int, comment string) (*database.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("accuracy rating must be between 1 and 5, got %d", rating)
	}

	rca, err := database.GetRCAByUUID(a.db, rcaUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRCANotFound, rcaUUID)
	}
	if err != nil {
		return nil, err
	}

	alerts, err := database.AlertsByGroup(a.db, rca.CorrelationGroupID)
	if err != nil {
		return nil, err
	}
	buckets := distinctBuckets(alerts)

	var feedback *database.Feedback
	err = a.db.Transaction(func(tx *gorm.DB) error {
		previousRating := 0
		if submitter != "" {
			var existing database.Feedback
			err := tx.Where("rca_id = ? AND submitter = ?", rca.ID, submitter).First(&existing).Error
			if err == nil {
				previousRating = existing.AccuracyRating
				existing.AccuracyRating = rating
				existing.Comment = comment
				existing.SubmittedAt = time.Now()
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				feedback = &existing
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if feedback == nil {
			feedback = &database.Feedback{
				RCAID:          rca.ID,
				Submitter:      submitter,
				AccuracyRating: rating,
				Comment:        comment,
				SubmittedAt:    time.Now(),
			}
			if err := tx.Create(feedback).Error; err != nil {
				return err
			}
		}

		for _, b := range buckets {
			if err := a.fold(tx, b.source, b.alertType, rating, previousRating); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Feedback recorded for RCA %s (rating %d, %d bucket(s))", rcaUUID, rating, len(buckets))
	return feedback, nil
}

// Adjustment returns the confidence multiplier for a bucket. With no
// statistics the multiplier is neutral (1.0); otherwise the running rating
// mean in [1,5] maps linearly into [0.88, 1.2]. Read-only and never blocks.
func (a *Aggregator) Adjustment(source string, alertType database.AlertType) float64 {
	var stat database.SourceAccuracyStat
	err := a.db.Where("source = ? AND alert_type = ?", source, alertType).First(&stat).Error
	if err != nil || stat.RatingCount == 0 {
		return neutralAdjustment
	}
	return 0.8 + stat.RatingMean/5.0*0.4
}

type bucket struct {
	source    string
	alertType database.AlertType
}

func distinctBuckets(alerts []database.Alert) []bucket {
	seen := make(map[bucket]struct{})
	var out []bucket
	for _, a := range alerts {
		b := bucket{source: a.Source, alertType: a.AlertType}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// fold updates one bucket's incremental mean. previousRating > 0 means this
// is a re-rating and the old value is replaced rather than appended.
func (a *Aggregator) fold(tx *gorm.DB, source string, alertType database.AlertType, rating, previousRating int) error {
	var stat database.SourceAccuracyStat
	err := tx.Where("source = ? AND alert_type = ?", source, alertType).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stat = database.SourceAccuracyStat{
			Source:      source,
			AlertType:   alertType,
			RatingCount: 1,
			RatingMean:  float64(rating),
		}
		return tx.Create(&stat).Error
	}
	if err != nil {
		return err
	}

	if previousRating > 0 && stat.RatingCount > 0 {
		// Replace the submitter's old rating in the mean
		stat.RatingMean += (float64(rating) - float64(previousRating)) / float64(stat.RatingCount)
	} else {
		stat.RatingCount++
		stat.RatingMean += (float64(rating) - stat.RatingMean) / float64(stat.RatingCount)
	}

	return tx.Model(&stat).Updates(map[string]interface{}{
		"rating_count": stat.RatingCount,
		"rating_mean":  stat.RatingMean,
	}).Error
}
