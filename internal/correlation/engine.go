package correlation

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/fingerprint"
)

// ErrGroupNotFound is returned for operations on unknown groups
var ErrGroupNotFound = errors.New("correlation group not found")

// ErrGroupClosed is returned when an operation requires an OPEN group
var ErrGroupClosed = errors.New("correlation group is closed")

// ErrGroupOpen is returned when an operation requires a CLOSED group
var ErrGroupOpen = errors.New("correlation group is still open")

// Config holds the engine's correlation knobs
type Config struct {
	// Threshold is the minimum score for an alert to join an existing group
	Threshold float64
	// Window bounds both group admission and sweep closure
	Window time.Duration
	// DedupWindow bounds exact-duplicate collapsing
	DedupWindow time.Duration
}

// SubmitResult describes the admission decision for one alert
type SubmitResult struct {
	Alert   *database.Alert
	Group   *database.CorrelationGroup
	Deduped bool
	// NewGroup is true when the alert opened a fresh group
	NewGroup bool
	// Score is the admission score against the chosen group (0 for new groups)
	Score float64
}

// Engine maintains the rolling set of open correlation groups and decides,
// for each incoming alert, whether it collapses into an existing alert,
// joins an open group, or opens a new one.
//
// The admission decision (dedup, scoring, append/open) is the sole shared
// mutation point and is serialized by a single writer lock so two concurrent
// alerts can never both open a group for the same cluster, and no alert is
// admitted after a group transitions to CLOSED.
type Engine struct {
	db     *gorm.DB
	scorer *Scorer
	cfg    Config

	mu sync.Mutex

	// now is swappable for tests
	now func() time.Time
}

// NewEngine creates a correlation engine
func NewEngine(db *gorm.DB, scorer *Scorer, cfg Config) *Engine {
	return &Engine{
		db:     db,
		scorer: scorer,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Submit runs the admission decision for one alert. The alert's Source,
// Severity, Title, Message and AlertType must already be validated; Submit
// fills in UUID, Fingerprint and timestamps.
func (e *Engine) Submit(alert *database.Alert) (*SubmitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if alert.ReceivedAt.IsZero() {
		alert.ReceivedAt = now
	}
	alert.LastSeenAt = alert.ReceivedAt
	if alert.UUID == "" {
		alert.UUID = uuid.New().String()
	}
	if alert.Status == "" {
		alert.Status = database.AlertStatusOpen
	}
	alert.Fingerprint = fingerprint.Compute(
		alert.Source, string(alert.AlertType), alert.Title, alert.Message)

	var result *SubmitResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		// Step 1: exact-duplicate suppression within the dedup window
		dup, group, err := e.findDuplicate(tx, alert)
		if err != nil {
			return err
		}
		if dup != nil {
			if err := e.mergeOccurrence(tx, dup, group, alert.ReceivedAt); err != nil {
				return err
			}
			result = &SubmitResult{Alert: dup, Group: group, Deduped: true}
			return nil
		}

		// Step 2: score against the representative of every open group
		// inside the time window
		best, bestScore, err := e.bestGroup(tx, alert)
		if err != nil {
			return err
		}
		if best != nil {
			if err := e.appendToGroup(tx, alert, best, bestScore); err != nil {
				return err
			}
			result = &SubmitResult{Alert: alert, Group: best, Score: bestScore}
			return nil
		}

		// Step 3: no group qualifies, open a new one
		group, err = e.openGroup(tx, alert)
		if err != nil {
			return err
		}
		result = &SubmitResult{Alert: alert, Group: group, NewGroup: true}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("alert admission failed: %w", err)
	}

	return result, nil
}

// findDuplicate looks for an alert with the same fingerprint in any OPEN
// group, last seen within the dedup window.
func (e *Engine) findDuplicate(tx *gorm.DB, alert *database.Alert) (*database.Alert, *database.CorrelationGroup, error) {
	cutoff := alert.ReceivedAt.Add(-e.cfg.DedupWindow)

	var dup database.Alert
	err := tx.Where(
		"fingerprint = ? AND last_seen_at >= ? AND correlation_group_id IN (?)",
		alert.Fingerprint, cutoff,
		tx.Model(&database.CorrelationGroup{}).Select("id").Where("status = ?", database.GroupStatusOpen),
	).Order("last_seen_at DESC").First(&dup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var group database.CorrelationGroup
	if err := tx.First(&group, *dup.CorrelationGroupID).Error; err != nil {
		return nil, nil, err
	}
	return &dup, &group, nil
}

// mergeOccurrence folds a duplicate submission into the stored alert
func (e *Engine) mergeOccurrence(tx *gorm.DB, dup *database.Alert, group *database.CorrelationGroup, seenAt time.Time) error {
	dup.OccurrenceCount++
	dup.LastSeenAt = seenAt
	if err := tx.Model(dup).Updates(map[string]interface{}{
		"occurrence_count": dup.OccurrenceCount,
		"last_seen_at":     dup.LastSeenAt,
	}).Error; err != nil {
		return err
	}

	group.LastMemberAt = seenAt
	return tx.Model(group).Update("last_member_at", seenAt).Error
}

// bestGroup scores the alert against the most recent member of every OPEN
// group updated within the window and returns the highest-scoring group at
// or above the threshold. Candidates are visited most-recently-updated
// first, and only a strictly higher score displaces the current best, so
// ties resolve to the most recently updated group.
func (e *Engine) bestGroup(tx *gorm.DB, alert *database.Alert) (*database.CorrelationGroup, float64, error) {
	candidates, err := database.OpenGroupsSince(tx, alert.ReceivedAt.Add(-e.cfg.Window))
	if err != nil {
		return nil, 0, err
	}

	var (
		best      *database.CorrelationGroup
		bestScore float64
	)
	for i := range candidates {
		rep, err := e.representative(tx, candidates[i].ID)
		if err != nil {
			return nil, 0, err
		}
		if rep == nil {
			continue
		}
		score := e.scorer.Score(alert, rep)
		if score >= e.cfg.Threshold && score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	return best, bestScore, nil
}

// representative returns the most recent member alert of a group
func (e *Engine) representative(tx *gorm.DB, groupID uint) (*database.Alert, error) {
	var rep database.Alert
	err := tx.Where("correlation_group_id = ?", groupID).Order("id DESC").First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (e *Engine) appendToGroup(tx *gorm.DB, alert *database.Alert, group *database.CorrelationGroup, score float64) error {
	alert.CorrelationGroupID = &group.ID
	alert.CorrelationScore = score
	if err := tx.Create(alert).Error; err != nil {
		return err
	}

	group.AlertCount++
	group.LastMemberAt = alert.ReceivedAt
	return tx.Model(group).Updates(map[string]interface{}{
		"alert_count":    gorm.Expr("alert_count + 1"),
		"last_member_at": alert.ReceivedAt,
	}).Error
}

func (e *Engine) openGroup(tx *gorm.DB, alert *database.Alert) (*database.CorrelationGroup, error) {
	group := &database.CorrelationGroup{
		UUID:         uuid.New().String(),
		Status:       database.GroupStatusOpen,
		AlertCount:   1,
		OpenedAt:     alert.ReceivedAt,
		LastMemberAt: alert.ReceivedAt,
	}
	if err := tx.Create(group).Error; err != nil {
		return nil, err
	}

	alert.CorrelationGroupID = &group.ID
	alert.CorrelationScore = 1.0 // sole member
	if err := tx.Create(alert).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// CloseEligibleGroups transitions every OPEN group whose last member is older
// than the window to CLOSED, making them eligible for RCA generation and
// immutable to further membership. Returns the groups closed by this sweep.
func (e *Engine) CloseEligibleGroups() ([]database.CorrelationGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-e.cfg.Window)
	stale, err := database.StaleOpenGroups(e.db, cutoff)
	if err != nil {
		return nil, err
	}

	closed := make([]database.CorrelationGroup, 0, len(stale))
	for i := range stale {
		if err := e.closeGroup(&stale[i]); err != nil {
			log.Printf("Failed to close group %s: %v", stale[i].UUID, err)
			continue
		}
		closed = append(closed, stale[i])
	}
	return closed, nil
}

// ForceClose closes an OPEN group on explicit request, e.g. ahead of an
// on-demand RCA generation.
func (e *Engine) ForceClose(groupUUID string) (*database.CorrelationGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	group, err := database.GetGroupByUUID(e.db, groupUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	if group.Status == database.GroupStatusClosed {
		return nil, ErrGroupClosed
	}

	if err := e.closeGroup(group); err != nil {
		return nil, err
	}
	return group, nil
}

// Reopen transitions a CLOSED group back to OPEN. This is an explicit
// operator action; the sweep never reopens groups.
func (e *Engine) Reopen(groupUUID string) (*database.CorrelationGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	group, err := database.GetGroupByUUID(e.db, groupUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	if group.Status == database.GroupStatusOpen {
		return nil, ErrGroupOpen
	}

	group.Status = database.GroupStatusOpen
	group.ClosedAt = nil
	group.LastMemberAt = e.now()
	err = e.db.Model(group).Updates(map[string]interface{}{
		"status":         database.GroupStatusOpen,
		"closed_at":      nil,
		"last_member_at": group.LastMemberAt,
	}).Error
	if err != nil {
		return nil, err
	}
	return group, nil
}

// ForceCorrelate manually pulls the named alerts into one new group,
// detaching them from their current groups. Used by operators when the
// scorer got it wrong.
func (e *Engine) ForceCorrelate(alertUUIDs []string) (*database.CorrelationGroup, error) {
	if len(alertUUIDs) < 2 {
		return nil, errors.New("manual correlation requires at least two alerts")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var group *database.CorrelationGroup
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var alerts []database.Alert
		if err := tx.Where("uuid IN ?", alertUUIDs).Find(&alerts).Error; err != nil {
			return err
		}
		if len(alerts) < 2 {
			return errors.New("fewer than two of the named alerts exist")
		}

		earliest, latest := alerts[0].ReceivedAt, alerts[0].ReceivedAt
		for _, a := range alerts[1:] {
			if a.ReceivedAt.Before(earliest) {
				earliest = a.ReceivedAt
			}
			if a.ReceivedAt.After(latest) {
				latest = a.ReceivedAt
			}
		}

		group = &database.CorrelationGroup{
			UUID:         uuid.New().String(),
			Status:       database.GroupStatusOpen,
			AlertCount:   len(alerts),
			OpenedAt:     earliest,
			LastMemberAt: latest,
		}
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		ids := make([]uint, len(alerts))
		for i, a := range alerts {
			ids[i] = a.ID
		}
		return tx.Model(&database.Alert{}).Where("id IN ?", ids).Updates(map[string]interface{}{
			"correlation_group_id": group.ID,
			"correlation_score":    1.0, // manual correlation
		}).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Manually correlated %d alerts into group %s", len(alertUUIDs), group.UUID)
	return group, nil
}

// closeGroup persists the OPEN -> CLOSED transition. Callers hold e.mu.
func (e *Engine) closeGroup(group *database.CorrelationGroup) error {
	now := e.now()
	group.Status = database.GroupStatusClosed
	group.ClosedAt = &now
	return e.db.Model(group).Updates(map[string]interface{}{
		"status":    database.GroupStatusClosed,
		"closed_at": now,
	}).Error
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}
