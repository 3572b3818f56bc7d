package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB is a custom type for JSON columns (JSONB on PostgreSQL, TEXT on SQLite)
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("unsupported type for JSONB scan")
	}
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// AlertSeverity represents normalized severity levels, ordered low to critical
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

var severityRanks = map[AlertSeverity]int{
	AlertSeverityLow:      0,
	AlertSeverityMedium:   1,
	AlertSeverityHigh:     2,
	AlertSeverityCritical: 3,
}

// Rank returns the position of the severity on the ordered scale, or -1 if unknown
func (s AlertSeverity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// IsValid reports whether the severity is one of the known levels
func (s AlertSeverity) IsValid() bool {
	return s.Rank() >= 0
}

// AlertType categorizes the telemetry signal an alert came from
type AlertType string

const (
	AlertTypeMetrics AlertType = "metrics"
	AlertTypeLogs    AlertType = "logs"
	AlertTypeTraces  AlertType = "traces"
	AlertTypeEvents  AlertType = "events"
)

// IsValid reports whether the alert type is one of the known categories
func (t AlertType) IsValid() bool {
	switch t {
	case AlertTypeMetrics, AlertTypeLogs, AlertTypeTraces, AlertTypeEvents:
		return true
	}
	return false
}

// AlertStatus represents the lifecycle state of an alert
type AlertStatus string

const (
	AlertStatusOpen         AlertStatus = "open"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// Alert is a single normalized event reported by a monitoring source.
// Content fields are immutable after creation; only Status, the group
// reference, and the occurrence counter change.
type Alert struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	UUID               string        `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Source             string        `gorm:"size:128;not null;index" json:"source"`
	Severity           AlertSeverity `gorm:"type:varchar(20);not null" json:"severity"`
	Title              string        `gorm:"type:varchar(512);not null" json:"title"`
	Message            string        `gorm:"type:text" json:"message"`
	AlertType          AlertType     `gorm:"type:varchar(20);not null;index" json:"alert_type"`
	RawData            JSONB         `gorm:"type:jsonb" json:"raw_data"`
	Fingerprint        string        `gorm:"size:64;not null;index" json:"fingerprint"`
	OccurrenceCount    int           `gorm:"default:1" json:"occurrence_count"`
	Status             AlertStatus   `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	CorrelationGroupID *uint         `gorm:"index" json:"correlation_group_id,omitempty"`
	CorrelationScore   float64       `gorm:"type:decimal(4,3)" json:"correlation_score"`
	ReceivedAt         time.Time     `gorm:"not null;index" json:"received_at"`
	LastSeenAt         time.Time     `gorm:"not null" json:"last_seen_at"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

// GroupStatus represents the lifecycle state of a correlation group
type GroupStatus string

const (
	GroupStatusOpen   GroupStatus = "open"
	GroupStatusClosed GroupStatus = "closed"
)

// CorrelationGroup is a time-bounded cluster of related alerts. Membership
// is tracked by Alert.CorrelationGroupID; insertion order follows alert IDs.
type CorrelationGroup struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UUID         string      `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Status       GroupStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	AlertCount   int         `gorm:"default:0" json:"alert_count"`
	OpenedAt     time.Time   `gorm:"not null" json:"opened_at"`
	LastMemberAt time.Time   `gorm:"not null;index" json:"last_member_at"`
	ClosedAt     *time.Time  `json:"closed_at,omitempty"`
	HasActiveRCA bool        `gorm:"default:false" json:"has_active_rca"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (CorrelationGroup) TableName() string {
	return "correlation_groups"
}

// RCAStatus represents the lifecycle state of an RCA record.
// Transitions are forward-only (open -> in_progress -> closed) except an
// explicit operator reopen from closed back to open.
type RCAStatus string

const (
	RCAStatusOpen       RCAStatus = "open"
	RCAStatusInProgress RCAStatus = "in_progress"
	RCAStatusClosed     RCAStatus = "closed"
)

// CanTransitionTo reports whether a status change is allowed
func (s RCAStatus) CanTransitionTo(next RCAStatus) bool {
	switch s {
	case RCAStatusOpen:
		return next == RCAStatusInProgress || next == RCAStatusClosed
	case RCAStatusInProgress:
		return next == RCAStatusClosed
	case RCAStatusClosed:
		// Reopen is the only backward transition
		return next == RCAStatusOpen
	}
	return false
}

// RCA is a structured root-cause analysis generated for a correlation group.
// Regeneration creates a new version; earlier versions are retained for audit
// with Active set to false.
type RCA struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UUID               string     `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	CorrelationGroupID uint       `gorm:"not null;index" json:"correlation_group_id"`
	Version            int        `gorm:"default:1" json:"version"`
	Active             bool       `gorm:"default:true;index" json:"active"`
	Title              string     `gorm:"type:varchar(512)" json:"title"`
	Summary            string     `gorm:"type:text" json:"summary"`
	RootCause          string     `gorm:"type:text" json:"root_cause"`
	ProbableCauses     JSONB      `gorm:"type:jsonb" json:"probable_causes"`
	Evidence           string     `gorm:"type:text" json:"evidence"`
	RecommendedActions string     `gorm:"type:text" json:"recommended_actions"`
	ConfidenceScore    float64    `gorm:"type:decimal(4,3)" json:"confidence_score"`
	Status             RCAStatus  `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	RawResponse        string     `gorm:"type:text" json:"-"`
	ModelLatencyMs     int64      `json:"model_latency_ms"`
	HistoricalContext  JSONB      `gorm:"type:jsonb" json:"used_historical_context"`
	GeneratedAt        time.Time  `json:"generated_at"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	ResolutionMinutes  int        `json:"resolution_minutes"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (RCA) TableName() string {
	return "rcas"
}

// Feedback is a user-supplied accuracy rating for a generated RCA. Entries
// are keyed by (rca_id, submitter) for idempotence when a submitter is
// provided; anonymous feedback is append-only.
type Feedback struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RCAID          uint      `gorm:"not null;index" json:"rca_id"`
	Submitter      string    `gorm:"size:128" json:"submitter"`
	AccuracyRating int       `gorm:"not null" json:"accuracy_rating"`
	Comment        string    `gorm:"type:text" json:"comment"`
	SubmittedAt    time.Time `gorm:"not null" json:"submitted_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}

// SourceAccuracyStat keeps a running mean of feedback ratings per
// (source, alert_type) bucket. The feedback aggregator is its sole writer.
type SourceAccuracyStat struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Source      string    `gorm:"size:128;not null;uniqueIndex:idx_accuracy_bucket" json:"source"`
	AlertType   AlertType `gorm:"type:varchar(20);not null;uniqueIndex:idx_accuracy_bucket" json:"alert_type"`
	RatingCount int64     `gorm:"default:0" json:"rating_count"`
	RatingMean  float64   `gorm:"type:decimal(4,3);default:0" json:"rating_mean"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SourceAccuracyStat) TableName() string {
	return "source_accuracy_stats"
}

// RCAEmbedding stores the embedding vector for a historical RCA so the
// similarity index can answer nearest-neighbor queries. Vectors are stored
// JSON-encoded to stay portable across PostgreSQL and SQLite.
type RCAEmbedding struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RCAUUID   string    `gorm:"uniqueIndex;size:36;not null" json:"rca_uuid"`
	Vector    string    `gorm:"type:text;not null" json:"-"`
	Dim       int       `gorm:"not null" json:"dim"`
	CreatedAt time.Time `json:"created_at"`
}

func (RCAEmbedding) TableName() string {
	return "rca_embeddings"
}
