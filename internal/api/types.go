package api

import (
	"time"

	"github.com/rcapilot/rcapilot/internal/database"
)

// ========== Alert Types ==========

// SubmitAlertRequest is the request body for POST /api/alerts.
type SubmitAlertRequest struct {
	Source     string         `json:"source" validate:"required,min=1,max=128"`
	Severity   string         `json:"severity" validate:"required,oneof=low medium high critical"`
	Title      string         `json:"title" validate:"required,min=1,max=512"`
	Message    string         `json:"message" validate:"omitempty,max=8192"`
	AlertType  string         `json:"alert_type" validate:"required,oneof=metrics logs traces events"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
	RawData    database.JSONB `json:"raw_data,omitempty"`
}

// SubmitAlertResponse is the response body for POST /api/alerts.
type SubmitAlertResponse struct {
	AlertUUID        string  `json:"alert_uuid"`
	Deduplicated     bool    `json:"deduplicated"`
	OccurrenceCount  int     `json:"occurrence_count"`
	GroupUUID        string  `json:"group_uuid"`
	NewGroup         bool    `json:"new_group"`
	CorrelationScore float64 `json:"correlation_score"`
}

// UpdateAlertStatusRequest is the request body for PUT /api/alerts/:uuid/status.
type UpdateAlertStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open acknowledged resolved"`
}

// AlertListItem is a compact representation of an alert for list views.
// It omits RawData to reduce response size.
type AlertListItem struct {
	ID               uint                   `json:"id"`
	UUID             string                 `json:"uuid"`
	Source           string                 `json:"source"`
	Severity         database.AlertSeverity `json:"severity"`
	Title            string                 `json:"title"`
	AlertType        database.AlertType     `json:"alert_type"`
	Status           database.AlertStatus   `json:"status"`
	Fingerprint      string                 `json:"fingerprint"`
	OccurrenceCount  int                    `json:"occurrence_count"`
	GroupUUID        string                 `json:"group_uuid,omitempty"`
	CorrelationScore float64                `json:"correlation_score"`
	ReceivedAt       time.Time              `json:"received_at"`
	LastSeenAt       time.Time              `json:"last_seen_at"`
}

// ========== Group Types ==========

// ForceCorrelateRequest is the request body for POST /api/groups/force-correlate.
type ForceCorrelateRequest struct {
	AlertUUIDs []string `json:"alert_uuids" validate:"required,min=2,dive,uuid4"`
}

// GroupListItem is a correlation group for list views.
type GroupListItem struct {
	ID           uint                 `json:"id"`
	UUID         string               `json:"uuid"`
	Status       database.GroupStatus `json:"status"`
	AlertCount   int                  `json:"alert_count"`
	HasActiveRCA bool                 `json:"has_active_rca"`
	OpenedAt     time.Time            `json:"opened_at"`
	LastMemberAt time.Time            `json:"last_member_at"`
	ClosedAt     *time.Time           `json:"closed_at,omitempty"`
}

// GroupDetailResponse is a group with its member alerts and, when one
// exists, the active RCA version.
type GroupDetailResponse struct {
	GroupListItem
	Alerts    []AlertListItem `json:"alerts"`
	ActiveRCA *RCAResponse    `json:"active_rca,omitempty"`
}

// ========== RCA Types ==========

// GenerateRCARequest is the request body for POST /api/rca/generate.
type GenerateRCARequest struct {
	GroupUUID            string `json:"group_uuid" validate:"required,uuid4"`
	UseHistoricalContext *bool  `json:"use_historical_context,omitempty"`
}

// UpdateRCAStatusRequest is the request body for PUT /api/rca/:uuid/status.
type UpdateRCAStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress closed"`
}

// RCAResponse is the full representation of one RCA version.
type RCAResponse struct {
	ID                 uint               `json:"id"`
	UUID               string             `json:"uuid"`
	GroupUUID          string             `json:"group_uuid,omitempty"`
	Version            int                `json:"version"`
	Active             bool               `json:"active"`
	Title              string             `json:"title"`
	Summary            string             `json:"summary"`
	RootCause          string             `json:"root_cause"`
	ProbableCauses     database.JSONB     `json:"probable_causes"`
	Evidence           string             `json:"evidence"`
	RecommendedActions string             `json:"recommended_actions"`
	ConfidenceScore    float64            `json:"confidence_score"`
	Status             database.RCAStatus `json:"status"`
	ModelLatencyMs     int64              `json:"model_latency_ms"`
	HistoricalContext  database.JSONB     `json:"historical_context,omitempty"`
	GeneratedAt        time.Time          `json:"generated_at"`
	ResolvedAt         *time.Time         `json:"resolved_at,omitempty"`
	ResolutionMinutes  int                `json:"resolution_minutes,omitempty"`
}

// ========== Feedback Types ==========

// SubmitFeedbackRequest is the request body for POST /api/feedback.
type SubmitFeedbackRequest struct {
	RCAUUID        string `json:"rca_uuid" validate:"required,uuid4"`
	AccuracyRating int    `json:"accuracy_rating" validate:"required,min=1,max=5"`
	Submitter      string `json:"submitter" validate:"omitempty,max=128"`
	Comment        string `json:"comment" validate:"omitempty,max=4096"`
}

// ========== Auth Types ==========

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the response body for POST /auth/login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ========== Stats Types ==========

// StatsResponse is the response body for GET /api/stats.
type StatsResponse struct {
	AlertsTotal     int64   `json:"alerts_total"`
	AlertsOpen      int64   `json:"alerts_open"`
	GroupsTotal     int64   `json:"groups_total"`
	GroupsOpen      int64   `json:"groups_open"`
	RCAsTotal       int64   `json:"rcas_total"`
	RCAsOpen        int64   `json:"rcas_open"`
	MeanConfidence  float64 `json:"mean_confidence"`
	FeedbackEntries int64   `json:"feedback_entries"`
}

// ========== Pagination Types ==========

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}
