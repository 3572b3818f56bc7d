// Package testhelpers provides reusable testing utilities:
// in-memory database setup, HTTP test plumbing and domain data builders.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rcapilot/rcapilot/internal/database"
)

// ========================================
// Database Test Helpers
// ========================================

// SetupTestDB opens an in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&database.Alert{},
		&database.CorrelationGroup{},
		&database.RCA{},
		&database.Feedback{},
		&database.SourceAccuracyStat{},
		&database.RCAEmbedding{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// ========================================
// HTTP Test Helpers
// ========================================

// HTTPTestContext holds components for HTTP handler testing
type HTTPTestContext struct {
	T        *testing.T
	Recorder *httptest.ResponseRecorder
	Request  *http.Request
}

// NewHTTPTestContext creates a new HTTP test context
func NewHTTPTestContext(t *testing.T, method, path string, body io.Reader) *HTTPTestContext {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	return &HTTPTestContext{
		T:        t,
		Recorder: httptest.NewRecorder(),
		Request:  req,
	}
}

// WithHeader adds a header to the request
func (ctx *HTTPTestContext) WithHeader(key, value string) *HTTPTestContext {
	ctx.Request.Header.Set(key, value)
	return ctx
}

// WithJSONBody sets JSON body on the request
func (ctx *HTTPTestContext) WithJSONBody(v interface{}) *HTTPTestContext {
	ctx.T.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		ctx.T.Fatalf("failed to marshal JSON body: %v", err)
	}
	ctx.Request = httptest.NewRequest(ctx.Request.Method, ctx.Request.URL.String(), bytes.NewReader(body))
	ctx.Request.Header.Set("Content-Type", "application/json")
	return ctx
}

// WithBearerToken adds Authorization Bearer header
func (ctx *HTTPTestContext) WithBearerToken(token string) *HTTPTestContext {
	return ctx.WithHeader("Authorization", "Bearer "+token)
}

// Execute runs the handler and returns the response
func (ctx *HTTPTestContext) Execute(handler http.Handler) *HTTPTestContext {
	handler.ServeHTTP(ctx.Recorder, ctx.Request)
	return ctx
}

// ExecuteFunc runs the handler func and returns the response
func (ctx *HTTPTestContext) ExecuteFunc(handler http.HandlerFunc) *HTTPTestContext {
	handler(ctx.Recorder, ctx.Request)
	return ctx
}

// AssertStatus checks the response status code
func (ctx *HTTPTestContext) AssertStatus(expected int) *HTTPTestContext {
	ctx.T.Helper()
	if ctx.Recorder.Code != expected {
		ctx.T.Errorf("expected status %d, got %d. Body: %s", expected, ctx.Recorder.Code, ctx.Recorder.Body.String())
	}
	return ctx
}

// AssertBodyContains checks if response body contains substring
func (ctx *HTTPTestContext) AssertBodyContains(substr string) *HTTPTestContext {
	ctx.T.Helper()
	body := ctx.Recorder.Body.String()
	if !strings.Contains(body, substr) {
		ctx.T.Errorf("expected body to contain %q, got: %s", substr, body)
	}
	return ctx
}

// DecodeJSON decodes response body as JSON
func (ctx *HTTPTestContext) DecodeJSON(v interface{}) *HTTPTestContext {
	ctx.T.Helper()
	if err := json.NewDecoder(ctx.Recorder.Body).Decode(v); err != nil {
		ctx.T.Fatalf("failed to decode JSON response: %v", err)
	}
	return ctx
}

// ========================================
// Sample Data Builders
// ========================================

// AlertBuilder builds database.Alert instances for testing
type AlertBuilder struct {
	alert database.Alert
}

// NewAlertBuilder creates a new alert builder with defaults
func NewAlertBuilder() *AlertBuilder {
	now := time.Now()
	return &AlertBuilder{
		alert: database.Alert{
			UUID:            uuid.New().String(),
			Source:          "prometheus",
			Severity:        database.AlertSeverityHigh,
			Title:           "High CPU usage on web-01",
			Message:         "CPU usage above 90% for 5 minutes",
			AlertType:       database.AlertTypeMetrics,
			Status:          database.AlertStatusOpen,
			OccurrenceCount: 1,
			ReceivedAt:      now,
			LastSeenAt:      now,
		},
	}
}

// WithSource sets the source
func (b *AlertBuilder) WithSource(source string) *AlertBuilder {
	b.alert.Source = source
	return b
}

// WithSeverity sets the severity
func (b *AlertBuilder) WithSeverity(severity database.AlertSeverity) *AlertBuilder {
	b.alert.Severity = severity
	return b
}

// WithTitle sets the title
func (b *AlertBuilder) WithTitle(title string) *AlertBuilder {
	b.alert.Title = title
	return b
}

// WithMessage sets the message
func (b *AlertBuilder) WithMessage(message string) *AlertBuilder {
	b.alert.Message = message
	return b
}

// WithType sets the alert type
func (b *AlertBuilder) WithType(alertType database.AlertType) *AlertBuilder {
	b.alert.AlertType = alertType
	return b
}

// WithReceivedAt sets both ReceivedAt and LastSeenAt
func (b *AlertBuilder) WithReceivedAt(at time.Time) *AlertBuilder {
	b.alert.ReceivedAt = at
	b.alert.LastSeenAt = at
	return b
}

// WithGroup attaches the alert to a group
func (b *AlertBuilder) WithGroup(groupID uint) *AlertBuilder {
	b.alert.CorrelationGroupID = &groupID
	return b
}

// Build returns the constructed alert
func (b *AlertBuilder) Build() database.Alert {
	return b.alert
}

// GroupBuilder builds database.CorrelationGroup instances for testing
type GroupBuilder struct {
	group database.CorrelationGroup
}

// NewGroupBuilder creates a new group builder with defaults
func NewGroupBuilder() *GroupBuilder {
	now := time.Now()
	return &GroupBuilder{
		group: database.CorrelationGroup{
			UUID:         uuid.New().String(),
			Status:       database.GroupStatusOpen,
			AlertCount:   0,
			OpenedAt:     now,
			LastMemberAt: now,
		},
	}
}

// Closed marks the group closed
func (b *GroupBuilder) Closed() *GroupBuilder {
	now := time.Now()
	b.group.Status = database.GroupStatusClosed
	b.group.ClosedAt = &now
	return b
}

// WithLastMemberAt sets the last membership timestamp
func (b *GroupBuilder) WithLastMemberAt(at time.Time) *GroupBuilder {
	b.group.LastMemberAt = at
	return b
}

// WithAlertCount sets the member count
func (b *GroupBuilder) WithAlertCount(n int) *GroupBuilder {
	b.group.AlertCount = n
	return b
}

// Build returns the constructed group
func (b *GroupBuilder) Build() database.CorrelationGroup {
	return b.group
}

// RCABuilder builds database.RCA instances for testing
type RCABuilder struct {
	rca database.RCA
}

// NewRCABuilder creates a new RCA builder with defaults
func NewRCABuilder(groupID uint) *RCABuilder {
	return &RCABuilder{
		rca: database.RCA{
			UUID:               uuid.New().String(),
			CorrelationGroupID: groupID,
			Version:            1,
			Active:             true,
			Title:              "Test root cause analysis",
			Summary:            "Something broke",
			RootCause:          "A thing failed",
			Evidence:           "The logs say so",
			RecommendedActions: "Fix the thing",
			ConfidenceScore:    0.8,
			Status:             database.RCAStatusOpen,
			GeneratedAt:        time.Now(),
		},
	}
}

// WithStatus sets the status
func (b *RCABuilder) WithStatus(status database.RCAStatus) *RCABuilder {
	b.rca.Status = status
	return b
}

// WithVersion sets the version
func (b *RCABuilder) WithVersion(v int) *RCABuilder {
	b.rca.Version = v
	return b
}

// Build returns the constructed RCA
func (b *RCABuilder) Build() database.RCA {
	return b.rca
}
