package api

import (
	"testing"
	"time"

	"github.com/rcapilot/rcapilot/internal/database"
)

func TestAlertToListItem(t *testing.T) {
	groupID := uint(7)
	now := time.Now()
	alert := database.Alert{
		UUID:               "a-uuid",
		Source:             "prometheus",
		Severity:           database.AlertSeverityHigh,
		Title:              "High CPU usage",
		AlertType:          database.AlertTypeMetrics,
		Status:             database.AlertStatusOpen,
		Fingerprint:        "abc123",
		OccurrenceCount:    3,
		CorrelationGroupID: &groupID,
		CorrelationScore:   0.91,
		ReceivedAt:         now,
		LastSeenAt:         now,
	}
	alert.ID = 1

	item := AlertToListItem(alert, "g-uuid")

	if item.UUID != "a-uuid" {
		t.Errorf("UUID = %q, want %q", item.UUID, "a-uuid")
	}
	if item.GroupUUID != "g-uuid" {
		t.Errorf("GroupUUID = %q, want %q", item.GroupUUID, "g-uuid")
	}
	if item.OccurrenceCount != 3 {
		t.Errorf("OccurrenceCount = %d, want 3", item.OccurrenceCount)
	}
	if item.CorrelationScore != 0.91 {
		t.Errorf("CorrelationScore = %f, want 0.91", item.CorrelationScore)
	}
}

func TestAlertsToListItemsResolvesGroupUUIDs(t *testing.T) {
	groupID := uint(2)
	alerts := []database.Alert{
		{UUID: "with-group", CorrelationGroupID: &groupID},
		{UUID: "without-group"},
	}

	items := AlertsToListItems(alerts, map[uint]string{2: "g-uuid"})

	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].GroupUUID != "g-uuid" {
		t.Errorf("items[0].GroupUUID = %q, want %q", items[0].GroupUUID, "g-uuid")
	}
	if items[1].GroupUUID != "" {
		t.Errorf("items[1].GroupUUID = %q, want empty", items[1].GroupUUID)
	}
}

func TestGroupToListItem(t *testing.T) {
	closedAt := time.Now()
	group := database.CorrelationGroup{
		UUID:         "g-uuid",
		Status:       database.GroupStatusClosed,
		AlertCount:   4,
		HasActiveRCA: true,
		ClosedAt:     &closedAt,
	}
	group.ID = 9

	item := GroupToListItem(group)

	if item.UUID != "g-uuid" {
		t.Errorf("UUID = %q, want %q", item.UUID, "g-uuid")
	}
	if item.Status != database.GroupStatusClosed {
		t.Errorf("Status = %q, want closed", item.Status)
	}
	if item.AlertCount != 4 {
		t.Errorf("AlertCount = %d, want 4", item.AlertCount)
	}
	if !item.HasActiveRCA {
		t.Error("HasActiveRCA = false, want true")
	}
	if item.ClosedAt == nil {
		t.Error("ClosedAt = nil, want set")
	}
}

func TestRCAToResponse(t *testing.T) {
	record := database.RCA{
		UUID:               "r-uuid",
		CorrelationGroupID: 3,
		Version:            2,
		Active:             true,
		Title:              "Database connection exhaustion",
		Summary:            "Pool exhausted under load",
		RootCause:          "Connection leak in the billing worker",
		Evidence:           "Pool metrics flatlined at the limit",
		RecommendedActions: "Fix the leak\nRaise the pool ceiling",
		ConfidenceScore:    0.82,
		Status:             database.RCAStatusOpen,
	}

	resp := RCAToResponse(record, "g-uuid")

	if resp.UUID != "r-uuid" {
		t.Errorf("UUID = %q, want %q", resp.UUID, "r-uuid")
	}
	if resp.GroupUUID != "g-uuid" {
		t.Errorf("GroupUUID = %q, want %q", resp.GroupUUID, "g-uuid")
	}
	if resp.Version != 2 {
		t.Errorf("Version = %d, want 2", resp.Version)
	}
	if resp.ConfidenceScore != 0.82 {
		t.Errorf("ConfidenceScore = %f, want 0.82", resp.ConfidenceScore)
	}
}

func TestRCAsToResponses(t *testing.T) {
	rcas := []database.RCA{
		{UUID: "r1", CorrelationGroupID: 1},
		{UUID: "r2", CorrelationGroupID: 2},
	}

	resps := RCAsToResponses(rcas, map[uint]string{1: "g1", 2: "g2"})

	if len(resps) != 2 {
		t.Fatalf("len(resps) = %d, want 2", len(resps))
	}
	if resps[0].GroupUUID != "g1" || resps[1].GroupUUID != "g2" {
		t.Errorf("group UUIDs = %q, %q; want g1, g2", resps[0].GroupUUID, resps[1].GroupUUID)
	}
}
