package notify

import (
	"strings"
	"testing"

	"github.com/rcapilot/rcapilot/internal/database"
)

func TestNewSlackNotifierDisabledWithoutConfig(t *testing.T) {
	if NewSlackNotifier("", "#rca") != nil {
		t.Error("missing token should disable the notifier")
	}
	if NewSlackNotifier("xoxb-token", "") != nil {
		t.Error("missing channel should disable the notifier")
	}
	if NewSlackNotifier("xoxb-token", "#rca") == nil {
		t.Error("full config should enable the notifier")
	}
}

func TestFormatRCAMessage(t *testing.T) {
	group := &database.CorrelationGroup{UUID: "group-uuid", AlertCount: 4}
	record := &database.RCA{
		Version:            2,
		Title:              "Database pool exhaustion",
		Summary:            "Billing ran out of connections",
		RootCause:          "Connection leak in the billing worker",
		RecommendedActions: "Fix the leak\nRaise the pool ceiling",
		ConfidenceScore:    0.85,
	}

	msg := FormatRCAMessage(group, record)

	for _, want := range []string{
		"(v2, confidence 85%)",
		"*Database pool exhaustion*",
		"*Summary*",
		"*Root Cause*",
		"• Fix the leak",
		"• Raise the pool ceiling",
		"_Group group-uuid · 4 alert(s)_",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatRCAMessageSkipsEmptySections(t *testing.T) {
	group := &database.CorrelationGroup{UUID: "g", AlertCount: 1}
	record := &database.RCA{Version: 1, RootCause: "broken disk"}

	msg := FormatRCAMessage(group, record)
	if strings.Contains(msg, "*Summary*") {
		t.Error("empty summary should be omitted")
	}
	if strings.Contains(msg, "*Recommended Actions*") {
		t.Error("empty actions should be omitted")
	}
	if !strings.Contains(msg, "broken disk") {
		t.Error("root cause missing")
	}
}
