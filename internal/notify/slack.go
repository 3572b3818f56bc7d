// Package notify delivers RCA completion notifications to Slack.
package notify

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"github.com/rcapilot/rcapilot/internal/database"
)

// SlackNotifier posts generated RCAs to a Slack channel. A nil notifier or
// empty channel disables delivery.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier creates a Slack notifier. Returns nil when no token is
// configured so callers can treat notifications as optional.
func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	if botToken == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
	}
}

// NotifyRCAGenerated posts the RCA summary to the configured channel.
// Delivery failures are logged, never propagated.
func (n *SlackNotifier) NotifyRCAGenerated(group *database.CorrelationGroup, record *database.RCA) {
	message := FormatRCAMessage(group, record)

	_, _, err := n.client.PostMessage(
		n.channel,
		slack.MsgOptionText(message, false),
	)
	if err != nil {
		log.Printf("Failed to post RCA %s to Slack: %v", record.UUID, err)
		return
	}
	log.Printf("Posted RCA %s to Slack channel %s", record.UUID, n.channel)
}

// FormatRCAMessage renders an RCA as a Slack mrkdwn message
func FormatRCAMessage(group *database.CorrelationGroup, record *database.RCA) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(":mag: *Root Cause Analysis* (v%d, confidence %.0f%%)\n\n", record.Version, record.ConfidenceScore*100))

	if record.Title != "" {
		sb.WriteString(fmt.Sprintf("*%s*\n", record.Title))
	}
	if record.Summary != "" {
		sb.WriteString(fmt.Sprintf("\n*Summary*\n%s\n", record.Summary))
	}
	if record.RootCause != "" {
		sb.WriteString(fmt.Sprintf("\n*Root Cause*\n%s\n", record.RootCause))
	}

	if record.RecommendedActions != "" {
		sb.WriteString("\n*Recommended Actions*\n")
		for _, action := range strings.Split(record.RecommendedActions, "\n") {
			if action = strings.TrimSpace(action); action != "" {
				sb.WriteString(fmt.Sprintf("• %s\n", action))
			}
		}
	}

	sb.WriteString(fmt.Sprintf("\n_Group %s · %d alert(s)_", group.UUID, group.AlertCount))
	return sb.String()
}
