package api

import "github.com/rcapilot/rcapilot/internal/database"

// AlertToListItem converts a database Alert to a compact list representation.
// groupUUID is the UUID of the alert's correlation group ("" when unresolved).
func AlertToListItem(a database.Alert, groupUUID string) AlertListItem {
	return AlertListItem{
		ID:               a.ID,
		UUID:             a.UUID,
		Source:           a.Source,
		Severity:         a.Severity,
		Title:            a.Title,
		AlertType:        a.AlertType,
		Status:           a.Status,
		Fingerprint:      a.Fingerprint,
		OccurrenceCount:  a.OccurrenceCount,
		GroupUUID:        groupUUID,
		CorrelationScore: a.CorrelationScore,
		ReceivedAt:       a.ReceivedAt,
		LastSeenAt:       a.LastSeenAt,
	}
}

// AlertsToListItems converts a slice of alerts, resolving group UUIDs through
// the supplied id → uuid map.
func AlertsToListItems(alerts []database.Alert, groupUUIDs map[uint]string) []AlertListItem {
	items := make([]AlertListItem, len(alerts))
	for i, a := range alerts {
		groupUUID := ""
		if a.CorrelationGroupID != nil {
			groupUUID = groupUUIDs[*a.CorrelationGroupID]
		}
		items[i] = AlertToListItem(a, groupUUID)
	}
	return items
}

// GroupToListItem converts a database CorrelationGroup to a list item.
func GroupToListItem(g database.CorrelationGroup) GroupListItem {
	return GroupListItem{
		ID:           g.ID,
		UUID:         g.UUID,
		Status:       g.Status,
		AlertCount:   g.AlertCount,
		HasActiveRCA: g.HasActiveRCA,
		OpenedAt:     g.OpenedAt,
		LastMemberAt: g.LastMemberAt,
		ClosedAt:     g.ClosedAt,
	}
}

// GroupsToListItems converts a slice of groups to list items.
func GroupsToListItems(groups []database.CorrelationGroup) []GroupListItem {
	items := make([]GroupListItem, len(groups))
	for i, g := range groups {
		items[i] = GroupToListItem(g)
	}
	return items
}

// RCAToResponse converts a database RCA to its API representation.
// groupUUID may be empty when the caller did not resolve the group.
func RCAToResponse(r database.RCA, groupUUID string) RCAResponse {
	return RCAResponse{
		ID:                 r.ID,
		UUID:               r.UUID,
		GroupUUID:          groupUUID,
		Version:            r.Version,
		Active:             r.Active,
		Title:              r.Title,
		Summary:            r.Summary,
		RootCause:          r.RootCause,
		ProbableCauses:     r.ProbableCauses,
		Evidence:           r.Evidence,
		RecommendedActions: r.RecommendedActions,
		ConfidenceScore:    r.ConfidenceScore,
		Status:             r.Status,
		ModelLatencyMs:     r.ModelLatencyMs,
		HistoricalContext:  r.HistoricalContext,
		GeneratedAt:        r.GeneratedAt,
		ResolvedAt:         r.ResolvedAt,
		ResolutionMinutes:  r.ResolutionMinutes,
	}
}

// RCAsToResponses converts a slice of RCAs, resolving group UUIDs through the
// supplied id → uuid map.
func RCAsToResponses(rcas []database.RCA, groupUUIDs map[uint]string) []RCAResponse {
	items := make([]RCAResponse, len(rcas))
	for i, r := range rcas {
		items[i] = RCAToResponse(r, groupUUIDs[r.CorrelationGroupID])
	}
	return items
}
