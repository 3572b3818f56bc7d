package handlers

import (
	"net/http"

	"github.com/rcapilot/rcapilot/internal/api"
	"github.com/rcapilot/rcapilot/internal/database"
)

// handleStats handles GET /api/stats
func (h *APIHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats api.StatsResponse

	counts := []struct {
		dest  *int64
		model interface{}
		where []interface{}
	}{
		{&stats.AlertsTotal, &database.Alert{}, nil},
		{&stats.AlertsOpen, &database.Alert{}, []interface{}{"status = ?", database.AlertStatusOpen}},
		{&stats.GroupsTotal, &database.CorrelationGroup{}, nil},
		{&stats.GroupsOpen, &database.CorrelationGroup{}, []interface{}{"status = ?", database.GroupStatusOpen}},
		{&stats.RCAsTotal, &database.RCA{}, nil},
		{&stats.RCAsOpen, &database.RCA{}, []interface{}{"status = ?", database.RCAStatusOpen}},
		{&stats.FeedbackEntries, &database.Feedback{}, nil},
	}

	for _, c := range counts {
		query := h.db.Model(c.model)
		if c.where != nil {
			query = query.Where(c.where[0], c.where[1:]...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to compute stats")
			return
		}
	}

	// Mean confidence over active RCAs; NULL when there are none
	var mean *float64
	err := h.db.Model(&database.RCA{}).
		Where("active = ?", true).
		Select("AVG(confidence_score)").Scan(&mean).Error
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	if mean != nil {
		stats.MeanConfidence = *mean
	}

	api.RespondJSON(w, http.StatusOK, stats)
}
