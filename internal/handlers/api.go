// Package handlers contains the HTTP surface: alert ingestion, group and RCA
// lifecycle operations, feedback, stats, auth and the live event stream.
package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/rcapilot/rcapilot/internal/api"
	"github.com/rcapilot/rcapilot/internal/correlation"
	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/rca"
)

// RCANotifier is notified after an RCA has been generated and committed
type RCANotifier interface {
	NotifyRCAGenerated(group *database.CorrelationGroup, record *database.RCA)
}

// APIHandler handles the JSON API for ingestion, correlation and RCA
type APIHandler struct {
	db           *gorm.DB
	engine       *correlation.Engine
	orchestrator *rca.Orchestrator
	aggregator   *rca.Aggregator
	hub          *EventHub
	notifier     RCANotifier
}

// NewAPIHandler creates a new API handler. hub and notifier may be nil.
func NewAPIHandler(db *gorm.DB, engine *correlation.Engine, orchestrator *rca.Orchestrator, aggregator *rca.Aggregator, hub *EventHub, notifier RCANotifier) *APIHandler {
	return &APIHandler{
		db:           db,
		engine:       engine,
		orchestrator: orchestrator,
		aggregator:   aggregator,
		hub:          hub,
		notifier:     notifier,
	}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	// Alerts
	mux.HandleFunc("POST /api/alerts", h.handleSubmitAlert)
	mux.HandleFunc("GET /api/alerts", h.handleListAlerts)
	mux.HandleFunc("GET /api/alerts/{uuid}", h.handleGetAlert)
	mux.HandleFunc("PUT /api/alerts/{uuid}/status", h.handleUpdateAlertStatus)

	// Correlation groups
	mux.HandleFunc("GET /api/groups", h.handleListGroups)
	mux.HandleFunc("GET /api/groups/{uuid}", h.handleGetGroup)
	mux.HandleFunc("POST /api/groups/{uuid}/close", h.handleCloseGroup)
	mux.HandleFunc("POST /api/groups/{uuid}/reopen", h.handleReopenGroup)
	mux.HandleFunc("POST /api/groups/force-correlate", h.handleForceCorrelate)

	// RCA
	mux.HandleFunc("POST /api/rca/generate", h.handleGenerateRCA)
	mux.HandleFunc("GET /api/rca", h.handleListRCAs)
	mux.HandleFunc("GET /api/rca/{uuid}", h.handleGetRCA)
	mux.HandleFunc("PUT /api/rca/{uuid}/status", h.handleUpdateRCAStatus)

	// Feedback
	mux.HandleFunc("POST /api/feedback", h.handleSubmitFeedback)

	// Stats
	mux.HandleFunc("GET /api/stats", h.handleStats)

	// Live event stream
	if h.hub != nil {
		mux.HandleFunc("GET /ws/events", h.hub.HandleWS)
	}
}

// broadcast publishes an event when a hub is attached
func (h *APIHandler) broadcast(eventType string, payload interface{}) {
	if h.hub != nil {
		h.hub.Broadcast(eventType, payload)
	}
}

// groupUUIDsFor resolves group ids to UUIDs for list responses
func (h *APIHandler) groupUUIDsFor(ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var groups []database.CorrelationGroup
	if err := h.db.Select("id", "uuid").Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, err
	}
	for _, g := range groups {
		out[g.ID] = g.UUID
	}
	return out, nil
}

// HandleHealth returns a simple health check response
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "rcapilot",
	})
}
