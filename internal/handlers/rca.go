package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/rcapilot/rcapilot/internal/api"
	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/metrics"
	"github.com/rcapilot/rcapilot/internal/rca"
)

// handleGenerateRCA handles POST /api/rca/generate. Generation can take up
// to the model deadline, so it runs in the background and the result arrives
// on the event stream; the response acknowledges the request.
func (h *APIHandler) handleGenerateRCA(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateRCARequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	group, err := database.GetGroupByUUID(h.db, req.GroupUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		api.RespondError(w, http.StatusNotFound, "Group not found")
		return
	}
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get group")
		return
	}
	if group.Status != database.GroupStatusClosed {
		api.RespondErrorWithCode(w, http.StatusConflict, "group_open",
			"Group must be closed before RCA generation")
		return
	}
	if h.orchestrator.InFlight(group.ID) {
		api.RespondErrorWithCode(w, http.StatusConflict, "generation_in_progress",
			"RCA generation already running for this group")
		return
	}

	useHistorical := true
	if req.UseHistoricalContext != nil {
		useHistorical = *req.UseHistoricalContext
	}

	go h.runGeneration(group, rca.Options{UseHistoricalContext: useHistorical})

	api.RespondJSON(w, http.StatusAccepted, map[string]string{
		"group_uuid": group.UUID,
		"status":     "generation_started",
	})
}

// runGeneration executes one background generation and publishes the outcome
func (h *APIHandler) runGeneration(group *database.CorrelationGroup, opts rca.Options) {
	record, err := h.orchestrator.Generate(context.Background(), group, opts)
	if err != nil {
		if errors.Is(err, rca.ErrGenerationInProgress) {
			log.Printf("RCA generation already running for group %s", group.UUID)
			return
		}
		metrics.RCAGenerations.WithLabelValues("error").Inc()
		log.Printf("RCA generation failed for group %s: %v", group.UUID, err)
		h.broadcast(EventRCAFailed, map[string]string{
			"group_uuid": group.UUID,
			"error":      err.Error(),
		})
		return
	}

	metrics.RCAGenerations.WithLabelValues("success").Inc()
	metrics.ModelLatency.Observe(float64(record.ModelLatencyMs) / 1000.0)

	h.broadcast(EventRCAGenerated, api.RCAToResponse(*record, group.UUID))
	if h.notifier != nil {
		h.notifier.NotifyRCAGenerated(group, record)
	}
}

// handleListRCAs handles GET /api/rca
func (h *APIHandler) handleListRCAs(w http.ResponseWriter, r *http.Request) {
	var statuses []database.RCAStatus
	if status := r.URL.Query().Get("status"); status != "" {
		statuses = append(statuses, database.RCAStatus(status))
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	params := api.ParsePagination(r)

	total, err := database.CountRCAs(h.db, statuses, activeOnly)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to count RCAs")
		return
	}

	rcas, err := database.RCAsByStatus(h.db, statuses, activeOnly, params.PerPage, params.Offset())
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list RCAs")
		return
	}

	groupIDs := make([]uint, len(rcas))
	for i, rec := range rcas {
		groupIDs[i] = rec.CorrelationGroupID
	}
	groupUUIDs, err := h.groupUUIDsFor(groupIDs)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to resolve groups")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data:       api.RCAsToResponses(rcas, groupUUIDs),
		Pagination: params.Meta(total),
	})
}

// handleGetRCA handles GET /api/rca/{uuid}
func (h *APIHandler) handleGetRCA(w http.ResponseWriter, r *http.Request) {
	record, err := database.GetRCAByUUID(h.db, r.PathValue("uuid"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		api.RespondError(w, http.StatusNotFound, "RCA not found")
		return
	}
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get RCA")
		return
	}

	groupUUIDs, err := h.groupUUIDsFor([]uint{record.CorrelationGroupID})
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to resolve group")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.RCAToResponse(*record, groupUUIDs[record.CorrelationGroupID]))
}

// handleUpdateRCAStatus handles PUT /api/rca/{uuid}/status
func (h *APIHandler) handleUpdateRCAStatus(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateRCAStatusRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	record, err := h.orchestrator.UpdateStatus(r.PathValue("uuid"), database.RCAStatus(req.Status))
	if err != nil {
		var stateErr *rca.InvalidStateError
		if errors.As(err, &stateErr) {
			api.RespondErrorWithCode(w, http.StatusConflict, "invalid_transition", stateErr.Error())
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "RCA not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to update RCA status")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.RCAToResponse(*record, ""))
}
