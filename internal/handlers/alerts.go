package handlers

import (
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/rcapilot/rcapilot/internal/api"
	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/metrics"
)

// handleSubmitAlert handles POST /api/alerts
func (h *APIHandler) handleSubmitAlert(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitAlertRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	alert := &database.Alert{
		Source:    req.Source,
		Severity:  database.AlertSeverity(req.Severity),
		Title:     req.Title,
		Message:   req.Message,
		AlertType: database.AlertType(req.AlertType),
		RawData:   req.RawData,
	}
	if req.OccurredAt != nil {
		alert.ReceivedAt = *req.OccurredAt
	}

	result, err := h.engine.Submit(alert)
	if err != nil {
		log.Printf("Alert admission failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to process alert")
		return
	}

	metrics.AlertsIngested.WithLabelValues(req.Source, req.Severity).Inc()

	resp := api.SubmitAlertResponse{
		AlertUUID:        result.Alert.UUID,
		Deduplicated:     result.Deduped,
		OccurrenceCount:  result.Alert.OccurrenceCount,
		GroupUUID:        result.Group.UUID,
		NewGroup:         result.NewGroup,
		CorrelationScore: result.Alert.CorrelationScore,
	}

	switch {
	case result.Deduped:
		metrics.AlertsDeduplicated.Inc()
		h.broadcast(EventAlertDeduped, resp)
		api.RespondJSON(w, http.StatusOK, resp)
	case result.NewGroup:
		metrics.GroupsOpened.Inc()
		h.broadcast(EventGroupOpened, api.GroupToListItem(*result.Group))
		h.broadcast(EventAlertIngested, resp)
		api.RespondJSON(w, http.StatusCreated, resp)
	default:
		h.broadcast(EventAlertIngested, resp)
		api.RespondJSON(w, http.StatusCreated, resp)
	}
}

// handleListAlerts handles GET /api/alerts
func (h *APIHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&database.Alert{})

	if source := r.URL.Query().Get("source"); source != "" {
		query = query.Where("source = ?", source)
	}
	if severity := r.URL.Query().Get("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if groupUUID := r.URL.Query().Get("group"); groupUUID != "" {
		group, err := database.GetGroupByUUID(h.db, groupUUID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Group not found")
			return
		}
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to resolve group")
			return
		}
		query = query.Where("correlation_group_id = ?", group.ID)
	}

	params := api.ParsePagination(r)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to count alerts")
		return
	}

	var alerts []database.Alert
	if err := query.Order("received_at DESC").
		Offset(params.Offset()).Limit(params.PerPage).Find(&alerts).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}

	groupIDs := make([]uint, 0, len(alerts))
	for _, a := range alerts {
		if a.CorrelationGroupID != nil {
			groupIDs = append(groupIDs, *a.CorrelationGroupID)
		}
	}
	groupUUIDs, err := h.groupUUIDsFor(groupIDs)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to resolve groups")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data:       api.AlertsToListItems(alerts, groupUUIDs),
		Pagination: params.Meta(total),
	})
}

// handleGetAlert handles GET /api/alerts/{uuid}
func (h *APIHandler) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := database.GetAlertByUUID(h.db, r.PathValue("uuid"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		api.RespondError(w, http.StatusNotFound, "Alert not found")
		return
	}
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get alert")
		return
	}

	groupUUID := ""
	if alert.CorrelationGroupID != nil {
		uuids, err := h.groupUUIDsFor([]uint{*alert.CorrelationGroupID})
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to resolve group")
			return
		}
		groupUUID = uuids[*alert.CorrelationGroupID]
	}

	api.RespondJSON(w, http.StatusOK, api.AlertToListItem(*alert, groupUUID))
}

// handleUpdateAlertStatus handles PUT /api/alerts/{uuid}/status
func (h *APIHandler) handleUpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateAlertStatusRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	alert, err := database.GetAlertByUUID(h.db, r.PathValue("uuid"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		api.RespondError(w, http.StatusNotFound, "Alert not found")
		return
	}
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get alert")
		return
	}

	if err := h.db.Model(alert).Update("status", database.AlertStatus(req.Status)).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to update alert status")
		return
	}
	alert.Status = database.AlertStatus(req.Status)

	api.RespondJSON(w, http.StatusOK, api.AlertToListItem(*alert, ""))
}
