package handlers

import (
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/rcapilot/rcapilot/internal/api"
	"github.com/rcapilot/rcapilot/internal/correlation"
	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/metrics"
)

// handleListGroups handles GET /api/groups
func (h *APIHandler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&database.CorrelationGroup{})

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	params := api.ParsePagination(r)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to count groups")
		return
	}

	var groups []database.CorrelationGroup
	if err := query.Order("last_member_at DESC").
		Offset(params.Offset()).Limit(params.PerPage).Find(&groups).Error; err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list groups")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data:       api.GroupsToListItems(groups),
		Pagination: params.Meta(total),
	})
}

// handleGetGroup handles GET /api/groups/{uuid}
func (h *APIHandler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := database.GetGroupByUUID(h.db, r.PathValue("uuid"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		api.RespondError(w, http.StatusNotFound, "Group not found")
		return
	}
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get group")
		return
	}

	alerts, err := database.AlertsByGroup(h.db, group.ID)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to load group alerts")
		return
	}

	items := make([]api.AlertListItem, len(alerts))
	for i, a := range alerts {
		items[i] = api.AlertToListItem(a, group.UUID)
	}

	detail := api.GroupDetailResponse{
		GroupListItem: api.GroupToListItem(*group),
		Alerts:        items,
	}
	if group.HasActiveRCA {
		active, err := database.ActiveRCAForGroup(h.db, group.ID)
		switch {
		case err == nil:
			resp := api.RCAToResponse(*active, group.UUID)
			detail.ActiveRCA = &resp
		case !errors.Is(err, gorm.ErrRecordNotFound):
			api.RespondError(w, http.StatusInternalServerError, "Failed to load active RCA")
			return
		}
	}

	api.RespondJSON(w, http.StatusOK, detail)
}

// handleCloseGroup handles POST /api/groups/{uuid}/close
func (h *APIHandler) handleCloseGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.engine.ForceClose(r.PathValue("uuid"))
	switch {
	case errors.Is(err, correlation.ErrGroupNotFound):
		api.RespondError(w, http.StatusNotFound, "Group not found")
		return
	case errors.Is(err, correlation.ErrGroupClosed):
		api.RespondErrorWithCode(w, http.StatusConflict, "group_closed", "Group is already closed")
		return
	case err != nil:
		log.Printf("Failed to close group: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to close group")
		return
	}

	metrics.GroupsClosed.WithLabelValues("manual").Inc()
	h.broadcast(EventGroupClosed, api.GroupToListItem(*group))
	api.RespondJSON(w, http.StatusOK, api.GroupToListItem(*group))
}

// handleReopenGroup handles POST /api/groups/{uuid}/reopen
func (h *APIHandler) handleReopenGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.engine.Reopen(r.PathValue("uuid"))
	switch {
	case errors.Is(err, correlation.ErrGroupNotFound):
		api.RespondError(w, http.StatusNotFound, "Group not found")
		return
	case errors.Is(err, correlation.ErrGroupOpen):
		api.RespondErrorWithCode(w, http.StatusConflict, "group_open", "Group is already open")
		return
	case err != nil:
		log.Printf("Failed to reopen group: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to reopen group")
		return
	}

	h.broadcast(EventGroupOpened, api.GroupToListItem(*group))
	api.RespondJSON(w, http.StatusOK, api.GroupToListItem(*group))
}

// handleForceCorrelate handles POST /api/groups/force-correlate
func (h *APIHandler) handleForceCorrelate(w http.ResponseWriter, r *http.Request) {
	var req api.ForceCorrelateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	group, err := h.engine.ForceCorrelate(req.AlertUUIDs)
	if err != nil {
		api.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	metrics.GroupsOpened.Inc()
	h.broadcast(EventGroupOpened, api.GroupToListItem(*group))
	api.RespondJSON(w, http.StatusCreated, api.GroupToListItem(*group))
}
