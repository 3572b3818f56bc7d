package handlers

import (
	"errors"
	"net/http"

	"github.com/rcapilot/rcapilot/internal/api"
	"github.com/rcapilot/rcapilot/internal/metrics"
	"github.com/rcapilot/rcapilot/internal/rca"
)

// handleSubmitFeedback handles POST /api/feedback
func (h *APIHandler) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitFeedbackRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	feedback, err := h.aggregator.Record(req.RCAUUID, req.Submitter, req.AccuracyRating, req.Comment)
	if err != nil {
		if errors.Is(err, rca.ErrRCANotFound) {
			api.RespondError(w, http.StatusNotFound, "RCA not found")
			return
		}
		api.RespondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	metrics.FeedbackRecorded.Inc()
	h.broadcast(EventFeedbackStored, map[string]interface{}{
		"rca_uuid":        req.RCAUUID,
		"accuracy_rating": req.AccuracyRating,
	})

	api.RespondJSON(w, http.StatusCreated, feedback)
}
