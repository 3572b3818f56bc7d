package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the error envelope shared by every endpoint. Code carries
// a machine-readable reason ("group_closed", "invalid_transition") so the
// dashboard can branch without parsing prose.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// RespondJSON writes data with the given status. A nil payload writes the
// status line only.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode %d response: %v", status, err)
	}
}

// RespondError writes the error envelope without a code.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// RespondErrorWithCode writes the error envelope with a machine-readable code.
func RespondErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// RespondValidationError reports field-level failures as 422 with one
// message per offending field.
func RespondValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	RespondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Code:    "validation_error",
		Details: fieldErrors,
	})
}
