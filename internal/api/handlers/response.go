package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hugh/staff-manager/internal/api/dto"
	"github.com/hugh/staff-manager/internal/api/middleware"
	"github.com/hugh/staff-manager/internal/apperror"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, status int, message string, result interface{}) {
	writeJSON(w, status, dto.APIResponse{Code: status, Message: message, Result: result})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.APIResponse{Code: status, Message: message})
}

func writeValidationError(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.APIResponse{
		Code:    http.StatusBadRequest,
		Message: "Validation failed",
		Details: details,
	})
}

// writeServiceError maps a service error onto its status. Unexpected errors are logged
// and answered with fallback so internals never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := apperror.GetCode(err)
	status := apperror.HTTPStatus(code)
	if code == apperror.CodeInternal {
		slog.Default().Error(fallback,
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, apperror.Message(err, fallback))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
