// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sauce8888/MVP1/internal/api/middleware"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

var validate = validator.New()

// requireAccess derives the caller's capability from the X-Host-ID
// header. Session authentication lives in front of this service; by the
// time a request lands here the header names an authenticated host.
// Requests without it get a 401.
func requireAccess(w http.ResponseWriter, r *http.Request) (models.Access, bool) {
	hostID := r.Header.Get("X-Host-ID")
	if hostID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "X-Host-ID header is required")
		return models.Access{}, false
	}
	return models.Access{HostID: hostID}, true
}

// decodeJSON decodes and validates a request body. On failure it writes
// the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			details := make(map[string]string, len(fields))
			for _, fe := range fields {
				details[fe.Field()] = fe.Tag()
			}
			middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, "Request validation failed", details)
		} else {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Request validation failed")
		}
		return false
	}

	return true
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseDate parses a YYYY-MM-DD request field, writing a 400 on failure.
func parseDate(w http.ResponseWriter, field, value string) (time.Time, bool) {
	day, err := models.ParseDate(value)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, field+" must be a YYYY-MM-DD date")
		return time.Time{}, false
	}
	return day, true
}
