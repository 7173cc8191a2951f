// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/Sauce8888/MVP1/internal/calendar"
	"github.com/Sauce8888/MVP1/internal/ical"
	"github.com/Sauce8888/MVP1/internal/logger"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
		Details: details,
	})
}

// WriteDomainError maps a service-layer error onto the HTTP status and
// error code it deserves. Unknown errors become a plain 500 without
// leaking their text.
func WriteDomainError(w http.ResponseWriter, err error) {
	var notFound *calendar.NotFoundError
	var conflict *calendar.ConflictError
	var fetchErr *ical.FetchError
	var parseErr *ical.ParseError

	switch {
	case errors.As(err, &notFound):
		WriteError(w, http.StatusNotFound, ErrNotFound, notFound.Error())
	case errors.As(err, &conflict):
		WriteError(w, http.StatusConflict, ErrConflict, conflict.Error())
	case errors.Is(err, calendar.ErrInvalidDateRange):
		WriteError(w, http.StatusBadRequest, ErrValidation, calendar.ErrInvalidDateRange.Error())
	case errors.Is(err, ical.ErrUnsupportedScheme):
		WriteError(w, http.StatusBadRequest, ErrValidation, ical.ErrUnsupportedScheme.Error())
	case errors.Is(err, calendar.ErrSyncInProgress):
		WriteError(w, http.StatusTooManyRequests, ErrSyncBusy, calendar.ErrSyncInProgress.Error())
	case errors.As(err, &fetchErr):
		if fetchErr.Transient {
			WriteError(w, http.StatusGatewayTimeout, ErrFeedUnreachable, "calendar feed did not respond")
		} else {
			WriteError(w, http.StatusBadGateway, ErrFeedRejected, "calendar feed refused the request")
		}
	case errors.As(err, &parseErr):
		WriteError(w, http.StatusBadGateway, ErrFeedInvalid, "calendar format not recognized")
	default:
		WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
	}
}

// Recovery returns middleware that recovers from panics and returns a
// 500 error.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"stack", string(debug.Stack()))
					WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Common error codes
const (
	ErrNotFound        = "not_found"
	ErrBadRequest      = "bad_request"
	ErrConflict        = "conflict"
	ErrInternalError   = "internal_error"
	ErrValidation      = "validation_error"
	ErrUnauthorized    = "unauthorized"
	ErrSyncBusy        = "sync_in_progress"
	ErrFeedUnreachable = "feed_unreachable"
	ErrFeedRejected    = "feed_rejected"
	ErrFeedInvalid     = "feed_invalid"
)
