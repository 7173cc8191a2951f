package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sauce8888/MVP1/internal/api/middleware"
	"github.com/Sauce8888/MVP1/internal/calendar"
)

// CreateEventRequest is the body for a host-entered calendar event.
// end_date is exclusive.
type CreateEventRequest struct {
	Summary   string `json:"summary" validate:"max=200"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// CreateEvent records a manual calendar event on a property.
func CreateEvent(manual *calendar.ManualService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		propertyID := mux.Vars(r)["id"]

		var req CreateEventRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		start, ok := parseDate(w, "start_date", req.StartDate)
		if !ok {
			return
		}
		end, ok := parseDate(w, "end_date", req.EndDate)
		if !ok {
			return
		}

		event, err := manual.AddEvent(r.Context(), access, propertyID, calendar.ManualEventRequest{
			Summary:   req.Summary,
			StartDate: start,
			EndDate:   end,
		})
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, event)
	}
}

// DeleteEvent removes a manual calendar event and its projected days.
func DeleteEvent(manual *calendar.ManualService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		vars := mux.Vars(r)

		err := manual.RemoveEvent(r.Context(), access, vars["id"], vars["eventID"])
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
