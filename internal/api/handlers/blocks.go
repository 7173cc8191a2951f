package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sauce8888/MVP1/internal/api/middleware"
	"github.com/Sauce8888/MVP1/internal/calendar"
)

// BlockRequest is the body for blocking a date range by hand. end_date
// is exclusive: blocking a single night sends end_date = start_date + 1.
type BlockRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Reason    string `json:"reason" validate:"max=200"`
}

// BlockResponse reports how many days a block or unblock touched.
type BlockResponse struct {
	Days int `json:"days"`
}

// CreateBlock marks a date range manually unavailable.
func CreateBlock(manual *calendar.ManualService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		propertyID := mux.Vars(r)["id"]

		var req BlockRequest
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

		days, err := manual.Block(r.Context(), access, propertyID, start, end, req.Reason)
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BlockResponse{Days: days})
	}
}

// DeleteBlock removes manual blocks in a date range. Days owned by
// bookings or calendar events are left alone.
func DeleteBlock(manual *calendar.ManualService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		propertyID := mux.Vars(r)["id"]

		var req BlockRequest
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

		days, err := manual.Unblock(r.Context(), access, propertyID, start, end)
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, BlockResponse{Days: days})
	}
}
