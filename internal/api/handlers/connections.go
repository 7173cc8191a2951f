package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sauce8888/MVP1/internal/api/middleware"
	"github.com/Sauce8888/MVP1/internal/calendar"
	"github.com/Sauce8888/MVP1/internal/storage/models"
)

// CreateConnectionRequest is the body for connecting an external calendar
// feed to a property.
type CreateConnectionRequest struct {
	Source string `json:"source" validate:"required,oneof=airbnb other"`
	URL    string `json:"url" validate:"required"`
}

// ConnectionResponse pairs the stored connection with the result of the
// import's first sync pass. A failed first pass still returns 201; the
// sync result carries the error for the dashboard to show.
type ConnectionResponse struct {
	Connection *models.CalendarConnection `json:"connection"`
	Sync       *models.SyncResult         `json:"sync,omitempty"`
}

// CreateConnection connects a feed URL to a property and runs the first
// sync pass synchronously.
func CreateConnection(registry *calendar.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		propertyID := mux.Vars(r)["id"]

		var req CreateConnectionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		conn, result, err := registry.Import(r.Context(), access, propertyID, models.Source(req.Source), req.URL)
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ConnectionResponse{
			Connection: conn,
			Sync:       result,
		})
	}
}

// ListConnections returns the calendar connections of a property.
func ListConnections(registry *calendar.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		propertyID := mux.Vars(r)["id"]

		connections, err := registry.List(r.Context(), access, propertyID)
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}
		if connections == nil {
			connections = []models.CalendarConnection{}
		}

		writeJSON(w, http.StatusOK, connections)
	}
}

// DeleteConnection disconnects a feed and removes its imported events.
func DeleteConnection(registry *calendar.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		vars := mux.Vars(r)

		err := registry.Remove(r.Context(), access, vars["id"], models.Source(vars["source"]))
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// SyncConnection runs a pass over one named feed. A feed failure becomes
// the response status here, unlike the batch endpoint where results carry
// their errors individually.
func SyncConnection(sync *calendar.SyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		vars := mux.Vars(r)

		result, err := sync.SyncOne(r.Context(), access, vars["id"], models.Source(vars["source"]))
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// SyncResultsResponse wraps the per-connection results of a sync pass.
type SyncResultsResponse struct {
	Results []models.SyncResult `json:"results"`
}

// SyncProperty runs a sync pass over every connection of a property and
// returns the per-connection results.
func SyncProperty(sync *calendar.SyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		propertyID := mux.Vars(r)["id"]

		results, err := sync.SyncProperty(r.Context(), access, propertyID)
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}
		if results == nil {
			results = []models.SyncResult{}
		}

		writeJSON(w, http.StatusOK, SyncResultsResponse{Results: results})
	}
}
