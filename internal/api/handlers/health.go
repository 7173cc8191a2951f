package handlers

import (
	"net/http"
	"time"

	"github.com/Sauce8888/MVP1/internal/calendar"
	"github.com/Sauce8888/MVP1/internal/notify"
	"github.com/Sauce8888/MVP1/internal/storage"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	PropertiesCount  int    `json:"properties_count"`
	ConnectionsCount int    `json:"connections_count"`
	EventsCount      int    `json:"events_count"`
	BlockedDays      int    `json:"blocked_days"`
	ConnectedClients int    `json:"connected_clients"`
	NextSyncAt       string `json:"next_sync_at,omitempty"`
}

// Status returns a handler that reports dashboard counters and the next
// scheduled sync run.
func Status(
	properties *storage.PropertyRepository,
	connections *storage.ConnectionRepository,
	events *storage.EventRepository,
	dates *storage.UnavailableDateRepository,
	hub *notify.Hub,
	scheduler *calendar.Scheduler,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Counts are best-effort; a failed count shows as zero rather
		// than failing the whole status page.
		propertiesCount, _ := properties.Count(ctx)
		connectionsCount, _ := connections.Count(ctx)
		eventsCount, _ := events.Count(ctx)
		blockedDays, _ := dates.Count(ctx)

		response := StatusResponse{
			PropertiesCount:  propertiesCount,
			ConnectionsCount: connectionsCount,
			EventsCount:      eventsCount,
			BlockedDays:      blockedDays,
		}
		if hub != nil {
			response.ConnectedClients = hub.ClientCount()
		}
		if scheduler != nil {
			if next := scheduler.NextRun(); next != nil {
				response.NextSyncAt = next.UTC().Format(time.RFC3339)
			}
		}

		writeJSON(w, http.StatusOK, response)
	}
}
