// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sauce8888/MVP1/internal/api/handlers"
	"github.com/Sauce8888/MVP1/internal/api/middleware"
	"github.com/Sauce8888/MVP1/internal/calendar"
	"github.com/Sauce8888/MVP1/internal/logger"
	"github.com/Sauce8888/MVP1/internal/notify"
	"github.com/Sauce8888/MVP1/internal/storage"
)

// Deps carries everything the router wires into handlers. All fields are
// required unless noted.
type Deps struct {
	DB          *storage.DB
	Properties  *storage.PropertyRepository
	Connections *storage.ConnectionRepository
	Events      *storage.EventRepository
	Dates       *storage.UnavailableDateRepository
	Registry    *calendar.Registry
	Sync        *calendar.SyncService
	Exporter    *calendar.Exporter
	Manual      *calendar.ManualService
	Bookings    *calendar.BookingService
	Scheduler   *calendar.Scheduler // optional; /api/status omits next_sync_at without it
	Hub         *notify.Hub
	Log         *logger.Logger

	// StaticDir serves the dashboard frontend when set.
	StaticDir string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.Recovery(deps.Log))

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(deps.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(
		deps.Properties, deps.Connections, deps.Events, deps.Dates,
		deps.Hub, deps.Scheduler,
	)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(deps.Hub, deps.Log)).Methods("GET")

	// Calendar connection endpoints
	api.HandleFunc("/properties/{id}/calendar-connections", handlers.ListConnections(deps.Registry)).Methods("GET")
	api.HandleFunc("/properties/{id}/calendar-connections", handlers.CreateConnection(deps.Registry)).Methods("POST")
	api.HandleFunc("/properties/{id}/calendar-connections/{source}", handlers.DeleteConnection(deps.Registry)).Methods("DELETE")
	api.HandleFunc("/properties/{id}/calendar-connections/{source}/sync", handlers.SyncConnection(deps.Sync)).Methods("POST")
	api.HandleFunc("/properties/{id}/calendar-sync", handlers.SyncProperty(deps.Sync)).Methods("POST")
	api.HandleFunc("/properties/{id}/calendar.ics", handlers.ExportCalendar(deps.Exporter)).Methods("GET")

	// Manual availability endpoints
	api.HandleFunc("/properties/{id}/calendar-events", handlers.CreateEvent(deps.Manual)).Methods("POST")
	api.HandleFunc("/properties/{id}/calendar-events/{eventID}", handlers.DeleteEvent(deps.Manual)).Methods("DELETE")
	api.HandleFunc("/properties/{id}/blocked-dates", handlers.CreateBlock(deps.Manual)).Methods("POST")
	api.HandleFunc("/properties/{id}/blocked-dates", handlers.DeleteBlock(deps.Manual)).Methods("DELETE")

	// Booking endpoints
	api.HandleFunc("/properties/{id}/bookings", handlers.CreateBooking(deps.Bookings)).Methods("POST")
	api.HandleFunc("/properties/{id}/bookings/{bookingID}", handlers.CancelBooking(deps.Bookings)).Methods("DELETE")

	// Serve static frontend files
	if deps.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(deps.StaticDir)))
	}

	return r
}
