package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sauce8888/MVP1/internal/api/middleware"
	"github.com/Sauce8888/MVP1/internal/calendar"
)

// ExportCalendar serves a property's merged availability as an iCalendar
// download. Airbnb and other platforms subscribe to this URL.
func ExportCalendar(exporter *calendar.Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		propertyID := mux.Vars(r)["id"]

		data, err := exporter.Export(r.Context(), access, propertyID)
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
		w.Write(data)
	}
}
