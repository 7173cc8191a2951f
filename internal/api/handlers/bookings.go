package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Sauce8888/MVP1/internal/api/middleware"
	"github.com/Sauce8888/MVP1/internal/calendar"
)

// CreateBookingRequest is the body for a host-entered offline booking.
// check_out is exclusive, so a one-night stay checks out the next day.
type CreateBookingRequest struct {
	GuestName  string `json:"guest_name" validate:"required,max=200"`
	GuestEmail string `json:"guest_email" validate:"omitempty,email"`
	CheckIn    string `json:"check_in" validate:"required"`
	CheckOut   string `json:"check_out" validate:"required"`
}

// CreateBooking records an offline booking. It is created confirmed and
// its nights are blocked immediately; an overlap with any unavailable
// day is refused with a 409.
func CreateBooking(bookings *calendar.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		propertyID := mux.Vars(r)["id"]

		var req CreateBookingRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		checkIn, ok := parseDate(w, "check_in", req.CheckIn)
		if !ok {
			return
		}
		checkOut, ok := parseDate(w, "check_out", req.CheckOut)
		if !ok {
			return
		}

		booking, err := bookings.Create(r.Context(), access, propertyID, calendar.BookingRequest{
			GuestName:  req.GuestName,
			GuestEmail: req.GuestEmail,
			CheckIn:    checkIn,
			CheckOut:   checkOut,
		})
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, booking)
	}
}

// CancelBooking cancels a booking and frees its nights. Cancelling an
// already-cancelled booking is a no-op.
func CancelBooking(bookings *calendar.BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, ok := requireAccess(w, r)
		if !ok {
			return
		}
		vars := mux.Vars(r)

		booking, err := bookings.Cancel(r.Context(), access, vars["id"], vars["bookingID"])
		if err != nil {
			middleware.WriteDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, booking)
	}
}
